package bytecode

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/scope"
	"github.com/chazu/jscore/pkg/value"
)

const (
	// DefaultStackLimit bounds the operand stack of a frame.
	DefaultStackLimit = 4096

	// DefaultInterruptInterval is how many instructions run between checks
	// of the execution context.
	DefaultInterruptInterval = 1024
)

// Completion is the signal an instruction hands back to the dispatch loop.
type Completion uint8

const (
	CompletionNormal Completion = iota // continue with the next instruction
	CompletionReturn                   // frame finished with a result
	CompletionThrow                    // an exception propagates out of the frame
)

// String returns a human-readable name for Completion.
func (c Completion) String() string {
	switch c {
	case CompletionNormal:
		return "normal"
	case CompletionReturn:
		return "return"
	case CompletionThrow:
		return "throw"
	default:
		return fmt.Sprintf("Completion(%d)", c)
	}
}

// Exception is a thrown language value that propagated out of the frame.
type Exception struct {
	Value  value.Value          // The thrown value
	Native *jserror.NativeError // Set when the engine raised the error
	PC     uint32               // Offset of the throwing instruction
}

func (e *Exception) Error() string {
	return "uncaught " + e.Value.String()
}

// Unwrap exposes the native error, if any.
func (e *Exception) Unwrap() error {
	if e.Native == nil {
		return nil
	}
	return e.Native
}

// Frame is the execution state of one chunk.
type Frame struct {
	chunk  *Chunk
	pc     uint32
	stack  []value.Value
	envs   []*Environment
	result value.Value
}

// PC returns the program counter.
func (f *Frame) PC() uint32 { return f.pc }

// Chunk returns the executing chunk.
func (f *Frame) Chunk() *Chunk { return f.chunk }

// Stack returns a copy of the operand stack, bottom first.
func (f *Frame) Stack() []value.Value {
	out := make([]value.Value, len(f.stack))
	copy(out, f.stack)
	return out
}

// StackDepth returns the number of values on the operand stack.
func (f *Frame) StackDepth() int { return len(f.stack) }

// Environments returns the live runtime environment chain, root first.
func (f *Frame) Environments() []*Environment { return f.envs }

// Result returns the completion value after a return.
func (f *Frame) Result() value.Value { return f.result }

// VM executes bytecode chunks. A VM is single-threaded; independent
// evaluations use independent VMs.
type VM struct {
	// ID identifies this evaluation in logs.
	ID string

	realm value.Realm
	frame *Frame
	log   commonlog.Logger

	// StackLimit bounds the operand stack; exceeding it throws RangeError.
	// Values <= 0 select DefaultStackLimit.
	StackLimit int

	// InterruptInterval is the number of instructions between context
	// checks in ExecuteContext.
	InterruptInterval int

	// Debug/trace mode
	Trace bool
}

// NewVM creates a VM whose unresolved references use realm.
func NewVM(realm value.Realm) *VM {
	if realm == nil {
		realm = value.NewGlobalObject()
	}
	return &VM{
		ID:                uuid.NewString(),
		realm:             realm,
		log:               commonlog.GetLogger("jscore.vm"),
		StackLimit:        DefaultStackLimit,
		InterruptInterval: DefaultInterruptInterval,
	}
}

// Realm returns the global-object capability.
func (vm *VM) Realm() value.Realm { return vm.realm }

// Frame returns the current frame, or nil before Load.
func (vm *VM) Frame() *Frame { return vm.frame }

// Load prepares a fresh frame for chunk: program counter 0, empty operand
// stack and the root environment materialized from scope 0.
func (vm *VM) Load(chunk *Chunk) error {
	if chunk.Version > BytecodeVersion {
		return fmt.Errorf("bytecode version %d is newer than supported version %d", chunk.Version, BytecodeVersion)
	}
	root := scope.Info{Index: 0, Outer: scope.NoOuter, FunctionScope: true}
	if len(chunk.Scopes) > 0 {
		root = chunk.Scopes[0]
		if root.Outer != scope.NoOuter {
			return jserror.Faultf("scope 0 of %q is not a root scope", chunk.Name)
		}
	}
	vm.frame = &Frame{
		chunk: chunk,
		stack: make([]value.Value, 0, 16),
		envs:  []*Environment{newEnvironment(root)},
	}
	return nil
}

// Execute runs chunk to completion.
func (vm *VM) Execute(chunk *Chunk) (value.Value, error) {
	return vm.ExecuteContext(context.Background(), chunk)
}

// ExecuteContext runs chunk to completion. The context is only consulted
// between instructions; an instruction always runs to its end.
func (vm *VM) ExecuteContext(ctx context.Context, chunk *Chunk) (value.Value, error) {
	if err := vm.Load(chunk); err != nil {
		return value.Undefined, err
	}
	return vm.run(ctx)
}

// run is the main execution loop.
func (vm *VM) run(ctx context.Context) (value.Value, error) {
	interval := vm.InterruptInterval
	if interval <= 0 {
		interval = 1
	}
	for steps := 0; ; steps++ {
		if steps%interval == 0 {
			if err := ctx.Err(); err != nil {
				return value.Undefined, fmt.Errorf("execution interrupted at %04X: %w", vm.frame.pc, err)
			}
		}

		completion, err := vm.Step()
		if err != nil {
			if jserror.IsFault(err) {
				vm.log.Errorf("vm %s: %v", vm.ID, err)
			}
			return value.Undefined, err
		}
		if completion == CompletionReturn {
			return vm.frame.result, nil
		}
	}
}

// Step executes exactly one instruction. A throw is reported as
// CompletionThrow with an *Exception; an internal fault is reported as a
// *jserror.Fault and leaves the frame unusable.
func (vm *VM) Step() (completion Completion, err error) {
	f := vm.frame
	if f == nil {
		return CompletionNormal, jserror.Faultf("step without a loaded chunk")
	}
	if int(f.pc) >= len(f.chunk.Code) {
		// Falling off the end is an implicit return of undefined.
		f.result = value.Undefined
		return CompletionReturn, nil
	}

	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(*jserror.Fault)
			if !ok {
				panic(r)
			}
			completion, err = CompletionNormal, fault
		}
	}()

	opPC := f.pc
	op := Opcode(f.chunk.Code[f.pc])
	f.pc++

	if vm.Trace {
		vm.log.Debugf("[%04X] %-26s sp=%d envs=%d", opPC, op, len(f.stack), len(f.envs))
	}

	completion, err = vm.dispatch(op)
	if err != nil {
		if jserror.IsFault(err) {
			return CompletionNormal, err
		}
		return CompletionThrow, vm.exception(err, opPC)
	}
	limit := vm.StackLimit
	if limit <= 0 {
		limit = DefaultStackLimit
	}
	if len(f.stack) > limit {
		f.stack = f.stack[:limit]
		return CompletionThrow, vm.exception(jserror.Range("operand stack overflow"), opPC)
	}
	return completion, nil
}

// dispatch runs the operation of one opcode. The program counter is past
// the tag; operations read their own operands.
func (vm *VM) dispatch(op Opcode) (Completion, error) {
	f := vm.frame

	switch op {
	// ============ Stack Operations ============
	case OpNop:
		// Do nothing

	case OpPop:
		vm.pop()

	case OpDup:
		vm.push(vm.peek())

	case OpSwap:
		b := vm.pop()
		a := vm.pop()
		vm.push(b)
		vm.push(a)

	// ============ Push ============
	case OpPushUndefined:
		vm.push(value.Undefined)

	case OpPushNull:
		vm.push(value.Null)

	case OpPushTrue:
		vm.push(value.True)

	case OpPushFalse:
		vm.push(value.False)

	case OpPushZero:
		vm.push(value.Int(0))

	case OpPushOne:
		vm.push(value.Int(1))

	case OpPushInt8:
		vm.push(value.Int(int32(int8(vm.readOperand(Width8)))))

	case OpPushInt16:
		vm.push(value.Int(int32(int16(vm.readOperand(Width16)))))

	case OpPushInt32:
		vm.push(value.Int(int32(vm.readOperand(Width32))))

	case OpPushLiteral, OpPushLiteralU16, OpPushLiteralU32:
		idx := vm.readOperand(op.Width())
		if int(idx) >= len(f.chunk.Literals) {
			return CompletionNormal, jserror.Faultf("literal index %d out of range (%d literals)", idx, len(f.chunk.Literals))
		}
		vm.push(f.chunk.Literals[idx].Value())

	case OpPushNewArray:
		vm.push(value.FromObject(value.NewArray()))

	case OpPushValueToArray:
		v := vm.pop()
		arr := vm.pop()
		obj, _ := arr.AsObject()
		a, ok := obj.(*value.Array)
		if !ok {
			return CompletionNormal, jserror.Faultf("PUSH_VALUE_TO_ARRAY on %s", arr.Kind())
		}
		a.Push(v)
		vm.push(arr)

	// ============ Environments ============
	case OpEnterScope:
		return CompletionNormal, vm.enterScope()

	case OpLeaveScope:
		return CompletionNormal, vm.leaveScope()

	case OpGetName:
		return CompletionNormal, vm.getName(false)

	case OpGetNameOrUndefined:
		return CompletionNormal, vm.getName(true)

	case OpSetName:
		return CompletionNormal, vm.setName()

	case OpDefVar:
		return CompletionNormal, vm.defVar()

	case OpDefInitVar:
		return CompletionNormal, vm.defInitVar()

	case OpPutLexicalValue:
		return CompletionNormal, vm.putLexicalValue()

	case OpThrowMutateImmutable:
		loc := vm.readLocator()
		return CompletionNormal, jserror.Typ("assignment to constant variable '%s'", loc.Name)

	// ============ Control Flow ============
	case OpJump:
		vm.jump()

	case OpJumpIfTrue:
		vm.jumpIf(true)

	case OpJumpIfFalse:
		vm.jumpIf(false)

	case OpJumpIfNotUndefined:
		vm.jumpIfNotUndefined()

	case OpJumpIfNullOrUndefined:
		vm.jumpIfNullOrUndefined()

	case OpJumpTable:
		return CompletionNormal, vm.jumpTable()

	// ============ Construction ============
	case OpConstruct, OpConstructU16, OpConstructU32:
		return CompletionNormal, vm.construct(op.Width())

	case OpConstructSpread:
		return CompletionNormal, vm.constructSpread()

	// ============ Completion ============
	case OpReturn:
		f.result = vm.pop()
		return CompletionReturn, nil

	case OpReturnUndefined:
		f.result = value.Undefined
		return CompletionReturn, nil

	case OpThrow:
		return CompletionThrow, &Exception{Value: vm.pop()}

	default:
		return CompletionNormal, jserror.Faultf("unknown opcode 0x%02X at %04X", byte(op), f.pc-1)
	}

	return CompletionNormal, nil
}

// exception converts an operation error into the thrown exception.
func (vm *VM) exception(err error, pc uint32) *Exception {
	switch e := err.(type) {
	case *Exception:
		e.PC = pc
		return e
	case *jserror.NativeError:
		return &Exception{Value: errorValue(e), Native: e, PC: pc}
	}
	if ne, ok := jserror.AsNative(err); ok {
		return &Exception{Value: errorValue(ne), Native: ne, PC: pc}
	}
	ne := &jserror.NativeError{Kind: jserror.KindError, Message: err.Error()}
	return &Exception{Value: errorValue(ne), Native: ne, PC: pc}
}

func errorValue(ne *jserror.NativeError) value.Value {
	return value.FromObject(&value.ErrorObject{Name: ne.Kind.String(), Message: ne.Message})
}

// ============ Stack Helpers ============

func (vm *VM) push(v value.Value) {
	vm.frame.stack = append(vm.frame.stack, v)
}

// pop removes the top of the stack. Underflow means the instruction stream
// is malformed and is raised as a fault.
func (vm *VM) pop() value.Value {
	f := vm.frame
	n := len(f.stack)
	if n == 0 {
		panic(jserror.Faultf("operand stack underflow at %04X", f.pc))
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (vm *VM) peek() value.Value {
	f := vm.frame
	if len(f.stack) == 0 {
		panic(jserror.Faultf("operand stack underflow at %04X", f.pc))
	}
	return f.stack[len(f.stack)-1]
}

// readOperand reads one operand of width w and advances the program
// counter past it. Every width-polymorphic family goes through here.
func (vm *VM) readOperand(w Width) uint32 {
	f := vm.frame
	end := int(f.pc) + int(w)
	if end > len(f.chunk.Code) {
		panic(jserror.Faultf("truncated %d-byte operand at %04X", w, f.pc))
	}
	v := readOperand(f.chunk.Code, int(f.pc), w)
	f.pc = uint32(end)
	return v
}
