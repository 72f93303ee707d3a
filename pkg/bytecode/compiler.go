package bytecode

import (
	"errors"
	"math"

	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/scope"
)

// placeholderAddress marks a jump operand that has not been patched yet.
const placeholderAddress uint32 = 0xFFFFFFFF

// Compiler emits bytecode for a single compilation unit. It owns the scope
// resolver for the unit and the chunk being built. Front ends drive it one
// construct at a time; names are opaque strings.
type Compiler struct {
	chunk    *Chunk
	resolver *scope.Resolver

	// Jump operands still holding placeholderAddress
	unpatched map[int]struct{}
}

// NewCompiler creates a compiler for a unit called name.
func NewCompiler(name string, strict bool) *Compiler {
	c := &Compiler{
		chunk:     NewChunk(),
		resolver:  scope.NewResolver(),
		unpatched: make(map[int]struct{}),
	}
	c.chunk.Name = name
	c.resolver.SetStrict(strict)
	return c
}

// Chunk returns the chunk being built.
func (c *Compiler) Chunk() *Chunk { return c.chunk }

// Resolver returns the scope resolver of the unit.
func (c *Compiler) Resolver() *scope.Resolver { return c.resolver }

// Strict reports whether the code being compiled is strict mode code.
func (c *Compiler) Strict() bool { return c.resolver.Strict() }

// SetPosition records the source position of the next instruction.
func (c *Compiler) SetPosition(line uint32, column uint16) {
	c.chunk.AddSourceLocation(uint32(c.chunk.CurrentOffset()), line, column)
}

// Emit appends an instruction.
func (c *Compiler) Emit(op Opcode, operands ...uint32) int {
	return c.chunk.Emit(op, operands...)
}

// ============ Values ============

// EmitPushInt pushes n with the smallest encoding.
func (c *Compiler) EmitPushInt(n int32) {
	switch {
	case n == 0:
		c.Emit(OpPushZero)
	case n == 1:
		c.Emit(OpPushOne)
	case n >= math.MinInt8 && n <= math.MaxInt8:
		c.Emit(OpPushInt8, uint32(uint8(int8(n))))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		c.Emit(OpPushInt16, uint32(uint16(int16(n))))
	default:
		c.Emit(OpPushInt32, uint32(n))
	}
}

// EmitPushNumber pushes f, inline when it is an int32 and through the
// literal pool otherwise.
func (c *Compiler) EmitPushNumber(f float64) {
	if i := int32(f); float64(i) == f && !(f == 0 && math.Signbit(f)) {
		c.EmitPushInt(i)
		return
	}
	c.EmitLiteral(NumberLiteral(f))
}

// EmitPushString pushes a string literal.
func (c *Compiler) EmitPushString(s string) {
	c.EmitLiteral(StringLiteral(s))
}

// EmitLiteral pools lit and pushes it with the narrowest index width.
func (c *Compiler) EmitLiteral(lit Literal) {
	idx := c.chunk.AddLiteral(lit)
	c.Emit(pushLiteralFor(WidthFor(idx)), idx)
}

// ============ Jumps ============

// EmitJump emits a jump with an unpatched target and returns the offset of
// its address operand for PatchJump.
func (c *Compiler) EmitJump(op Opcode) int {
	if !op.IsJump() || op == OpJumpTable {
		panic("bytecode: EmitJump with " + op.String())
	}
	at := c.Emit(op, placeholderAddress) + 1
	c.unpatched[at] = struct{}{}
	return at
}

// EmitJumpTo emits a jump to a known (usually backward) target.
func (c *Compiler) EmitJumpTo(op Opcode, target int) {
	c.Emit(op, uint32(target))
}

// PatchJump points the jump operand at the current offset.
func (c *Compiler) PatchJump(at int) {
	c.PatchJumpTo(at, c.chunk.CurrentOffset())
}

// PatchJumpTo points the jump operand at target.
func (c *Compiler) PatchJumpTo(at int, target int) {
	c.chunk.PatchAddress(at, uint32(target))
	delete(c.unpatched, at)
}

// EmitJumpTable emits a JUMP_TABLE with count case addresses. It returns
// the operand offset of the default address and of each case, in order.
// The selector must be on the stack.
func (c *Compiler) EmitJumpTable(count int) (def int, cases []int) {
	def = c.Emit(OpJumpTable, placeholderAddress, uint32(count)) + 1
	c.unpatched[def] = struct{}{}
	cases = make([]int, count)
	for i := range cases {
		cases[i] = c.chunk.EmitAddress(placeholderAddress)
		c.unpatched[cases[i]] = struct{}{}
	}
	return def, cases
}

// ============ Construction ============

// EmitConstruct emits the CONSTRUCT variant whose operand fits argc. The
// target and argc arguments must be on the stack.
func (c *Compiler) EmitConstruct(argc uint32) {
	c.Emit(constructFor(WidthFor(argc)), argc)
}

// EmitConstructSpread emits CONSTRUCT_SPREAD. The target and the packed
// argument array must be on the stack.
func (c *Compiler) EmitConstructSpread() {
	c.Emit(OpConstructSpread)
}

// ============ Scopes ============

// PushScope opens a scope and emits ENTER_SCOPE for it.
func (c *Compiler) PushScope(functionScope bool) uint32 {
	idx := c.resolver.PushScope(functionScope)
	c.Emit(OpEnterScope, idx)
	return idx
}

// PopScope closes the active scope and emits LEAVE_SCOPE.
func (c *Compiler) PopScope() error {
	if err := c.resolver.PopScope(); err != nil {
		return err
	}
	c.Emit(OpLeaveScope)
	return nil
}

// ============ Declarations ============

// DeclareVar declares a var binding and emits its DEF_VAR.
func (c *Compiler) DeclareVar(name string) error {
	if err := c.resolver.CreateMutableBinding(name, true); err != nil {
		return err
	}
	loc, err := c.resolver.ResolveVarForAssignment(name)
	if err != nil {
		return err
	}
	c.emitLocator(OpDefVar, loc)
	return nil
}

// DeclareLet declares a let binding in the active scope.
func (c *Compiler) DeclareLet(name string) error {
	return c.resolver.CreateMutableBinding(name, false)
}

// DeclareConst declares a const binding in the active scope. Assignments
// to it throw in strict code and are ignored otherwise.
func (c *Compiler) DeclareConst(name string) error {
	return c.resolver.CreateImmutableBinding(name, c.Strict())
}

// EmitInitializeLet stores the value on the stack into a let binding.
func (c *Compiler) EmitInitializeLet(name string) error {
	loc := c.resolver.InitializeMutableBinding(name, false)
	if loc.Global {
		return jserror.Faultf("let binding %q initialized before it was declared", name)
	}
	c.emitLocator(OpPutLexicalValue, loc)
	return nil
}

// EmitInitializeConst stores the value on the stack into a const binding
// of the active scope.
func (c *Compiler) EmitInitializeConst(name string) error {
	loc, err := c.resolver.InitializeImmutableBinding(name)
	if err != nil {
		return err
	}
	c.emitLocator(OpPutLexicalValue, loc)
	return nil
}

// EmitInitializeVar stores the value on the stack into a var binding.
func (c *Compiler) EmitInitializeVar(name string) {
	c.emitLocator(OpDefInitVar, c.resolver.InitializeMutableBinding(name, true))
}

// ============ References ============

// EmitGetName pushes the value of name.
func (c *Compiler) EmitGetName(name string) {
	c.emitLocator(OpGetName, c.resolver.Resolve(name))
}

// EmitTypeofName pushes the value of name, or undefined when it is an
// unknown global.
func (c *Compiler) EmitTypeofName(name string) {
	c.emitLocator(OpGetNameOrUndefined, c.resolver.Resolve(name))
}

// EmitAssign stores the value on the stack into name.
func (c *Compiler) EmitAssign(name string) error {
	loc, err := c.resolver.ResolveForAssignment(name)
	return c.emitAssignment(loc, err)
}

// EmitAssignVar stores the value on the stack into the var binding of name,
// ignoring block-scoped declarations.
func (c *Compiler) EmitAssignVar(name string) error {
	loc, err := c.resolver.ResolveVarForAssignment(name)
	return c.emitAssignment(loc, err)
}

func (c *Compiler) emitAssignment(loc scope.Locator, err error) error {
	switch {
	case err == nil:
		c.emitLocator(OpSetName, loc)
	case errors.Is(err, scope.ErrMutateImmutable):
		c.emitLocator(OpThrowMutateImmutable, loc)
	case errors.Is(err, scope.ErrSilentAssignment):
		c.Emit(OpPop)
	default:
		return err
	}
	return nil
}

// HoistBlockFunction applies legacy block function hoisting for name in
// the active block. When the name is hoisted its var binding is defined
// and true is returned; the caller copies the block binding into it with
// EmitGetName followed by EmitAssignVar once the function is initialized.
func (c *Compiler) HoistBlockFunction(name string) (bool, error) {
	hoisted, err := c.resolver.HoistBlockFunction(name)
	if err != nil || !hoisted {
		return false, err
	}
	loc, err := c.resolver.ResolveVarForAssignment(name)
	if err != nil {
		return false, err
	}
	c.emitLocator(OpDefVar, loc)
	return true, nil
}

func (c *Compiler) emitLocator(op Opcode, loc scope.Locator) {
	c.Emit(op, c.chunk.AddLocator(loc))
}

// ============ Completion ============

// EmitReturn returns the value on the stack.
func (c *Compiler) EmitReturn() {
	c.Emit(OpReturn)
}

// EmitThrow throws the value on the stack.
func (c *Compiler) EmitThrow() {
	c.Emit(OpThrow)
}

// Finish closes the unit: it appends RETURN_UNDEFINED so every path
// completes, exports the scope table and returns the chunk. Open scopes
// and unpatched jumps are compiler defects.
func (c *Compiler) Finish() (*Chunk, error) {
	if n := c.resolver.OpenDepth(); n != 0 {
		return nil, jserror.Faultf("%d scopes still open in %q", n, c.chunk.Name)
	}
	if len(c.unpatched) > 0 {
		return nil, jserror.Faultf("%d unpatched jumps in %q", len(c.unpatched), c.chunk.Name)
	}
	if !c.endsWithReturn() {
		c.Emit(OpReturnUndefined)
	}
	c.chunk.Scopes = c.resolver.Table().Export()
	if c.Strict() {
		c.chunk.Flags |= ChunkFlagStrict
	}
	return c.chunk, nil
}

// endsWithReturn checks if the last instruction completes the frame.
func (c *Compiler) endsWithReturn() bool {
	last := -1
	for off := 0; off < len(c.chunk.Code); {
		last = off
		n, err := instructionLen(c.chunk.Code, off)
		if err != nil {
			return false
		}
		off += n
	}
	return last >= 0 && Opcode(c.chunk.Code[last]).IsReturn()
}
