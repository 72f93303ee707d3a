package bytecode

import (
	"github.com/chazu/jscore/pkg/jserror"
)

// Jump addresses are absolute offsets into the code section.

func (vm *VM) jump() {
	vm.frame.pc = vm.readOperand(Width32)
}

// jumpIf pops the condition and jumps when its truthiness equals want.
func (vm *VM) jumpIf(want bool) {
	addr := vm.readOperand(Width32)
	if vm.pop().ToBoolean() == want {
		vm.frame.pc = addr
	}
}

// jumpIfNotUndefined jumps when the value is anything but undefined and
// keeps it on the stack; an undefined value is consumed.
func (vm *VM) jumpIfNotUndefined() {
	addr := vm.readOperand(Width32)
	v := vm.pop()
	if !v.IsUndefined() {
		vm.frame.pc = addr
		vm.push(v)
	}
}

// jumpIfNullOrUndefined jumps when the value is null or undefined and
// consumes it; any other value stays on the stack.
func (vm *VM) jumpIfNullOrUndefined() {
	addr := vm.readOperand(Width32)
	v := vm.pop()
	if v.IsNullOrUndefined() {
		vm.frame.pc = addr
		return
	}
	vm.push(v)
}

// jumpTable dispatches on a 1-based integer selector. Selectors outside
// 1..count take the default address. The whole address list is consumed
// either way.
func (vm *VM) jumpTable() error {
	def := vm.readOperand(Width32)
	count := vm.readOperand(Width32)

	sel := vm.pop()
	n, ok := sel.AsInteger()
	if !ok {
		return jserror.Faultf("JUMP_TABLE selector must be an integer, got %s", sel.Kind())
	}

	target := def
	for i := uint32(0); i < count; i++ {
		addr := vm.readOperand(Width32)
		if int64(i)+1 == int64(n) {
			target = addr
		}
	}
	vm.frame.pc = target
	return nil
}
