package bytecode

import (
	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/value"
)

// construct runs the CONSTRUCT family. The stack holds the target followed
// by argc arguments in source order, last argument on top.
func (vm *VM) construct(w Width) error {
	argc := vm.readOperand(w)
	f := vm.frame
	if uint64(argc)+1 > uint64(len(f.stack)) {
		return jserror.Faultf("construct with %d arguments needs %d stack values, have %d", argc, uint64(argc)+1, len(f.stack))
	}

	args := make([]value.Value, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	target := vm.pop()
	return vm.constructWith(target, args)
}

// constructSpread takes its arguments from a dense array built by the
// spread lowering; the target sits beneath it.
func (vm *VM) constructSpread() error {
	packed := vm.pop()
	obj, _ := packed.AsObject()
	arr, ok := obj.(value.ArrayLike)
	if !ok {
		return jserror.Faultf("CONSTRUCT_SPREAD argument list is %s, not an array", packed.Kind())
	}
	args, dense := arr.DenseElements()
	if !dense {
		return jserror.Faultf("CONSTRUCT_SPREAD argument list has holes")
	}
	target := vm.pop()
	return vm.constructWith(target, args)
}

// constructWith invokes the construction protocol with the target as
// new.target. Everything has been popped by now, so a throw leaves the
// stack without the target or its arguments.
func (vm *VM) constructWith(target value.Value, args []value.Value) error {
	ctor, ok := target.AsConstructor()
	if !ok {
		return jserror.Typ("%s is not a constructor", target)
	}
	result, err := ctor.Construct(args, ctor)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}
