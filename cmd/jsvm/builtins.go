package main

import (
	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/value"
)

// newRealm returns a global object holding the host constructors chunks
// run by jsvm may reference.
func newRealm() *value.GlobalObject {
	realm := value.NewGlobalObject()
	for _, ctor := range []*value.ConstructorFunc{
		{Name: "Object", Fn: constructObject},
		{Name: "Array", Fn: constructArray},
		{Name: "Point", Fn: constructPoint},
		{Name: "Error", Fn: constructError},
	} {
		realm.SetGlobal(ctor.Name, value.FromObject(ctor))
	}
	realm.SetGlobal("undefined", value.Undefined)
	return realm
}

func constructObject(args []value.Value, newTarget value.Object) (value.Value, error) {
	if len(args) > 0 {
		if _, ok := args[0].AsObject(); ok {
			return args[0], nil
		}
	}
	return value.FromObject(value.NewPlainObject("")), nil
}

// maxArrayLength bounds the holey arrays new Array(n) preallocates.
const maxArrayLength = 1 << 16

func constructArray(args []value.Value, newTarget value.Object) (value.Value, error) {
	if len(args) == 1 {
		if n, ok := args[0].AsInteger(); ok {
			if n < 0 || n > maxArrayLength {
				return value.Undefined, jserror.Range("invalid array length %d", n)
			}
			a := &value.Array{Elements: make([]value.Value, n), Holes: n > 0}
			return value.FromObject(a), nil
		}
	}
	return value.FromObject(value.NewArray(args...)), nil
}

func constructPoint(args []value.Value, newTarget value.Object) (value.Value, error) {
	p := value.NewPlainObject("Point")
	for i, name := range []string{"x", "y"} {
		if i < len(args) {
			p.Properties[name] = args[i]
		} else {
			p.Properties[name] = value.Int(0)
		}
	}
	return value.FromObject(p), nil
}

func constructError(args []value.Value, newTarget value.Object) (value.Value, error) {
	e := &value.ErrorObject{Name: "Error"}
	if len(args) > 0 && !args[0].IsUndefined() {
		e.Message = args[0].String()
	}
	return value.FromObject(e), nil
}
