package value

import (
	"fmt"
	"strings"
)

// Object is any heap value. The engine does not implement a property
// model; objects only expose the capabilities below.
type Object interface {
	fmt.Stringer
}

// Constructor is an object with construction capability.
type Constructor interface {
	Object
	// Construct runs the construction protocol with the given arguments in
	// source order. newTarget is the object the construction was requested
	// against.
	Construct(args []Value, newTarget Object) (Value, error)
}

// ArrayLike is an object that can yield its elements as a dense sequence.
type ArrayLike interface {
	Object
	// DenseElements returns the elements in index order. ok is false when
	// the object has holes.
	DenseElements() (elems []Value, ok bool)
}

// Array is a minimal dense array used to pack spread arguments.
type Array struct {
	Elements []Value
	Holes    bool
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *Array {
	return &Array{Elements: append([]Value(nil), elems...)}
}

// Push appends a value.
func (a *Array) Push(v Value) {
	a.Elements = append(a.Elements, v)
}

// DenseElements implements ArrayLike.
func (a *Array) DenseElements() ([]Value, bool) {
	if a.Holes {
		return nil, false
	}
	out := make([]Value, len(a.Elements))
	copy(out, a.Elements)
	return out, true
}

func (a *Array) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// PlainObject is an ordinary object without construction capability.
type PlainObject struct {
	Class      string
	Properties map[string]Value
}

// NewPlainObject creates an ordinary object tagged with class.
func NewPlainObject(class string) *PlainObject {
	return &PlainObject{Class: class, Properties: make(map[string]Value)}
}

func (o *PlainObject) String() string {
	if o.Class == "" {
		return "[object Object]"
	}
	return "[object " + o.Class + "]"
}

// ConstructorFunc adapts a Go function to the construction protocol.
type ConstructorFunc struct {
	Name string
	Fn   func(args []Value, newTarget Object) (Value, error)
}

// Construct implements Constructor.
func (c *ConstructorFunc) Construct(args []Value, newTarget Object) (Value, error) {
	return c.Fn(args, newTarget)
}

func (c *ConstructorFunc) String() string {
	return "function " + c.Name + "() { [native code] }"
}

// ErrorObject is the value thrown for engine-raised language errors.
type ErrorObject struct {
	Name    string
	Message string
}

func (e *ErrorObject) String() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}
