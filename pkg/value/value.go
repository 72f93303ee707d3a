// Package value is the narrow value and object capability layer consumed by
// the execution engine. The engine only asks a handful of questions of a
// value: is it exactly undefined, is it null or undefined, what is its
// truthiness, can it construct, and what are its dense elements when it is
// packed as an argument list.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInteger
	KindRational
	KindString
	KindObject
)

// String returns a human-readable name for Kind.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindRational:
		return "rational"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a runtime language value. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	s    string
	o    Object
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBoolean, b: true}
	False     = Value{kind: KindBoolean, b: false}
)

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// Int returns an integer value.
func Int(i int32) Value {
	return Value{kind: KindInteger, i: i}
}

// Float returns a rational value. Floats with an exact int32
// representation are normalized to integers.
func Float(f float64) Value {
	if i := int32(f); float64(i) == f && !(f == 0 && math.Signbit(f)) {
		return Int(i)
	}
	return Value{kind: KindRational, f: f}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// FromObject wraps an object. A nil object yields null.
func FromObject(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{kind: KindObject, o: o}
}

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is exactly undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNullOrUndefined reports whether v is null or undefined.
func (v Value) IsNullOrUndefined() bool {
	return v.kind == KindUndefined || v.kind == KindNull
}

// AsInteger returns the integer payload when v is an integer value.
// Rationals are not converted.
func (v Value) AsInteger() (int32, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// AsNumber returns the numeric payload of integers and rationals.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindRational:
		return v.f, true
	}
	return 0, false
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

// AsObject returns the object payload.
func (v Value) AsObject() (Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.o, true
}

// AsConstructor returns the object when it supports construction.
func (v Value) AsConstructor() (Constructor, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	c, ok := v.o.(Constructor)
	return c, ok
}

// ToBoolean applies the language truthiness coercion.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInteger:
		return v.i != 0
	case KindRational:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindString:
		return v.s != ""
	case KindObject:
		return true
	default:
		return false
	}
}

// StrictEquals compares two values without coercion. Objects compare by
// identity.
func (v Value) StrictEquals(other Value) bool {
	if a, ok := v.AsNumber(); ok {
		b, ok := other.AsNumber()
		return ok && a == b
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindObject:
		return v.o == other.o
	}
	return false
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case KindRational:
		switch {
		case math.IsNaN(v.f):
			return "NaN"
		case math.IsInf(v.f, 1):
			return "Infinity"
		case math.IsInf(v.f, -1):
			return "-Infinity"
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindObject:
		return v.o.String()
	default:
		return v.kind.String()
	}
}
