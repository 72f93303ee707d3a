package scope

import (
	"errors"
	"fmt"
)

// Locator is the resolved target of a name reference. It is produced once
// by the resolver and never mutated afterwards.
type Locator struct {
	Name string `cbor:"name"`

	// Scope is the index of the declaring scope in the Table and Depth its
	// distance from the root; the VM uses Depth to reach the environment in
	// constant time and Scope to verify it.
	Scope uint32 `cbor:"scope"`
	Depth uint32 `cbor:"depth"`
	Slot  uint32 `cbor:"slot"`

	// Global marks an unresolved reference that falls back to the global
	// object at run time.
	Global bool `cbor:"global"`

	// Strict records whether the referencing code is strict mode code.
	Strict bool `cbor:"strict"`
}

// GlobalLocator returns the unresolved locator for name.
func GlobalLocator(name string, strict bool) Locator {
	return Locator{Name: name, Global: true, Strict: strict}
}

// IsGlobal reports whether the locator is unresolved.
func (l Locator) IsGlobal() bool { return l.Global }

func (l Locator) String() string {
	if l.Global {
		return fmt.Sprintf("%s@global", l.Name)
	}
	return fmt.Sprintf("%s@%d:%d", l.Name, l.Scope, l.Slot)
}

// Assignment resolution errors. Both are answers, not failures: the
// compiler chooses the run-time behaviour from them.
var (
	// ErrMutateImmutable means the target is a strict immutable binding;
	// the assignment must throw a TypeError at run time.
	ErrMutateImmutable = errors.New("assignment to constant binding")

	// ErrSilentAssignment means the target is a non-strict immutable
	// binding; sloppy mode code ignores the assignment.
	ErrSilentAssignment = errors.New("assignment to immutable binding is ignored")
)
