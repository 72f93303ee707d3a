// Package scope resolves lexical scopes at compile time.
//
// Every scope ever opened during compilation is appended to an
// index-addressed Table. Each record stores the index of its parent, so the
// tree is strictly nested and can never become cyclic. Name references are
// resolved once into a Locator (scope index, depth and slot) that the
// compiler embeds into the instruction stream; at run time the VM walks the
// same shape through materialized environments, never by name.
package scope

import "fmt"

// NoOuter is the outer index of the root scope.
const NoOuter int32 = -1

// Binding is the compile-time metadata of one declared name.
type Binding struct {
	Name        string
	Slot        uint32
	Mutable     bool
	Lexical     bool // let/const/class style; false for var-style bindings
	Strict      bool // immutable binding that throws on assignment in any mode
	Initialized bool // has left the temporal dead zone at compile time
}

// Scope is one lexical scope's binding table.
type Scope struct {
	index         uint32
	outer         int32
	depth         uint32
	functionScope bool
	strict        bool

	bindings map[string]*Binding
	slots    []*Binding

	// globalVars holds var-declared names of the root scope. They live on
	// the global object, not in declarative slots.
	globalVars map[string]struct{}
}

func newScope(index uint32, outer *Scope, functionScope bool) *Scope {
	s := &Scope{
		index:         index,
		outer:         NoOuter,
		functionScope: functionScope,
		bindings:      make(map[string]*Binding),
	}
	if outer != nil {
		s.outer = int32(outer.index)
		s.depth = outer.depth + 1
		s.strict = outer.strict
	} else {
		s.globalVars = make(map[string]struct{})
	}
	return s
}

// Index returns the scope's stable index in the table.
func (s *Scope) Index() uint32 { return s.index }

// Outer returns the parent's index, or NoOuter for the root.
func (s *Scope) Outer() int32 { return s.outer }

// Depth returns the number of ancestors.
func (s *Scope) Depth() uint32 { return s.depth }

// IsRoot reports whether this is the global scope.
func (s *Scope) IsRoot() bool { return s.outer == NoOuter }

// IsFunctionScope reports whether this scope is a hoisting boundary.
func (s *Scope) IsFunctionScope() bool { return s.functionScope }

// IsStrict reports whether code in this scope is strict mode code.
func (s *Scope) IsStrict() bool { return s.strict }

// Lookup returns the binding declared for name in this scope only.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// NumBindings returns the number of declarative slots.
func (s *Scope) NumBindings() int { return len(s.slots) }

// Names returns binding names in slot order.
func (s *Scope) Names() []string {
	names := make([]string, len(s.slots))
	for i, b := range s.slots {
		names[i] = b.Name
	}
	return names
}

// HasGlobalVar reports whether the root scope routed a var declaration
// for name to the global object.
func (s *Scope) HasGlobalVar(name string) bool {
	_, ok := s.globalVars[name]
	return ok
}

func (s *Scope) add(b Binding) *Binding {
	b.Slot = uint32(len(s.slots))
	nb := &b
	s.bindings[b.Name] = nb
	s.slots = append(s.slots, nb)
	return nb
}

// locator addresses binding b of s from code whose strictness is strict.
func (s *Scope) locator(name string, b *Binding, strict bool) Locator {
	return Locator{
		Name:   name,
		Scope:  s.index,
		Depth:  s.depth,
		Slot:   b.Slot,
		Strict: strict,
	}
}

func (s *Scope) String() string {
	kind := "block"
	if s.functionScope {
		kind = "function"
	}
	return fmt.Sprintf("scope#%d(%s, outer=%d, depth=%d, bindings=%d)", s.index, kind, s.outer, s.depth, len(s.slots))
}

// Table is the append-only arena of every scope created during one
// compilation.
type Table struct {
	scopes []*Scope
}

// Len returns the number of scope records.
func (t *Table) Len() int { return len(t.scopes) }

// At returns the scope at index i.
func (t *Table) At(i uint32) *Scope { return t.scopes[i] }

// Parent returns the outer scope, or nil for the root.
func (t *Table) Parent(s *Scope) *Scope {
	if s.outer == NoOuter {
		return nil
	}
	return t.scopes[s.outer]
}

// IsAncestorOrSelf reports whether ancestor is on the chain from s to the
// root.
func (t *Table) IsAncestorOrSelf(ancestor, s uint32) bool {
	for cur := t.scopes[s]; cur != nil; cur = t.Parent(cur) {
		if cur.index == ancestor {
			return true
		}
	}
	return false
}

func (t *Table) append(outer *Scope, functionScope bool) *Scope {
	s := newScope(uint32(len(t.scopes)), outer, functionScope)
	t.scopes = append(t.scopes, s)
	return s
}

// Info is the runtime materialization descriptor of one scope record.
type Info struct {
	Index         uint32        `cbor:"index"`
	Outer         int32         `cbor:"outer"`
	Depth         uint32        `cbor:"depth"`
	FunctionScope bool          `cbor:"function_scope"`
	Bindings      []BindingInfo `cbor:"bindings"`
}

// BindingInfo describes one slot of a materialized environment.
type BindingInfo struct {
	Name    string `cbor:"name"`
	Lexical bool   `cbor:"lexical"`
	Mutable bool   `cbor:"mutable"`
}

// Export returns the descriptors of every scope in table order.
func (t *Table) Export() []Info {
	out := make([]Info, len(t.scopes))
	for i, s := range t.scopes {
		info := Info{
			Index:         s.index,
			Outer:         s.outer,
			Depth:         s.depth,
			FunctionScope: s.functionScope,
			Bindings:      make([]BindingInfo, len(s.slots)),
		}
		for j, b := range s.slots {
			info.Bindings[j] = BindingInfo{Name: b.Name, Lexical: b.Lexical, Mutable: b.Mutable}
		}
		out[i] = info
	}
	return out
}
