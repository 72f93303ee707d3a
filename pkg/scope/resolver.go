package scope

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/jscore/pkg/jserror"
)

var log = commonlog.GetLogger("jscore.scope")

// Resolver is the compile-time scope stack manager. It keeps the active
// scope, the count of open scopes and the table of all scopes created.
type Resolver struct {
	table     *Table
	current   *Scope
	openDepth int
}

// NewResolver creates a resolver whose active scope is a fresh global
// scope. The global scope is a hoisting boundary.
func NewResolver() *Resolver {
	t := &Table{}
	root := t.append(nil, true)
	return &Resolver{table: t, current: root}
}

// Table returns the table of every scope created so far.
func (r *Resolver) Table() *Table { return r.table }

// Current returns the active scope.
func (r *Resolver) Current() *Scope { return r.current }

// OpenDepth returns the number of scopes pushed and not yet popped.
func (r *Resolver) OpenDepth() int { return r.openDepth }

// SetStrict marks the active scope as strict mode code. Scopes pushed
// afterwards inherit the flag.
func (r *Resolver) SetStrict(strict bool) { r.current.strict = strict }

// Strict reports whether the active scope is strict mode code.
func (r *Resolver) Strict() bool { return r.current.strict }

// PushScope creates a child of the active scope, makes it active and
// returns its index.
func (r *Resolver) PushScope(functionScope bool) uint32 {
	r.openDepth++
	r.current = r.table.append(r.current, functionScope)
	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("push %s", r.current)
	}
	return r.current.index
}

// PopScope makes the parent of the active scope active again. Popping the
// global scope or popping more than was pushed is an internal fault.
func (r *Resolver) PopScope() error {
	if r.openDepth == 0 {
		return jserror.Faultf("unbalanced scope pop at %s", r.current)
	}
	outer := r.table.Parent(r.current)
	if outer == nil {
		return jserror.Faultf("cannot pop the global scope")
	}
	r.openDepth--
	r.current = outer
	return nil
}

// Resolve returns the locator of the innermost declaration of name, or a
// global locator when no declarative binding exists.
func (r *Resolver) Resolve(name string) Locator {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if b, ok := s.bindings[name]; ok {
			return s.locator(name, b, r.current.strict)
		}
	}
	return GlobalLocator(name, r.current.strict)
}

// HasBinding reports whether a declarative binding for name exists on the
// chain. Global object properties are not included.
func (r *Resolver) HasBinding(name string) bool {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if _, ok := s.bindings[name]; ok {
			return true
		}
	}
	return false
}

// HasBindingEval is the existence check used for direct eval. In sloppy
// mode the walk stops at the nearest function scope instead of the root.
func (r *Resolver) HasBindingEval(name string, strict bool) bool {
	if strict {
		return r.HasBinding(name)
	}
	return r.HasBindingUntilVar(name)
}

// HasBindingUntilVar reports whether name is declared in the active scope
// or any scope up to and including the nearest function scope.
func (r *Resolver) HasBindingUntilVar(name string) bool {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if _, ok := s.bindings[name]; ok {
			return true
		}
		if s.functionScope {
			return false
		}
	}
	return false
}

// CreateMutableBinding declares a mutable binding. With functionScope set
// the binding is var-style: it is placed in the nearest function scope and
// redeclaring it there is a no-op. Otherwise it is a lexical binding of the
// active scope. Conflicting declarations fail with a SyntaxError.
func (r *Resolver) CreateMutableBinding(name string, functionScope bool) error {
	if !functionScope {
		s := r.current
		if _, ok := s.bindings[name]; ok || s.HasGlobalVar(name) {
			return redeclaration(name)
		}
		s.add(Binding{Name: name, Mutable: true, Lexical: true})
		return nil
	}

	s := r.current
	for {
		if b, ok := s.bindings[name]; ok && b.Lexical {
			return redeclaration(name)
		}
		if s.functionScope {
			break
		}
		s = r.table.Parent(s)
	}

	if s.IsRoot() {
		s.globalVars[name] = struct{}{}
		return nil
	}
	if _, ok := s.bindings[name]; !ok {
		s.add(Binding{Name: name, Mutable: true})
	}
	return nil
}

// CreateImmutableBinding declares a const-style binding in the active
// scope. A strict binding throws on assignment in any mode.
func (r *Resolver) CreateImmutableBinding(name string, strict bool) error {
	s := r.current
	if _, ok := s.bindings[name]; ok || s.HasGlobalVar(name) {
		return redeclaration(name)
	}
	s.add(Binding{Name: name, Lexical: true, Strict: strict})
	return nil
}

// InitializeMutableBinding marks the binding initialized and returns the
// locator for its initializing store. A var-style initialization skips
// block scopes.
func (r *Resolver) InitializeMutableBinding(name string, functionScope bool) Locator {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if functionScope && !s.functionScope {
			continue
		}
		if b, ok := s.bindings[name]; ok {
			b.Initialized = true
			return s.locator(name, b, r.current.strict)
		}
	}
	return GlobalLocator(name, r.current.strict)
}

// InitializeImmutableBinding marks the immutable binding of the active
// scope initialized. The binding must have been created in the active
// scope; anything else is a compiler defect.
func (r *Resolver) InitializeImmutableBinding(name string) (Locator, error) {
	b, ok := r.current.bindings[name]
	if !ok {
		return Locator{}, jserror.Faultf("immutable binding %q was not created in %s", name, r.current)
	}
	if b.Mutable {
		return Locator{}, jserror.Faultf("binding %q in %s is mutable", name, r.current)
	}
	b.Initialized = true
	return r.current.locator(name, b, r.current.strict), nil
}

// ResolveForAssignment resolves an assignment target. A name with no
// declarative binding yields a global locator; an immutable binding yields
// ErrMutateImmutable or ErrSilentAssignment.
func (r *Resolver) ResolveForAssignment(name string) (Locator, error) {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if b, ok := s.bindings[name]; ok {
			return assignable(s, name, b, r.current.strict)
		}
	}
	return GlobalLocator(name, r.current.strict), nil
}

// ResolveVarForAssignment is ResolveForAssignment restricted to bindings
// declared in function scopes, skipping block scopes entirely.
func (r *Resolver) ResolveVarForAssignment(name string) (Locator, error) {
	for s := r.current; s != nil; s = r.table.Parent(s) {
		if !s.functionScope {
			continue
		}
		if b, ok := s.bindings[name]; ok {
			return assignable(s, name, b, r.current.strict)
		}
	}
	return GlobalLocator(name, r.current.strict), nil
}

// HoistBlockFunction applies the legacy hoisting rule for a function
// declared in the active block: when no lexical declaration of name in the
// scopes between the block and the nearest function scope would conflict,
// a var binding is created in the function scope. It reports whether the
// binding was hoisted. Strict code never hoists.
func (r *Resolver) HoistBlockFunction(name string) (bool, error) {
	if r.current.strict || r.current.functionScope {
		return false, nil
	}
	for s := r.table.Parent(r.current); s != nil; s = r.table.Parent(s) {
		if b, ok := s.bindings[name]; ok && b.Lexical {
			return false, nil
		}
		if s.functionScope {
			break
		}
	}

	saved := r.current
	r.current = r.table.Parent(saved)
	err := r.CreateMutableBinding(name, true)
	r.current = saved
	if err != nil {
		return false, err
	}
	return true, nil
}

func assignable(s *Scope, name string, b *Binding, strict bool) (Locator, error) {
	loc := s.locator(name, b, strict)
	switch {
	case b.Mutable:
		return loc, nil
	case b.Strict:
		return loc, ErrMutateImmutable
	default:
		return loc, ErrSilentAssignment
	}
}

func redeclaration(name string) error {
	return jserror.Syntax("redeclaration of %q", name)
}
