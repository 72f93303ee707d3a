package bytecode

import (
	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/scope"
	"github.com/chazu/jscore/pkg/value"
)

// Environment is the runtime storage of one scope record. Lexical slots
// start uninitialized (temporal dead zone); var slots start as undefined.
type Environment struct {
	info        scope.Info
	slots       []value.Value
	initialized []bool
}

func newEnvironment(info scope.Info) *Environment {
	env := &Environment{
		info:        info,
		slots:       make([]value.Value, len(info.Bindings)),
		initialized: make([]bool, len(info.Bindings)),
	}
	for i, b := range info.Bindings {
		env.initialized[i] = !b.Lexical
	}
	return env
}

// ScopeIndex returns the index of the scope record this environment
// materializes.
func (e *Environment) ScopeIndex() uint32 { return e.info.Index }

// Len returns the number of slots.
func (e *Environment) Len() int { return len(e.slots) }

// Get returns the value in slot. ok is false while the slot is in its
// temporal dead zone.
func (e *Environment) Get(slot uint32) (v value.Value, ok bool) {
	return e.slots[slot], e.initialized[slot]
}

// Initialize stores v and ends the slot's temporal dead zone.
func (e *Environment) Initialize(slot uint32, v value.Value) {
	e.slots[slot] = v
	e.initialized[slot] = true
}

// ============ Environment Opcodes ============

func (vm *VM) enterScope() error {
	f := vm.frame
	idx := vm.readOperand(Width32)
	if int(idx) >= len(f.chunk.Scopes) {
		return jserror.Faultf("ENTER_SCOPE %d out of range (%d scopes)", idx, len(f.chunk.Scopes))
	}
	info := f.chunk.Scopes[idx]
	cur := f.envs[len(f.envs)-1]
	if info.Outer != int32(cur.info.Index) || int(info.Depth) != len(f.envs) {
		return jserror.Faultf("scope %d (outer %d, depth %d) does not nest in environment of scope %d at depth %d",
			idx, info.Outer, info.Depth, cur.info.Index, len(f.envs)-1)
	}
	f.envs = append(f.envs, newEnvironment(info))
	return nil
}

func (vm *VM) leaveScope() error {
	f := vm.frame
	if len(f.envs) <= 1 {
		return jserror.Faultf("cannot leave the global environment")
	}
	f.envs = f.envs[:len(f.envs)-1]
	return nil
}

// ============ Binding Opcodes ============

func (vm *VM) readLocator() scope.Locator {
	f := vm.frame
	idx := vm.readOperand(Width32)
	if int(idx) >= len(f.chunk.Locators) {
		panic(jserror.Faultf("locator index %d out of range (%d locators)", idx, len(f.chunk.Locators)))
	}
	return f.chunk.Locators[idx]
}

// environmentFor returns the live environment a declarative locator
// targets. Locators reach their environment by depth; the scope index is
// checked to catch locators resolved against the wrong scope.
func (vm *VM) environmentFor(loc scope.Locator) (*Environment, error) {
	f := vm.frame
	if int(loc.Depth) >= len(f.envs) {
		return nil, jserror.Faultf("locator %s needs depth %d but only %d environments are live", loc, loc.Depth, len(f.envs))
	}
	env := f.envs[loc.Depth]
	if env.info.Index != loc.Scope {
		return nil, jserror.Faultf("locator %s resolved against scope %d, environment at depth %d is scope %d",
			loc, loc.Scope, loc.Depth, env.info.Index)
	}
	if int(loc.Slot) >= len(env.slots) {
		return nil, jserror.Faultf("locator %s slot out of range (%d slots)", loc, len(env.slots))
	}
	return env, nil
}

func (vm *VM) getName(orUndefined bool) error {
	loc := vm.readLocator()
	if loc.Global {
		v, ok := vm.realm.GetGlobal(loc.Name)
		if !ok {
			if !orUndefined {
				return jserror.Reference("%s is not defined", loc.Name)
			}
			v = value.Undefined
		}
		vm.push(v)
		return nil
	}

	env, err := vm.environmentFor(loc)
	if err != nil {
		return err
	}
	v, ok := env.Get(loc.Slot)
	if !ok {
		return jserror.Reference("cannot access '%s' before initialization", loc.Name)
	}
	vm.push(v)
	return nil
}

func (vm *VM) setName() error {
	loc := vm.readLocator()
	v := vm.pop()
	if loc.Global {
		if loc.Strict && !vm.realm.HasGlobal(loc.Name) {
			return jserror.Reference("assignment to undeclared variable %s", loc.Name)
		}
		vm.realm.SetGlobal(loc.Name, v)
		return nil
	}

	env, err := vm.environmentFor(loc)
	if err != nil {
		return err
	}
	if !env.info.Bindings[loc.Slot].Mutable {
		return jserror.Faultf("SET_NAME on immutable binding %s", loc)
	}
	if !env.initialized[loc.Slot] {
		return jserror.Reference("cannot access '%s' before initialization", loc.Name)
	}
	env.slots[loc.Slot] = v
	return nil
}

func (vm *VM) defVar() error {
	loc := vm.readLocator()
	if loc.Global {
		vm.realm.DefineGlobalVar(loc.Name)
		return nil
	}
	// Declarative var slots are created undefined with their environment.
	_, err := vm.environmentFor(loc)
	return err
}

func (vm *VM) defInitVar() error {
	loc := vm.readLocator()
	v := vm.pop()
	if loc.Global {
		vm.realm.SetGlobal(loc.Name, v)
		return nil
	}
	env, err := vm.environmentFor(loc)
	if err != nil {
		return err
	}
	env.Initialize(loc.Slot, v)
	return nil
}

func (vm *VM) putLexicalValue() error {
	loc := vm.readLocator()
	v := vm.pop()
	if loc.Global {
		return jserror.Faultf("PUT_LEXICAL_VALUE with unresolved locator %s", loc)
	}
	env, err := vm.environmentFor(loc)
	if err != nil {
		return err
	}
	env.Initialize(loc.Slot, v)
	return nil
}
