package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/jscore/pkg/jserror"
)

// ============ Scope Stack Tests ============

func TestPushPopRestoresActiveScope(t *testing.T) {
	for n := 1; n <= 5; n++ {
		r := NewResolver()
		r.PushScope(true)
		before := r.Current()

		for i := 0; i < n; i++ {
			r.PushScope(i%2 == 0)
		}
		for i := 0; i < n; i++ {
			require.NoError(t, r.PopScope())
		}

		assert.Same(t, before, r.Current(), "n=%d", n)
		assert.Equal(t, 1, r.OpenDepth())
	}
}

func TestExtraPopIsFault(t *testing.T) {
	r := NewResolver()
	r.PushScope(false)
	require.NoError(t, r.PopScope())

	err := r.PopScope()
	require.Error(t, err)
	assert.True(t, jserror.IsFault(err))
	_, native := jserror.AsNative(err)
	assert.False(t, native, "scope faults are not language errors")
	assert.True(t, r.Current().IsRoot())
	assert.Equal(t, 0, r.OpenDepth())
}

func TestPushScopeIndicesAreStable(t *testing.T) {
	r := NewResolver()
	a := r.PushScope(true)
	b := r.PushScope(false)
	require.NoError(t, r.PopScope())
	c := r.PushScope(false)

	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)
	assert.Equal(t, uint32(3), c)
	assert.Equal(t, 4, r.Table().Len())

	// Closed scopes are retained and still linked to their parent.
	assert.Equal(t, int32(a), r.Table().At(b).Outer())
	assert.Equal(t, int32(a), r.Table().At(c).Outer())
	assert.Equal(t, uint32(2), r.Table().At(c).Depth())
}

// ============ Resolution Tests ============

func TestResolveInnermostShadows(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("x", false))
	inner := r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("y", false))
	require.NoError(t, r.CreateMutableBinding("x", false))

	loc := r.Resolve("x")
	assert.Equal(t, inner, loc.Scope)
	assert.Equal(t, uint32(1), loc.Slot)
	assert.Equal(t, uint32(2), loc.Depth)
	assert.False(t, loc.Global)

	require.NoError(t, r.PopScope())
	loc = r.Resolve("x")
	assert.Equal(t, fn, loc.Scope)
	assert.Equal(t, uint32(0), loc.Slot)
}

func TestResolveUnknownIsGlobal(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	loc := r.Resolve("console")
	assert.True(t, loc.IsGlobal())
	assert.Equal(t, "console", loc.Name)
	assert.Equal(t, "console@global", loc.String())
}

func TestLocatorScopeIsAncestorOfResolutionPoint(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("a", false))
	r.PushScope(false)
	r.PushScope(false)
	require.NoError(t, r.CreateImmutableBinding("b", true))
	r.PushScope(false)

	for _, name := range []string{"a", "b"} {
		loc := r.Resolve(name)
		assert.True(t, r.Table().IsAncestorOrSelf(loc.Scope, r.Current().Index()), name)
		assert.Equal(t, r.Table().At(loc.Scope).Depth(), loc.Depth, name)
	}
}

func TestLocatorCarriesStrictness(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	assert.False(t, r.Resolve("g").Strict)
	r.SetStrict(true)
	r.PushScope(false)
	assert.True(t, r.Strict(), "pushed scopes inherit strictness")
	assert.True(t, r.Resolve("g").Strict)
}

func TestDeclarativeLocatorTakesReferencingStrictness(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("outer", false))
	require.NoError(t, r.CreateImmutableBinding("fixed", false))
	assert.False(t, r.Resolve("outer").Strict)

	r.PushScope(false)
	r.SetStrict(true)
	loc := r.Resolve("outer")
	assert.True(t, loc.Strict, "strict block reading a sloppy binding")
	assert.Equal(t, uint32(1), loc.Depth)

	loc, err := r.ResolveForAssignment("fixed")
	assert.ErrorIs(t, err, ErrSilentAssignment, "const declared in sloppy code stays silent")
	assert.True(t, loc.Strict)
}

// ============ Existence Query Tests ============

func TestHasBinding(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("outer", false))
	r.PushScope(true)
	r.PushScope(false)

	assert.True(t, r.HasBinding("outer"))
	assert.False(t, r.HasBinding("missing"))
}

func TestHasBindingEvalStopsAtFunctionInSloppyMode(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("outer", false))
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("local", false))
	r.PushScope(false)

	assert.True(t, r.HasBindingEval("local", false))
	assert.False(t, r.HasBindingEval("outer", false))
	assert.True(t, r.HasBindingEval("outer", true))
}

func TestHoistedVarVisibleUntilFunctionBoundary(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	b1 := r.PushScope(false)
	b2 := r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("v", true))

	assert.True(t, r.HasBindingUntilVar("v"))

	_, inB2 := r.Table().At(b2).Lookup("v")
	_, inB1 := r.Table().At(b1).Lookup("v")
	binding, inFn := r.Table().At(fn).Lookup("v")
	assert.False(t, inB2)
	assert.False(t, inB1)
	require.True(t, inFn)
	assert.False(t, binding.Lexical)

	loc := r.Resolve("v")
	assert.Equal(t, fn, loc.Scope)
}

func TestHasBindingUntilVarDoesNotCrossFunction(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("outer", true))
	r.PushScope(true)
	r.PushScope(false)

	assert.False(t, r.HasBindingUntilVar("outer"))
	assert.True(t, r.HasBinding("outer"))
}

// ============ Declaration Tests ============

func TestImmutableOverExistingIsDuplicate(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("x", false))

	err := r.CreateImmutableBinding("x", true)
	require.Error(t, err)
	ne, ok := jserror.AsNative(err)
	require.True(t, ok)
	assert.Equal(t, jserror.KindSyntaxError, ne.Kind)
	assert.False(t, jserror.IsFault(err))
}

func TestSecondVarIsIdempotent(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("x", true))
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("x", true))

	assert.Equal(t, 1, r.Table().At(fn).NumBindings())
}

func TestDeclarationConflicts(t *testing.T) {
	tests := []struct {
		name    string
		build   func(r *Resolver) error
		wantErr bool
	}{
		{"let after let", func(r *Resolver) error {
			_ = r.CreateMutableBinding("x", false)
			return r.CreateMutableBinding("x", false)
		}, true},
		{"let after var", func(r *Resolver) error {
			_ = r.CreateMutableBinding("x", true)
			return r.CreateMutableBinding("x", false)
		}, true},
		{"var after let same scope", func(r *Resolver) error {
			_ = r.CreateMutableBinding("x", false)
			return r.CreateMutableBinding("x", true)
		}, true},
		{"var in block over outer let", func(r *Resolver) error {
			_ = r.CreateMutableBinding("x", false)
			r.PushScope(false)
			return r.CreateMutableBinding("x", true)
		}, true},
		{"var hoisting past inner block let", func(r *Resolver) error {
			r.PushScope(false)
			_ = r.CreateMutableBinding("x", false)
			r.PushScope(false)
			return r.CreateMutableBinding("x", true)
		}, true},
		{"let shadows in inner block", func(r *Resolver) error {
			_ = r.CreateMutableBinding("x", true)
			r.PushScope(false)
			return r.CreateMutableBinding("x", false)
		}, false},
		{"const after const", func(r *Resolver) error {
			_ = r.CreateImmutableBinding("x", true)
			return r.CreateImmutableBinding("x", true)
		}, true},
		{"var in sibling of let block", func(r *Resolver) error {
			r.PushScope(false)
			_ = r.CreateMutableBinding("x", false)
			if err := r.PopScope(); err != nil {
				return err
			}
			r.PushScope(false)
			return r.CreateMutableBinding("x", true)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.PushScope(true)
			err := tt.build(r)
			if tt.wantErr {
				require.Error(t, err)
				ne, ok := jserror.AsNative(err)
				require.True(t, ok)
				assert.Equal(t, jserror.KindSyntaxError, ne.Kind)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGlobalVarGoesToGlobalObject(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.CreateMutableBinding("g", true))
	require.NoError(t, r.CreateMutableBinding("g", true))

	assert.Equal(t, 0, r.Current().NumBindings())
	assert.True(t, r.Current().HasGlobalVar("g"))
	assert.True(t, r.Resolve("g").Global)
	assert.True(t, r.InitializeMutableBinding("g", true).Global)

	err := r.CreateMutableBinding("g", false)
	_, ok := jserror.AsNative(err)
	assert.True(t, ok, "top-level let over a global var is a redeclaration")
}

func TestTopLevelLexicalIsDeclarative(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.CreateMutableBinding("l", false))
	loc := r.Resolve("l")
	assert.False(t, loc.Global)
	assert.Equal(t, uint32(0), loc.Scope)
	assert.Equal(t, uint32(0), loc.Depth)
}

// ============ Initialization Tests ============

func TestInitializeMutableBinding(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("v", true))
	require.NoError(t, r.CreateMutableBinding("l", false))

	loc := r.InitializeMutableBinding("v", true)
	assert.Equal(t, fn, loc.Scope)
	b, _ := r.Table().At(fn).Lookup("v")
	assert.True(t, b.Initialized)

	loc = r.InitializeMutableBinding("l", false)
	assert.Equal(t, r.Current().Index(), loc.Scope)
	b, _ = r.Current().Lookup("l")
	assert.True(t, b.Initialized)
}

func TestInitializeImmutableBinding(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateImmutableBinding("c", true))

	b, _ := r.Current().Lookup("c")
	assert.False(t, b.Initialized)

	loc, err := r.InitializeImmutableBinding("c")
	require.NoError(t, err)
	assert.Equal(t, r.Current().Index(), loc.Scope)
	assert.True(t, b.Initialized)

	r.PushScope(false)
	_, err = r.InitializeImmutableBinding("c")
	assert.True(t, jserror.IsFault(err), "binding created in another scope")
}

// ============ Assignment Resolution Tests ============

func TestResolveForAssignment(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("m", false))
	require.NoError(t, r.CreateImmutableBinding("c", true))
	require.NoError(t, r.CreateImmutableBinding("f", false))
	r.PushScope(false)

	loc, err := r.ResolveForAssignment("m")
	require.NoError(t, err)
	assert.False(t, loc.Global)

	_, err = r.ResolveForAssignment("c")
	assert.True(t, errors.Is(err, ErrMutateImmutable))

	_, err = r.ResolveForAssignment("f")
	assert.True(t, errors.Is(err, ErrSilentAssignment))

	loc, err = r.ResolveForAssignment("nowhere")
	require.NoError(t, err, "not found is distinguished by a global locator")
	assert.True(t, loc.Global)
}

func TestResolveVarForAssignmentSkipsBlocks(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("f", true))
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("f", false))

	loc, err := r.ResolveVarForAssignment("f")
	require.NoError(t, err)
	assert.Equal(t, fn, loc.Scope)

	loc, err = r.ResolveForAssignment("f")
	require.NoError(t, err)
	assert.Equal(t, r.Current().Index(), loc.Scope)
}

// ============ Legacy Hoisting Tests ============

func TestHoistBlockFunction(t *testing.T) {
	r := NewResolver()
	fn := r.PushScope(true)
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("f", false))

	hoisted, err := r.HoistBlockFunction("f")
	require.NoError(t, err)
	assert.True(t, hoisted)
	b, ok := r.Table().At(fn).Lookup("f")
	require.True(t, ok)
	assert.False(t, b.Lexical)
}

func TestHoistBlockFunctionBlockedByLexical(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("f", false))
	r.PushScope(false)
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("f", false))

	hoisted, err := r.HoistBlockFunction("f")
	require.NoError(t, err)
	assert.False(t, hoisted)
}

func TestHoistBlockFunctionNotInStrictCode(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	r.SetStrict(true)
	r.PushScope(false)
	require.NoError(t, r.CreateMutableBinding("f", false))

	hoisted, err := r.HoistBlockFunction("f")
	require.NoError(t, err)
	assert.False(t, hoisted)
}

// ============ Export Tests ============

func TestExport(t *testing.T) {
	r := NewResolver()
	r.PushScope(true)
	require.NoError(t, r.CreateMutableBinding("a", true))
	require.NoError(t, r.CreateImmutableBinding("b", true))
	r.PushScope(false)

	infos := r.Table().Export()
	require.Len(t, infos, 3)
	assert.Equal(t, NoOuter, infos[0].Outer)
	assert.True(t, infos[0].FunctionScope)
	assert.Equal(t, int32(0), infos[1].Outer)
	assert.Equal(t, []BindingInfo{
		{Name: "a", Lexical: false, Mutable: true},
		{Name: "b", Lexical: true, Mutable: false},
	}, infos[1].Bindings)
	assert.Equal(t, uint32(2), infos[2].Depth)
	assert.Empty(t, infos[2].Bindings)
}
