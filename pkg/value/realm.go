package value

import "sort"

// Realm is the global-object capability used for references that the
// resolver could not bind to a declarative slot.
type Realm interface {
	// GetGlobal reads a global property.
	GetGlobal(name string) (Value, bool)
	// HasGlobal reports whether the global property exists.
	HasGlobal(name string) bool
	// SetGlobal writes a global property, creating it when absent.
	SetGlobal(name string, v Value)
	// DefineGlobalVar creates a var-declared global initialized to
	// undefined. Existing properties are left untouched.
	DefineGlobalVar(name string)
}

// GlobalObject is a map-backed Realm. It is not safe for concurrent use;
// each evaluation owns its own.
type GlobalObject struct {
	props map[string]Value
}

// NewGlobalObject creates an empty global object.
func NewGlobalObject() *GlobalObject {
	return &GlobalObject{props: make(map[string]Value)}
}

func (g *GlobalObject) GetGlobal(name string) (Value, bool) {
	v, ok := g.props[name]
	return v, ok
}

func (g *GlobalObject) HasGlobal(name string) bool {
	_, ok := g.props[name]
	return ok
}

func (g *GlobalObject) SetGlobal(name string, v Value) {
	g.props[name] = v
}

func (g *GlobalObject) DefineGlobalVar(name string) {
	if _, ok := g.props[name]; !ok {
		g.props[name] = Undefined
	}
}

// Names returns the defined global names in sorted order.
func (g *GlobalObject) Names() []string {
	names := make([]string, 0, len(g.props))
	for n := range g.props {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *GlobalObject) String() string {
	return "[object global]"
}
