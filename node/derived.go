package node

// Derived is a typed output computed by a pure function of other nodes'
// current values. Implementations embed Base for identity.
type Derived interface {
	Node

	// Dependencies returns the ordered list of nodes this node reads. The
	// order must match the order Calculate expects inputs[i] to correspond
	// to dependencies[i].
	Dependencies() []Node

	// Calculate is a pure, deterministic, side-effect-free function from
	// the current values of Dependencies() (in the same order) to this
	// node's new value. Any error is reported to the caller as a
	// CalculationError and the enclosing commit is aborted.
	Calculate(inputs []any) (any, error)

	// IsLazy reports whether this node itself is declared lazy. Use
	// EffectiveIsLazy to also account for lazy transitive dependencies.
	IsLazy() bool

	// DefaultValue seeds the node's slot before its first commit.
	DefaultValue() any

	// OnBuild is invoked once, the first time a snapshot is built with
	// this node participating in its network. Implementations that need a
	// one-time freeze (see Placeholder) should hook this.
	OnBuild()
}

// DerivedBase is an embeddable Derived implementation supplying the common
// defaults: not lazy, nil default value, no-op OnBuild. Compose it with
// custom Dependencies/Calculate.
type DerivedBase struct {
	Base
	deps []Node
}

// NewDerivedBase creates a DerivedBase over the given ordered dependencies.
func NewDerivedBase(name string, deps ...Node) DerivedBase {
	return DerivedBase{Base: NewBase(name), deps: deps}
}

// NewDerivedBaseWithEqual is NewDerivedBase with a custom equality predicate.
func NewDerivedBaseWithEqual(name string, equal EqualFunc, deps ...Node) DerivedBase {
	return DerivedBase{Base: NewBaseWithEqual(name, equal), deps: deps}
}

// Dependencies implements Derived.
func (d DerivedBase) Dependencies() []Node { return d.deps }

// IsLazy implements Derived, defaulting to eager evaluation.
func (DerivedBase) IsLazy() bool { return false }

// DefaultValue implements Derived, defaulting to nil.
func (DerivedBase) DefaultValue() any { return nil }

// OnBuild implements Derived as a no-op.
func (DerivedBase) OnBuild() {}

// EffectiveIsLazy reports whether d is lazy or transitively depends on a
// lazy derived node: any derived node with at least one lazy transitive
// dependency is implicitly lazy.
func EffectiveIsLazy(d Derived) bool {
	return effectiveIsLazy(d, make(map[Derived]bool))
}

func effectiveIsLazy(d Derived, memo map[Derived]bool) bool {
	if v, ok := memo[d]; ok {
		return v
	}
	// Guard against re-entrant lookups while this node's own result is
	// being computed; a derived node cannot depend on itself in an acyclic
	// graph, so this only stops endless recursion on a cycle. A dependency
	// shared by several paths (a diamond) is answered from memo once its
	// own result is final.
	memo[d] = false
	if d.IsLazy() {
		memo[d] = true
		return true
	}
	for _, dep := range d.Dependencies() {
		if depDerived, ok := dep.(Derived); ok {
			if effectiveIsLazy(depDerived, memo) {
				memo[d] = true
				return true
			}
		}
	}
	return false
}
