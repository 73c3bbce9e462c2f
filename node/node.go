package node

import "reflect"

// EqualFunc decides whether two values already stored for a node should be
// treated as identical for change-detection purposes. The default is
// structural equality; nodes may substitute e.g. a floating point tolerance.
type EqualFunc func(a, b any) bool

// DeepEqual is the default EqualFunc: structural equality via reflection.
func DeepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Node is the capability set shared by every vertex in a dependency graph:
// a stable, hashable identity (two Node values are the same node iff they
// are the same pointer), a display name, and a value-equality predicate.
//
// Node is a sealed interface: callers cannot implement it directly. Embed
// Base in a concrete Input or Derived implementation instead.
type Node interface {
	// Name returns a human-readable label for the node, used by Dump and
	// diagnostics. It need not be unique across a network.
	Name() string

	// Equal reports whether two values already observed for this node
	// should be treated as unchanged.
	Equal(a, b any) bool

	sealed()
}

// Base implements the identity portion of Node (name and equality
// predicate). Concrete Input and Derived implementations embed it.
type Base struct {
	name  string
	equal EqualFunc
}

// NewBase creates a Base using the default structural-equality predicate.
func NewBase(name string) Base {
	return Base{name: name, equal: DeepEqual}
}

// NewBaseWithEqual creates a Base with a caller-supplied equality predicate.
// A nil equal falls back to DeepEqual.
func NewBaseWithEqual(name string, equal EqualFunc) Base {
	if equal == nil {
		equal = DeepEqual
	}
	return Base{name: name, equal: equal}
}

// Name implements Node.
func (b Base) Name() string { return b.name }

// Equal implements Node.
func (b Base) Equal(a, x any) bool { return b.equal(a, x) }

func (b Base) sealed() {}
