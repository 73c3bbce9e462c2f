package builder

import (
	"context"
	"fmt"

	"github.com/vk/graphcommit/graph"
	"github.com/vk/graphcommit/node"
	"github.com/vk/graphcommit/snapshot"
)

func init() {
	snapshot.RegisterBuilderFactory(func(nodes []node.Node, initialValues map[node.Node]any) snapshot.BuilderLike {
		return newBuilder(nodes, initialValues)
	})
}

// Builder stages the nodes of a network and, on Build, sorts, validates
// and freezes them into an immutable Snapshot.
type Builder struct {
	nodes         []node.Node
	staged        map[node.Node]struct{}
	removed       map[node.Node]struct{}
	initialValues map[node.Node]any
	built         map[node.Node]struct{}
}

// New returns an empty Builder.
func New() *Builder {
	return newBuilder(nil, nil)
}

// FromSnapshot returns a Builder seeded with s's current node list and
// initial-values baseline; nodes already present keep their values unless
// RemoveNodeAndDependents is staged against them. This is what
// Snapshot.ChangeConfiguration returns under the hood. Every node carried
// over from s already had its one-time OnBuild fired when s itself was
// built, so Build will not fire it again for them.
func FromSnapshot(s *snapshot.Snapshot) *Builder {
	return newBuilder(s.Nodes(), s.InitialValues())
}

func newBuilder(nodes []node.Node, initialValues map[node.Node]any) *Builder {
	b := &Builder{
		staged:        make(map[node.Node]struct{}, len(nodes)),
		removed:       make(map[node.Node]struct{}),
		initialValues: make(map[node.Node]any, len(initialValues)),
		built:         make(map[node.Node]struct{}, len(nodes)),
	}
	for _, n := range nodes {
		b.nodes = append(b.nodes, n)
		b.staged[n] = struct{}{}
		b.built[n] = struct{}{}
	}
	for n, v := range initialValues {
		b.initialValues[n] = v
	}
	return b
}

// AddInput stages an input node with its initial value, running the
// input's own Validate first. It fails with node.ErrInvalidInputValue
// (wrapped) if the value is rejected.
func (b *Builder) AddInput(input node.Input, initialValue any) (node.Node, error) {
	v, err := input.Validate(initialValue)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", input.Name(), err)
	}
	if _, ok := b.staged[input]; !ok {
		b.nodes = append(b.nodes, input)
		b.staged[input] = struct{}{}
	}
	delete(b.removed, input)
	b.initialValues[input] = v
	return input, nil
}

// AddCalculation stages a derived node. Its value is left unset until
// Build seeds it from DefaultValue.
func (b *Builder) AddCalculation(derived node.Derived) (node.Node, error) {
	if _, ok := b.staged[derived]; !ok {
		b.nodes = append(b.nodes, derived)
		b.staged[derived] = struct{}{}
	}
	delete(b.removed, derived)
	return derived, nil
}

// RemoveNodeAndDependents stages n, and transitively every node depending
// on it, for removal. The closure is computed at Build time, in
// topological order, so removals staged in any order produce the same
// result.
func (b *Builder) RemoveNodeAndDependents(n node.Node) {
	b.removed[n] = struct{}{}
}

// Build performs the topological sort, cycle detection, removal-closure
// and level computation, and returns the resulting unreduced Snapshot. It
// fires OnBuild on every kept derived node the first time that node
// participates in a built network, never again on later rebuilds of the
// same or a descendant Builder. It never recomputes any derived node's
// value; call BuildAndCommit for that.
func (b *Builder) Build() (*snapshot.Snapshot, error) {
	sorted, err := graph.Sort(b.nodes)
	if err != nil {
		return nil, err
	}

	for _, n := range sorted {
		if _, ok := b.staged[n]; !ok {
			return nil, fmt.Errorf("%w: %q is referenced as a dependency but was never staged with AddInput/AddCalculation", node.ErrMissingDependency, n.Name())
		}
	}

	removed := make(map[node.Node]struct{}, len(b.removed))
	for n := range b.removed {
		removed[n] = struct{}{}
	}
	for _, n := range sorted {
		if _, ok := removed[n]; ok {
			continue
		}
		d, ok := n.(node.Derived)
		if !ok {
			continue
		}
		for _, dep := range d.Dependencies() {
			if _, ok := removed[dep]; ok {
				removed[n] = struct{}{}
				break
			}
		}
	}

	kept := make([]node.Node, 0, len(sorted)-len(removed))
	for _, n := range sorted {
		if _, ok := removed[n]; !ok {
			kept = append(kept, n)
		}
	}

	for _, n := range kept {
		d, ok := n.(node.Derived)
		if !ok {
			continue
		}
		if _, already := b.built[n]; already {
			continue
		}
		d.OnBuild()
		b.built[n] = struct{}{}
	}

	meta, err := graph.Build(kept)
	if err != nil {
		return nil, err
	}

	values := make(map[node.Node]any, len(kept))
	changes := make(map[node.Node]struct{})
	for _, n := range kept {
		prior, hasPrior := b.initialValues[n]
		switch typed := n.(type) {
		case node.Input:
			if hasPrior {
				values[n] = prior
			} else {
				values[n] = nil
			}
		case node.Derived:
			if hasPrior {
				values[n] = prior
			} else {
				values[n] = typed.DefaultValue()
			}
		}
		if !hasPrior {
			changes[n] = struct{}{}
		}
	}

	return snapshot.New(meta, values, changes), nil
}

// BuildAndCommit builds and immediately commits the result, returning a
// consistent Snapshot.
func (b *Builder) BuildAndCommit(ctx context.Context) (*snapshot.Snapshot, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	committed, _, err := s.Commit(ctx, true)
	if err != nil {
		return nil, err
	}
	return committed, nil
}
