package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/graphcommit/graph"
	"github.com/vk/graphcommit/node"
)

// Snapshot is an immutable binding of every node in a network to a
// value, plus the bookkeeping needed to compute the next consistent
// state: the set of nodes whose value differs from the last known
// consistent baseline, that baseline itself, and an opaque version id
// that changes whenever a commit produces a new consistent state.
type Snapshot struct {
	meta          *graph.Meta
	initialValues map[node.Node]any
	changes       map[node.Node]struct{}
	versionID     string

	// values is published through an atomic pointer so that readValue
	// never blocks: a reader loads the current map and indexes it without
	// ever taking mu. A lazy resolution never mutates a published map in
	// place; it clones, fills in newly resolved values, and swaps the
	// pointer. mu only serializes concurrent resolveLazy calls against
	// each other, so a second reader arriving mid-resolution waits behind
	// the one already resolving instead of duplicating its work; a reader
	// whose value is already resolved never touches mu at all.
	mu     sync.Mutex
	values atomic.Pointer[map[node.Node]any]
}

// BuilderLike is the subset of *builder.Builder's surface a Snapshot
// needs in order to implement ChangeConfiguration. It exists so that
// snapshot does not need to import builder: builder already imports
// snapshot to hand back the Snapshot it builds, and Go does not allow the
// reverse edge. builder.init registers the concrete factory; see
// RegisterBuilderFactory.
type BuilderLike interface {
	AddInput(input node.Input, initialValue any) (node.Node, error)
	AddCalculation(derived node.Derived) (node.Node, error)
	RemoveNodeAndDependents(n node.Node)
	Build() (*Snapshot, error)
	BuildAndCommit(ctx context.Context) (*Snapshot, error)
}

var newBuilderFromSnapshot func(nodes []node.Node, initialValues map[node.Node]any) BuilderLike

// RegisterBuilderFactory installs the constructor ChangeConfiguration
// uses to produce a BuilderLike. It is called from the builder package's
// init(), mirroring the database/sql driver-registration idiom, and is
// not meant to be called from application code.
func RegisterBuilderFactory(factory func(nodes []node.Node, initialValues map[node.Node]any) BuilderLike) {
	newBuilderFromSnapshot = factory
}

// New constructs a Snapshot for a network from the given values, which
// also become its initial_values baseline, and the given pending changes.
// This is what the builder calls at the end of Build, passing in changes
// only the nodes that have no prior committed value.
func New(meta *graph.Meta, values map[node.Node]any, changes map[node.Node]struct{}) *Snapshot {
	s := &Snapshot{
		meta:          meta,
		initialValues: cloneValues(values),
		changes:       changes,
	}
	s.values.Store(&values)
	return s
}

// Nodes returns the network's topologically-sorted node list.
func (s *Snapshot) Nodes() []node.Node { return s.meta.Nodes }

// VersionID returns the opaque identifier of this snapshot's baseline.
// Two snapshots with the same VersionID share the same initial_values
// baseline and configuration.
func (s *Snapshot) VersionID() string { return s.versionID }

// IsConsistent reports whether every node's value reflects its inputs,
// i.e. whether Changes is empty.
func (s *Snapshot) IsConsistent() bool { return len(s.changes) == 0 }

// Changes returns the set of nodes whose value differs from the
// initial_values baseline, including derived nodes left unprocessed by a
// cancelled commit. The returned map must not be mutated.
func (s *Snapshot) Changes() map[node.Node]struct{} { return s.changes }

func (s *Snapshot) readValue(n node.Node) any {
	return (*s.values.Load())[n]
}

// ChangeValue validates newValue against input's contract and returns a
// new Snapshot with that value installed. Reverting a value to the one
// recorded in the baseline removes the node from Changes rather than
// re-adding it, giving precise revert detection: setting a value and
// reverting it leaves Changes exactly as it was.
func (s *Snapshot) ChangeValue(input node.Input, newValue any) (*Snapshot, error) {
	v, err := input.Validate(newValue)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", input.Name(), err)
	}
	return s.installValue(input, v)
}

// ChangeObjectValue is ChangeValue for a type-erased handle: n must
// implement node.Input, otherwise it fails with ErrUnknownNode. It exists
// for callers (the façade's cancellation-carry-over replay) that hold a
// node.Node rather than a concretely-typed node.Input.
func (s *Snapshot) ChangeObjectValue(n node.Node, newValue any) (*Snapshot, error) {
	input, ok := n.(node.Input)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an input node", ErrUnknownNode, n.Name())
	}
	return s.ChangeValue(input, newValue)
}

func (s *Snapshot) installValue(input node.Input, v any) (*Snapshot, error) {
	if !s.meta.Contains(input) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, input.Name())
	}

	values := cloneValues(*s.values.Load())
	values[input] = v

	changes := cloneNodeSet(s.changes)
	if iv, ok := s.initialValues[input]; ok && input.Equal(iv, v) {
		delete(changes, input)
	} else {
		changes[input] = struct{}{}
	}

	next := &Snapshot{
		meta:          s.meta,
		initialValues: s.initialValues,
		changes:       changes,
		versionID:     s.versionID,
	}
	next.values.Store(&values)
	return next, nil
}

// MarkChanged explicitly adds n to Changes without altering its value.
// Use it when a derived node's computation depends on state outside the
// graph; the node implementation is then responsible for its own
// thread-safety around that external state.
func (s *Snapshot) MarkChanged(n node.Node) (*Snapshot, error) {
	if !s.meta.Contains(n) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, n.Name())
	}
	changes := cloneNodeSet(s.changes)
	changes[n] = struct{}{}
	next := &Snapshot{
		meta:          s.meta,
		initialValues: s.initialValues,
		changes:       changes,
		versionID:     s.versionID,
	}
	next.values.Store(s.values.Load())
	return next, nil
}

// GetValue returns n's current value, resolving it first if it is a
// not-yet-evaluated lazy node.
func (s *Snapshot) GetValue(n node.Node) (any, error) {
	return s.GetValueAsync(context.Background(), n)
}

// GetValueAsync is GetValue with a context observed during lazy
// resolution; it is only meaningful when n or one of its dependencies is
// lazy, since a non-lazy read never blocks.
func (s *Snapshot) GetValueAsync(ctx context.Context, n node.Node) (any, error) {
	if !s.meta.Contains(n) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, n.Name())
	}
	v := s.readValue(n)
	if !node.IsLazyUnresolved(v) {
		return v, nil
	}
	return s.resolveLazy(ctx, n)
}

// InitialValues returns a copy of the baseline value map used for
// change-detection and, on reconfiguration, to seed the values of nodes
// that survive into the new network unchanged.
func (s *Snapshot) InitialValues() map[node.Node]any {
	return cloneValues(s.initialValues)
}

// Dump returns a name -> value snapshot for inspection. Unresolved lazy
// slots are reported as node.LazyUnresolved rather than triggering
// resolution.
func (s *Snapshot) Dump() map[string]any {
	values := *s.values.Load()
	out := make(map[string]any, len(values))
	for n, v := range values {
		out[n.Name()] = v
	}
	return out
}

// ChangeConfiguration returns a new Builder seeded with the current node
// list and initial_values baseline; nodes already present keep their
// values. It requires the builder package to have been imported
// somewhere in the running program, since that is what installs the
// factory via RegisterBuilderFactory.
func (s *Snapshot) ChangeConfiguration() (BuilderLike, error) {
	if newBuilderFromSnapshot == nil {
		return nil, ErrBuilderNotRegistered
	}
	nodes := append([]node.Node(nil), s.meta.Nodes...)
	return newBuilderFromSnapshot(nodes, cloneValues(s.initialValues)), nil
}

func cloneValues(m map[node.Node]any) map[node.Node]any {
	out := make(map[node.Node]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNodeSet(m map[node.Node]struct{}) map[node.Node]struct{} {
	out := make(map[node.Node]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
