package graph

import (
	"errors"
	"fmt"

	"github.com/vk/graphcommit/node"
)

// ErrCircularDependency is wrapped by errors raised when a node network
// contains a dependency cycle. It is detected during topological sort and
// surfaced to callers as a build-time error.
var ErrCircularDependency = errors.New("graph: circular dependency")

// Meta is the frozen topology of a node network: a deterministic
// topological order plus a partition of the derived nodes into evaluation
// levels. It is immutable once built and safe for concurrent read access
// from many snapshots.
type Meta struct {
	// Nodes lists every node in the network in topological order: every
	// node appears after all of its dependencies.
	Nodes []node.Node

	// Levels partitions the derived nodes of Nodes into evaluation levels.
	// Levels[i] holds the derived nodes whose level is i, one more than the
	// maximum level of their dependencies (input nodes are implicitly level
	// -1 and never appear in Levels).
	// Every node in Levels[i] depends only on nodes in Levels[<i] or on
	// input nodes, so each level can be evaluated in parallel once every
	// earlier level has finished.
	Levels [][]node.Derived

	levelOf map[node.Node]int
	byName  map[string]node.Node
}

// Sort performs a depth-first topological sort of nodes, detecting cycles
// along the way. On success the returned slice orders every dependency
// before its dependents. Nodes reachable only as a dependency of another
// staged node, but not themselves present in nodes, are an error the
// caller (typically Build) reports as a missing dependency; Sort itself
// only ever walks the given slice and each node's own Dependencies().
func Sort(nodes []node.Node) ([]node.Node, error) {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[node.Node]int, len(nodes))
	order := make([]node.Node, 0, len(nodes))

	var visit func(n node.Node) error
	visit = func(n node.Node) error {
		switch state[n] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCircularDependency, n.Name())
		}
		state[n] = visiting
		if d, ok := n.(node.Derived); ok {
			for _, dep := range d.Dependencies() {
				if err := visit(dep); err != nil {
					if errors.Is(err, ErrCircularDependency) {
						return fmt.Errorf("%w (via %s)", err, n.Name())
					}
					return err
				}
			}
		}
		state[n] = visited
		order = append(order, n)
		return nil
	}

	for _, n := range nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Build computes a Meta from a topologically-sorted node list (as returned
// by Sort). A derived node whose dependency does not appear earlier in
// sorted is reported as node.ErrMissingDependency. Sort's output already
// contains every dependency it walked, so a dependency that was never
// staged is not caught here; the builder checks for that itself before
// calling Build.
func Build(sorted []node.Node) (*Meta, error) {
	levelOf := make(map[node.Node]int, len(sorted))
	byName := make(map[string]node.Node, len(sorted))
	var levels [][]node.Derived

	for _, n := range sorted {
		byName[n.Name()] = n

		d, isDerived := n.(node.Derived)
		if !isDerived {
			levelOf[n] = -1
			continue
		}

		lvl := 0
		for _, dep := range d.Dependencies() {
			depLvl, ok := levelOf[dep]
			if !ok {
				return nil, fmt.Errorf("%s: %w: %q", n.Name(), node.ErrMissingDependency, dep.Name())
			}
			if depLvl+1 > lvl {
				lvl = depLvl + 1
			}
		}
		levelOf[n] = lvl
		for len(levels) <= lvl {
			levels = append(levels, nil)
		}
		levels[lvl] = append(levels[lvl], d)
	}

	return &Meta{Nodes: sorted, Levels: levels, levelOf: levelOf, byName: byName}, nil
}

// LevelOf returns the evaluation level of n (-1 for input nodes), and
// false if n is not part of the network.
func (m *Meta) LevelOf(n node.Node) (int, bool) {
	lvl, ok := m.levelOf[n]
	return lvl, ok
}

// ByName looks up a node by its display name. Names are not guaranteed
// unique: neither the node package nor the builder rejects collisions
// (config.Load does, for the files it loads). When several nodes share a
// name, ByName returns the one that comes last in Nodes.
func (m *Meta) ByName(name string) (node.Node, bool) {
	n, ok := m.byName[name]
	return n, ok
}

// Contains reports whether n is part of this network.
func (m *Meta) Contains(n node.Node) bool {
	_, ok := m.levelOf[n]
	return ok
}
