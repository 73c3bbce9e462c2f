package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/graphcommit/node"
)

// resolveLazy computes target's real value on demand: it walks target's
// transitive dependencies, collects every reachable node still holding
// node.LazyUnresolved, and evaluates them level by level (parallel within
// a level, per meta's precomputed levels) so that a chain of lazy nodes
// resolves in one pass rather than one GetValue call per hop. mu
// serializes concurrent resolveLazy calls against each other so two
// readers never duplicate the same resolution; it is never taken by a
// plain read. The result is published by cloning the current values map,
// filling in newly resolved entries, and atomically swapping it in, so a
// concurrent readValue never observes a partially-resolved map and never
// blocks on this method at all.
func (s *Snapshot) resolveLazy(ctx context.Context, target node.Node) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	published := *s.values.Load()
	if v := published[target]; !node.IsLazyUnresolved(v) {
		return v, nil
	}

	values := cloneValues(published)
	pending := s.pendingLazyNodes(values, target)

	byLevel := make(map[int][]node.Derived, len(pending))
	var levels []int
	for _, d := range pending {
		lvl, _ := s.meta.LevelOf(d)
		if _, seen := byLevel[lvl]; !seen {
			levels = append(levels, lvl)
		}
		byLevel[lvl] = append(byLevel[lvl], d)
	}
	sort.Ints(levels)

	for _, lvl := range levels {
		atLevel := byLevel[lvl]
		results := make([]any, len(atLevel))
		errs := make([]error, len(atLevel))

		var wg sync.WaitGroup
		for i, d := range atLevel {
			wg.Add(1)
			go func(i int, d node.Derived) {
				defer wg.Done()
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					return
				}
				deps := d.Dependencies()
				inputs := make([]any, len(deps))
				for j, dep := range deps {
					inputs[j] = values[dep]
				}
				v, err := d.Calculate(inputs)
				if err != nil {
					errs[i] = fmt.Errorf("node %q: %w: %w", d.Name(), node.ErrCalculationError, err)
					return
				}
				results[i] = v
			}(i, d)
		}
		wg.Wait()

		for i, d := range atLevel {
			if errs[i] != nil {
				return nil, errs[i]
			}
			values[d] = results[i]
		}
	}

	s.values.Store(&values)
	return values[target], nil
}

// pendingLazyNodes returns, in topological order, every derived node
// reachable from target (target included) whose slot in values currently
// holds node.LazyUnresolved.
func (s *Snapshot) pendingLazyNodes(values map[node.Node]any, target node.Node) []node.Derived {
	reachable := make(map[node.Node]bool)
	var walk func(n node.Node)
	walk = func(n node.Node) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		if d, ok := n.(node.Derived); ok {
			for _, dep := range d.Dependencies() {
				walk(dep)
			}
		}
	}
	walk(target)

	var pending []node.Derived
	for _, n := range s.meta.Nodes {
		if !reachable[n] {
			continue
		}
		d, ok := n.(node.Derived)
		if !ok {
			continue
		}
		if node.IsLazyUnresolved(values[n]) {
			pending = append(pending, d)
		}
	}
	return pending
}
