package snapshot

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/vk/graphcommit/node"
)

// nodeResult is the outcome of process(n) for one derived node within one
// commit level.
type nodeResult struct {
	n           node.Derived
	value       any
	changed     bool
	unprocessed bool
	calcErr     error
}

// Commit recomputes every dirty derived node in dependency order,
// producing a new consistent Snapshot, or, if ctx is cancelled partway
// through, a new Snapshot whose Changes contains every node that was left
// unprocessed. Nodes are grouped into meta.Levels; within a level nodes
// are evaluated concurrently unless parallel is false or ctx is already
// cancelled when the level starts, in which case that level runs
// sequentially. A CalculationError aborts the whole commit once the level
// it occurred in has finished: Commit returns a nil Snapshot and the error,
// and the receiver Snapshot is left unmodified.
func (s *Snapshot) Commit(ctx context.Context, parallel bool) (*Snapshot, map[node.Node]struct{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(s.changes) == 0 {
		return s, map[node.Node]struct{}{}, nil
	}

	values := cloneValues(*s.values.Load())
	dirty := cloneNodeSet(s.changes)
	unprocessed := make(map[node.Node]struct{})
	outputChanges := make(map[node.Node]struct{})
	for n := range s.changes {
		if _, ok := n.(node.Input); ok {
			outputChanges[n] = struct{}{}
		}
	}

	for _, level := range s.meta.Levels {
		results := make([]nodeResult, len(level))

		if parallel && ctx.Err() == nil {
			g, _ := errgroup.WithContext(ctx)
			for i, n := range level {
				i, n := i, n
				g.Go(func() error {
					results[i] = processNode(ctx, n, dirty, values, s.initialValues)
					return nil
				})
			}
			_ = g.Wait()
		} else {
			for i, n := range level {
				results[i] = processNode(ctx, n, dirty, values, s.initialValues)
			}
		}

		for _, r := range results {
			if r.calcErr != nil {
				return nil, nil, fmt.Errorf("node %q: %w: %w", r.n.Name(), node.ErrCalculationError, r.calcErr)
			}
		}

		for _, r := range results {
			if r.unprocessed {
				unprocessed[r.n] = struct{}{}
				continue
			}
			values[r.n] = r.value
			if r.changed {
				dirty[r.n] = struct{}{}
				outputChanges[r.n] = struct{}{}
			}
		}
	}

	next := &Snapshot{
		meta:          s.meta,
		initialValues: cloneValues(values),
		changes:       unprocessed,
		versionID:     s.versionID,
	}
	next.values.Store(&values)
	if len(unprocessed) == 0 && len(outputChanges) > 0 {
		next.versionID = uuid.NewString()
	}
	return next, outputChanges, nil
}

// processNode implements the per-node commit decision: lazy nodes only
// propagate dirtiness, non-dirty nodes are left alone, a dirty node
// observed under a cancelled context is left unprocessed, and everything
// else is recomputed and compared against its baseline value.
func processNode(ctx context.Context, n node.Derived, dirty map[node.Node]struct{}, values, initialValues map[node.Node]any) nodeResult {
	if node.EffectiveIsLazy(n) {
		return nodeResult{n: n, value: node.LazyUnresolved, changed: isDirty(n, dirty)}
	}

	if !isDirty(n, dirty) {
		return nodeResult{n: n, value: values[n], changed: false}
	}

	if ctx.Err() != nil {
		return nodeResult{n: n, unprocessed: true}
	}

	deps := n.Dependencies()
	inputs := make([]any, len(deps))
	for i, dep := range deps {
		inputs[i] = values[dep]
	}
	newVal, err := n.Calculate(inputs)
	if err != nil {
		return nodeResult{n: n, calcErr: err}
	}

	prev, hadPrev := initialValues[n]
	changed := !hadPrev || !n.Equal(prev, newVal)
	return nodeResult{n: n, value: newVal, changed: changed}
}

func isDirty(n node.Derived, dirty map[node.Node]struct{}) bool {
	if _, ok := dirty[n]; ok {
		return true
	}
	for _, dep := range n.Dependencies() {
		if _, ok := dirty[dep]; ok {
			return true
		}
	}
	return false
}
