package facade

import (
	"github.com/vk/graphcommit/node"
	"github.com/vk/graphcommit/snapshot"
)

// ValueChangedFunc is invoked with the resulting snapshot whenever the
// observed node's value changes following a committed state change.
type ValueChangedFunc func(snap *snapshot.Snapshot)

// NodeObserver re-raises a per-node value_changed event out of a
// Facade's OnStateChanged stream. It holds only the unsubscribe closure
// returned by OnStateChanged, never a pointer back into the Facade's own
// fields, so it cannot create an ownership cycle with the Facade it
// observes.
type NodeObserver struct {
	unsubscribe func()
}

// ObserveNode subscribes onChange to every commit that reports target in
// its changed-nodes set.
func ObserveNode(f *Facade, target node.Node, onChange ValueChangedFunc) *NodeObserver {
	unsubscribe := f.OnStateChanged(func(changes map[node.Node]struct{}, snap *snapshot.Snapshot) {
		if _, ok := changes[target]; ok {
			onChange(snap)
		}
	})
	return &NodeObserver{unsubscribe: unsubscribe}
}

// Close unsubscribes the observer. Safe to call more than once.
func (o *NodeObserver) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
}
