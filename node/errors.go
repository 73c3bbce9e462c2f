package node

import "errors"

// ErrMissingDependency is wrapped by errors raised when a derived node
// references a node that is not part of the working set, either because
// the builder never staged it, or because graph.Build did not find it
// ahead of its dependent in the sorted node list. Snapshot.Commit does not
// check for it: a dependency without a values slot is read as nil.
var ErrMissingDependency = errors.New("node: missing dependency")

// ErrCalculationError is wrapped by errors that originate from a Derived
// node's Calculate returning a non-nil error. It is never swallowed: it
// propagates out of Snapshot.Commit and the enclosing snapshot is left
// unmodified.
var ErrCalculationError = errors.New("node: calculation error")
