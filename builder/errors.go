package builder

import "github.com/vk/graphcommit/graph"

// ErrCircularDependency is re-exported from graph so callers of this
// package's public surface never need to import graph just to compare
// error kinds with errors.Is.
var ErrCircularDependency = graph.ErrCircularDependency
