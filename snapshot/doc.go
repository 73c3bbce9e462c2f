// Package snapshot implements the immutable graph state and its commit
// algorithm: change_value/mark_changed staging, level-by-level parallel
// recomputation of dirty derived nodes, lazy resolution on read, and
// cancellation with optional carry-over.
//
// A Snapshot never mutates its own values or changes set in a way
// observable to a caller holding a reference to it; every staging
// operation (ChangeValue, MarkChanged) returns a new Snapshot. The one
// exception is lazy resolution: GetValue may write a freshly computed
// value into the snapshot's internal map under an exclusion guard, but
// the result is stable and the snapshot's public behavior (its answer to
// GetValue) does not change afterwards.
package snapshot
