// Package builder stages a node network and freezes it into a Snapshot.
// Staging is cheap and side-effect free: AddInput, AddCalculation and
// RemoveNodeAndDependents only record intent. All the expensive work
// (topological sort, cycle detection, removal-closure propagation, and
// on_build hooks) happens once, in Build.
package builder
