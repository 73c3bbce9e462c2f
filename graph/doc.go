// Package graph computes the frozen topology of a node network: a
// deterministic total order and a partition into evaluation levels.
//
// A Meta is built once by the builder and shared, read-only, by every
// snapshot descended from it. Nothing in this package mutates a node or
// evaluates one; it only answers "in what order, and in what groups, can
// these nodes be safely evaluated in parallel".
package graph
