// Package node defines the typed contract shared by every vertex of a
// dependency graph: input nodes whose value is set by the client, and
// derived nodes whose value is a pure function of other nodes.
//
// Node identity is reference equality: two Node handles are the same node
// iff they are the same pointer. Node implementations are supplied by
// callers; this package only defines the capability set (validate,
// calculate, dependencies, laziness, value equality) that the graph and
// snapshot algorithms operate on. See internal/registry for a way to bind
// declared "kinds" to Go constructors of Input/Derived.
package node
