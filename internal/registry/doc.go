// Package registry maps declared node "kind" strings to the Go
// constructors that build them. The config package's HCL loader uses a
// Registry to turn a `kind = "sum"` block into a concrete node.Derived;
// application code populates one by implementing Module and calling
// Register once at startup.
package registry
