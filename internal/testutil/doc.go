// Package testutil collects small, dependency-light helpers shared by
// this module's test suites: a thread-safe log-capture buffer and a
// handful of trivial node implementations (number input, sum/product
// derived) used to wire up test networks without repeating the same
// boilerplate in every package.
package testutil
