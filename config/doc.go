// Package config loads a declarative HCL description of a node network
// into a builder.Builder. A network file declares `input` and `derived`
// blocks; derived blocks reference their dependencies by name via
// `depends_on`, in any declaration order. Forward references are
// resolved with node.Placeholder.
package config
