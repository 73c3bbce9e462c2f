package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/graphcommit/node"
)

// InputFactory builds an input node with the given declared name.
type InputFactory func(name string) node.Input

// DerivedFactory builds a derived node with the given declared name over
// an already-resolved, ordered dependency list.
type DerivedFactory func(name string, deps []node.Node) node.Derived

// Module is implemented by packages that want to register one or more
// node kinds with a Registry at program start.
type Module interface {
	Register(r *Registry)
}

// Registry holds every node kind known to a program: the string a
// configuration file uses in a `kind = "..."` attribute, mapped to the Go
// constructor that builds the node.
type Registry struct {
	InputKinds   map[string]InputFactory
	DerivedKinds map[string]DerivedFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		InputKinds:   make(map[string]InputFactory),
		DerivedKinds: make(map[string]DerivedFactory),
	}
}

// Apply runs Register on every module against r, in order.
func Apply(r *Registry, modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// RegisterInput registers factory under kind. It panics if kind is
// already registered: a duplicate kind is a programming error that
// should surface at startup rather than at runtime.
func (r *Registry) RegisterInput(kind string, factory InputFactory) {
	if _, exists := r.InputKinds[kind]; exists {
		panic(fmt.Sprintf("registry: input kind %q already registered", kind))
	}
	slog.Debug("Registering input kind.", "kind", kind)
	r.InputKinds[kind] = factory
}

// RegisterDerived registers factory under kind. It panics if kind is
// already registered.
func (r *Registry) RegisterDerived(kind string, factory DerivedFactory) {
	if _, exists := r.DerivedKinds[kind]; exists {
		panic(fmt.Sprintf("registry: derived kind %q already registered", kind))
	}
	slog.Debug("Registering derived kind.", "kind", kind)
	r.DerivedKinds[kind] = factory
}

// NewInput looks up kind and constructs an input node named name. The
// bool result is false if kind is unregistered.
func (r *Registry) NewInput(kind, name string) (node.Input, bool) {
	factory, ok := r.InputKinds[kind]
	if !ok {
		return nil, false
	}
	return factory(name), true
}

// NewDerived looks up kind and constructs a derived node named name over
// deps. The bool result is false if kind is unregistered.
func (r *Registry) NewDerived(kind, name string, deps []node.Node) (node.Derived, bool) {
	factory, ok := r.DerivedKinds[kind]
	if !ok {
		return nil, false
	}
	return factory(name, deps), true
}
