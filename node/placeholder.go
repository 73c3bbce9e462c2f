package node

import (
	"fmt"
	"sync"
)

// ErrInvalidOperation is wrapped by errors from misuse of a Placeholder:
// binding it twice, binding a nil target, or using it before it is bound.
var ErrInvalidOperation = fmt.Errorf("node: invalid operation")

// Placeholder is a one-time-assignable forward reference, used to build
// structures whose nodes need to reference each other by name before every
// node exists yet. Before Bind succeeds, Calculate fails with
// ErrInvalidOperation; the other methods report no error: Dependencies
// and DefaultValue return nil, IsLazy returns false, OnBuild does nothing
// and Equal falls back to DeepEqual. Once bound, Placeholder delegates Dependencies,
// Calculate, IsLazy, DefaultValue, OnBuild and Equal to the bound target.
// Re-binding an already-bound Placeholder also fails with
// ErrInvalidOperation.
type Placeholder struct {
	Base
	mu     sync.Mutex
	target Derived
}

// NewPlaceholder creates an unbound placeholder with the given display name.
func NewPlaceholder(name string) *Placeholder {
	return &Placeholder{Base: NewBase(name)}
}

// Bind assigns the placeholder's target exactly once. Subsequent calls, or
// binding a nil target, fail with ErrInvalidOperation.
func (p *Placeholder) Bind(target Derived) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target != nil {
		return fmt.Errorf("placeholder %q: %w: already bound", p.Name(), ErrInvalidOperation)
	}
	if target == nil {
		return fmt.Errorf("placeholder %q: %w: cannot bind a nil target", p.Name(), ErrInvalidOperation)
	}
	p.target = target
	return nil
}

func (p *Placeholder) resolved() (Derived, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target == nil {
		return nil, fmt.Errorf("placeholder %q: %w: used before binding", p.Name(), ErrInvalidOperation)
	}
	return p.target, nil
}

// Dependencies implements Derived by delegating to the bound target.
func (p *Placeholder) Dependencies() []Node {
	t, err := p.resolved()
	if err != nil {
		return nil
	}
	return t.Dependencies()
}

// Calculate implements Derived by delegating to the bound target.
func (p *Placeholder) Calculate(inputs []any) (any, error) {
	t, err := p.resolved()
	if err != nil {
		return nil, err
	}
	return t.Calculate(inputs)
}

// IsLazy implements Derived by delegating to the bound target.
func (p *Placeholder) IsLazy() bool {
	t, err := p.resolved()
	if err != nil {
		return false
	}
	return t.IsLazy()
}

// DefaultValue implements Derived by delegating to the bound target.
func (p *Placeholder) DefaultValue() any {
	t, err := p.resolved()
	if err != nil {
		return nil
	}
	return t.DefaultValue()
}

// OnBuild delegates to the bound target's OnBuild, freezing the binding in
// the sense that the placeholder is now expected to behave exactly like its
// target for the remaining lifetime of the network.
func (p *Placeholder) OnBuild() {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target != nil {
		target.OnBuild()
	}
}

// Equal delegates to the bound target's equality predicate, falling back to
// DeepEqual if the placeholder is not yet bound.
func (p *Placeholder) Equal(a, b any) bool {
	t, err := p.resolved()
	if err != nil {
		return DeepEqual(a, b)
	}
	return t.Equal(a, b)
}
