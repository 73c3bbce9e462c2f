package testutil

import "github.com/vk/graphcommit/node"

// NumberInput is a float64-typed input node with an optional [Min, Max]
// clamp.
type NumberInput struct {
	node.InputBase
	Min, Max float64 // both zero means "no clamp"
}

// NewNumberInput returns an unclamped NumberInput.
func NewNumberInput(name string) *NumberInput {
	return &NumberInput{InputBase: node.NewInputBase(name)}
}

// NewClampedNumberInput returns a NumberInput that clamps to [min, max].
func NewClampedNumberInput(name string, min, max float64) *NumberInput {
	return &NumberInput{InputBase: node.NewInputBase(name), Min: min, Max: max}
}

// Validate implements node.Input.
func (n *NumberInput) Validate(v any) (any, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, node.ErrInvalidInputValue
	}
	if n.Min != 0 || n.Max != 0 {
		if f < n.Min {
			f = n.Min
		}
		if f > n.Max {
			f = n.Max
		}
	}
	return f, nil
}

// SumDerived sums its float64 dependencies.
type SumDerived struct {
	node.DerivedBase
}

// NewSumDerived returns a SumDerived over deps.
func NewSumDerived(name string, deps ...node.Node) *SumDerived {
	return &SumDerived{DerivedBase: node.NewDerivedBase(name, deps...)}
}

// Calculate implements node.Derived.
func (s *SumDerived) Calculate(inputs []any) (any, error) {
	total := 0.0
	for _, in := range inputs {
		total += in.(float64)
	}
	return total, nil
}

// ProductDerived multiplies its float64 dependencies.
type ProductDerived struct {
	node.DerivedBase
}

// NewProductDerived returns a ProductDerived over deps.
func NewProductDerived(name string, deps ...node.Node) *ProductDerived {
	return &ProductDerived{DerivedBase: node.NewDerivedBase(name, deps...)}
}

// Calculate implements node.Derived.
func (p *ProductDerived) Calculate(inputs []any) (any, error) {
	total := 1.0
	for _, in := range inputs {
		total *= in.(float64)
	}
	return total, nil
}

// FailingDerived always returns Err from Calculate, for exercising the
// CalculationError path.
type FailingDerived struct {
	node.DerivedBase
	Err error
}

// NewFailingDerived returns a FailingDerived over deps that always fails
// with err.
func NewFailingDerived(name string, err error, deps ...node.Node) *FailingDerived {
	return &FailingDerived{DerivedBase: node.NewDerivedBase(name, deps...), Err: err}
}

// Calculate implements node.Derived.
func (f *FailingDerived) Calculate(inputs []any) (any, error) { return nil, f.Err }
