package node

import "errors"

// ErrInvalidInputValue is wrapped by errors returned from Input.Validate
// when a proposed value is rejected outright.
var ErrInvalidInputValue = errors.New("node: invalid input value")

// Input is a typed value holder whose value is set by the client, e.g.
// through Snapshot.ChangeValue. Implementations embed Base for identity.
type Input interface {
	Node

	// Validate is invoked on every input mutation before storage. It must
	// be pure and idempotent. It may return a substitute value (e.g. a
	// min/max clamp) or fail wrapping ErrInvalidInputValue to reject the
	// mutation; the snapshot is left unchanged when it fails.
	Validate(value any) (any, error)
}

// InputBase is an embeddable Input implementation whose Validate is the
// identity function. Compose it with a custom Validate for coercion or
// rejection, e.g. a clamped range input.
type InputBase struct {
	Base
}

// NewInputBase creates an InputBase with the default equality predicate.
func NewInputBase(name string) InputBase {
	return InputBase{Base: NewBase(name)}
}

// Validate implements Input with the identity function.
func (InputBase) Validate(value any) (any, error) {
	return value, nil
}
