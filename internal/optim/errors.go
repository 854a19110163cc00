package optim

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid optimizer configuration")

	// ErrNumericalInstability matches every *NumericalInstabilityError.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrShapeMismatch matches every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ConfigurationError reports an invalid step size, group or transform,
// detected when the optimizer is built.
//
// Group is -1 for errors that do not belong to a group.
type ConfigurationError struct {
	Group   int    // Index of the offending group, or -1
	Field   string // Name of the field referred to, e.g., "gamma"
	Value   any    // The invalid value that was provided
	Message string // Why the value is invalid
}

func (e *ConfigurationError) Error() string {
	s := fmt.Sprintf("value %v is invalid for field %q", e.Value, e.Field)
	if e.Group >= 0 {
		s = fmt.Sprintf("group %d: %s", e.Group, s)
	}
	if e.Message != "" {
		s += "; " + e.Message
	}
	return s
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NumericalInstabilityError reports a failed Cholesky factorization or
// inversion while computing or applying a natural-gradient update.
type NumericalInstabilityError struct {
	Group     int    // Index of the offending group
	Channel   int    // Channel within the group
	Transform string // Name of the group's transform
	Err       error  // Underlying linear-algebra error
}

func (e *NumericalInstabilityError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("group %d: numerical instability: %v", e.Group, e.Err)
	}
	return fmt.Sprintf("group %d channel %d (%s transform): numerical instability: %v", e.Group, e.Channel, e.Transform, e.Err)
}

// Is reports whether target is ErrNumericalInstability.
func (e *NumericalInstabilityError) Is(target error) bool {
	return target == ErrNumericalInstability
}

// Unwrap returns the underlying error.
func (e *NumericalInstabilityError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError reports a gradient whose shape does not match the
// parameter it was returned for.
type ShapeMismatchError struct {
	Group     int
	Parameter string
	Want      [2]int
	Got       [2]int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("group %d: gradient for %q is %d×%d, parameter is %d×%d",
		e.Group, e.Parameter, e.Got[0], e.Got[1], e.Want[0], e.Want[1])
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
