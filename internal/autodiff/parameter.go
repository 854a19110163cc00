package autodiff

import "gonum.org/v1/gonum/mat"

// Parameter represents a trainable float64 matrix.
//
// Vectors are stored as n×1 matrices and scalars as 1×1 matrices. The value
// is updated in place by exactly one optimizer; which one is decided by the
// caller when it builds the optimizer's parameter list.
//
// Example:
//
//	lengthscale := autodiff.NewScalar("kernel.log_lengthscale", 0)
//	lengthscale.SetScalar(math.Log(0.5))
type Parameter struct {
	name  string     // Parameter name (e.g., "q.mean")
	value *mat.Dense // Current value
	grad  *mat.Dense // Last gradient recorded by SetGrad
}

// NewParameter creates a new trainable parameter that owns value.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
	}
}

// NewScalar creates a 1×1 parameter.
func NewScalar(name string, v float64) *Parameter {
	return NewParameter(name, mat.NewDense(1, 1, []float64{v}))
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter matrix. Mutating it mutates the parameter.
func (p *Parameter) Value() *mat.Dense {
	return p.value
}

// Dims returns the parameter shape.
func (p *Parameter) Dims() (r, c int) {
	return p.value.Dims()
}

// Scalar returns the (0, 0) entry.
func (p *Parameter) Scalar() float64 {
	return p.value.At(0, 0)
}

// SetScalar sets the (0, 0) entry.
func (p *Parameter) SetScalar(v float64) {
	p.value.Set(0, 0, v)
}

// Grad returns the gradient recorded by SetGrad, or nil.
func (p *Parameter) Grad() *mat.Dense {
	return p.grad
}

// SetGrad records a gradient for inspection.
func (p *Parameter) SetGrad(grad *mat.Dense) {
	p.grad = grad
}

// ZeroGrad clears the recorded gradient.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}
