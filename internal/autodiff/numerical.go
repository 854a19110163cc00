package autodiff

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultStep is the finite-difference step used when Numerical is given eps <= 0.
const DefaultStep = 1e-5

// Numerical computes gradients of f with respect to params by central
// differences:
//
//	∂f/∂θᵢ ≈ (f(θ + εeᵢ) - f(θ - εeᵢ)) / 2ε
//
// Every entry is perturbed in place and restored before Numerical returns,
// including on error. f must be deterministic for the duration of the call;
// minibatch closures should fix their batch before calling Numerical.
func Numerical(f func() (float64, error), params []*Parameter, eps float64) (Gradients, error) {
	if eps <= 0 {
		eps = DefaultStep
	}
	grads := make(Gradients, len(params))
	for _, p := range params {
		r, c := p.Dims()
		grad := mat.NewDense(r, c, nil)
		value := p.Value()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				orig := value.At(i, j)

				value.Set(i, j, orig+eps)
				plus, err := f()
				if err != nil {
					value.Set(i, j, orig)
					return nil, fmt.Errorf("numerical gradient of %q[%d,%d]: %w", p.Name(), i, j, err)
				}

				value.Set(i, j, orig-eps)
				minus, err := f()
				value.Set(i, j, orig)
				if err != nil {
					return nil, fmt.Errorf("numerical gradient of %q[%d,%d]: %w", p.Name(), i, j, err)
				}

				grad.Set(i, j, (plus-minus)/(2*eps))
			}
		}
		grads[p] = grad
	}
	return grads, nil
}

// Check compares analytic gradients against central differences and returns
// the largest relative error over all entries of params.
//
// The relative error of one entry is |a - n| / max(1, |a|, |n|).
func Check(closure Closure, params []*Parameter, eps float64) (float64, error) {
	_, analytic, err := closure()
	if err != nil {
		return 0, err
	}
	numeric, err := Numerical(func() (float64, error) {
		loss, _, err := closure()
		return loss, err
	}, params, eps)
	if err != nil {
		return 0, err
	}

	var worst float64
	for _, p := range params {
		a := analytic.Get(p)
		n := numeric.Get(p)
		if a == nil {
			return 0, fmt.Errorf("check: no analytic gradient for %q", p.Name())
		}
		r, c := p.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				av, nv := a.At(i, j), n.At(i, j)
				scale := math.Max(1, math.Max(math.Abs(av), math.Abs(nv)))
				worst = math.Max(worst, math.Abs(av-nv)/scale)
			}
		}
	}
	return worst, nil
}
