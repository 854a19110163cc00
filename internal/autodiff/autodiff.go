// Package autodiff defines the differentiation contract between a model and
// the optimizers.
//
// A model exposes its state as Parameters and supplies a Closure. Each call of
// the closure evaluates the loss (possibly on a fresh minibatch) and returns
// gradients keyed by parameter. Optimizers never see the model itself.
//
// Architecture:
//   - Parameter: named float64 matrix that an optimizer may update in place
//   - Gradients: Parameter -> ∂loss/∂parameter, same shape as the parameter
//   - Closure: evaluate + backward in one call
//   - Numerical: central differences for parameters a model has no analytic
//     gradient for
//
// Usage:
//
//	closure := func() (float64, autodiff.Gradients, error) {
//	    loss := model.Loss()
//	    grads := autodiff.Gradients{weight: model.WeightGrad()}
//	    return loss, grads, nil
//	}
//	loss, grads, err := closure()
package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Closure evaluates the loss and its gradients.
//
// A closure is supplied fresh to every optimizer call and may draw a new
// minibatch each time it is invoked.
type Closure func() (float64, Gradients, error)

// Gradients maps a parameter to the gradient of the loss with respect to it.
//
// Parameters missing from the map did not participate in the loss.
type Gradients map[*Parameter]*mat.Dense

// Get returns the gradient for p, or nil if p has none.
func (g Gradients) Get(p *Parameter) *mat.Dense {
	if g == nil || p == nil {
		return nil
	}
	return g[p]
}

// Accumulate adds grad to the gradient stored for p.
func (g Gradients) Accumulate(p *Parameter, grad mat.Matrix) error {
	r, c := p.Dims()
	gr, gc := grad.Dims()
	if r != gr || c != gc {
		return fmt.Errorf("accumulate gradient for %q: shape %d×%d, parameter is %d×%d", p.Name(), gr, gc, r, c)
	}
	existing, ok := g[p]
	if !ok {
		g[p] = mat.DenseCopyOf(grad)
		return nil
	}
	existing.Add(existing, grad)
	return nil
}

// Merge copies every entry of other into g, accumulating shared parameters.
func (g Gradients) Merge(other Gradients) error {
	for p, grad := range other {
		if err := g.Accumulate(p, grad); err != nil {
			return err
		}
	}
	return nil
}
