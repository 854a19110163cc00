// Package optim implements the optimizers used to fit variational models.
//
// This package provides:
//   - NaturalGradient: natural-gradient steps on Gaussian variational
//     parameters, under the natural or the mean/sqrt-covariance transform
//   - Optimizer interface: ordinary first-order optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// The two kinds are meant to be used together on disjoint parameter sets:
// NaturalGradient owns the variational parameters, an ordinary optimizer owns
// everything else (kernel and likelihood hyperparameters, inducing inputs).
// Partition builds the second set from the first.
//
// Example usage:
//
//	natgrad, err := optim.NewNaturalGradient([]*variational.Gaussian{model.Q()},
//	    optim.NaturalGradientConfig{Gamma: 0.1})
//	adam := optim.NewAdam(optim.Partition(model.Parameters(), natgrad.Parameters()),
//	    optim.AdamConfig{LR: 0.01})
//
//	for range iterations {
//	    if err := natgrad.Step(model.Loss(batches, nil)); err != nil {
//	        return err
//	    }
//	    _, grads, err := model.Loss(batches, adam.Parameters())()
//	    if err != nil {
//	        return err
//	    }
//	    adam.Step(grads)
//	}
package optim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
)

// Optimizer is the base interface for ordinary first-order optimizers.
//
// Optimizers update model parameters in place from a gradient map to
// minimize the loss function during training.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters
//   - ZeroGrad: Clear recorded gradients before next iteration
//   - GetLR: Get current learning rate (for monitoring/scheduling)
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Parameters missing from grads are left untouched.
	Step(grads autodiff.Gradients)

	// ZeroGrad clears all recorded parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// getGradient safely retrieves the gradient for a parameter.
//
// Returns nil if no gradient is found or if its shape does not match the
// parameter.
func getGradient(param *autodiff.Parameter, grads autodiff.Gradients) *mat.Dense {
	grad := grads.Get(param)
	if grad == nil {
		return nil
	}
	r, c := param.Dims()
	if gr, gc := grad.Dims(); gr != r || gc != c {
		return nil
	}
	return grad
}

// Partition returns the parameters of all that are not in owned, preserving
// order. Use it to hand the non-variational parameters of a model to an
// ordinary optimizer.
func Partition(all, owned []*autodiff.Parameter) []*autodiff.Parameter {
	skip := make(map[*autodiff.Parameter]struct{}, len(owned))
	for _, p := range owned {
		skip[p] = struct{}{}
	}
	rest := make([]*autodiff.Parameter, 0, len(all))
	for _, p := range all {
		if _, ok := skip[p]; !ok {
			rest = append(rest, p)
		}
	}
	return rest
}
