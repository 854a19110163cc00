// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers for fitting variational models.
//
// # Overview
//
// This package contains:
//   - NaturalGradient: natural-gradient steps on Gaussian variational parameters
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for the ordinary optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/natgrad/gp"
//	    "github.com/born-ml/natgrad/optim"
//	    "github.com/born-ml/natgrad/variational"
//	)
//
//	func main() {
//	    model := gp.NewVGP(data, gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.1))
//
//	    // One full natural-gradient step recovers the exact posterior.
//	    err := optim.Minimize(model.Loss(nil), []*variational.Gaussian{model.Q()},
//	        optim.NaturalGradientConfig{Gamma: 1})
//	}
//
// # Natural Gradients Alongside Adam
//
// The natural-gradient optimizer owns q. Everything else goes to Adam:
//
//	natgrad, err := optim.NewNaturalGradient([]*variational.Gaussian{model.Q()},
//	    optim.NaturalGradientConfig{Gamma: 0.1})
//	adam := optim.NewAdam(optim.Partition(model.Parameters(), natgrad.Parameters()),
//	    optim.AdamConfig{LR: 0.01})
//
//	for range iterations {
//	    // 1. Natural-gradient step on q
//	    if err := natgrad.Step(model.Loss(batches, nil)); err != nil {
//	        return err
//	    }
//
//	    // 2. Adam step on the hyperparameters
//	    _, grads, err := model.Loss(batches, adam.Parameters())()
//	    if err != nil {
//	        return err
//	    }
//	    adam.Step(grads)
//	}
//
// # Errors
//
// NewNaturalGradient and SetGamma return *ConfigurationError. Step returns
// *ShapeMismatchError or *NumericalInstabilityError and leaves every group
// untouched when it fails. Match them with errors.Is against
// ErrConfiguration, ErrShapeMismatch and ErrNumericalInstability.
package optim
