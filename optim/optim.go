// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/optim"
	"github.com/born-ml/natgrad/internal/variational"
)

// Optimizer interface defines the common interface for the ordinary optimizers.
type Optimizer = optim.Optimizer

// Config represents the base configuration for optimizers.
type Config = optim.Config

// Natural gradients

// NaturalGradient takes natural-gradient steps on Gaussian variational
// distributions.
type NaturalGradient = optim.NaturalGradient

// NaturalGradientConfig contains configuration for NaturalGradient.
type NaturalGradientConfig = optim.NaturalGradientConfig

// NewNaturalGradient creates a natural-gradient optimizer over groups.
//
// Example:
//
//	opt, err := optim.NewNaturalGradient(
//	    []*variational.Gaussian{model.Q()},
//	    optim.NaturalGradientConfig{Gamma: 0.1},
//	)
func NewNaturalGradient(groups []*variational.Gaussian, config NaturalGradientConfig) (*NaturalGradient, error) {
	return optim.NewNaturalGradient(groups, config)
}

// Minimize builds a NaturalGradient over groups and takes one step.
func Minimize(closure autodiff.Closure, groups []*variational.Gaussian, config NaturalGradientConfig) error {
	return optim.Minimize(closure, groups, config)
}

// Partition returns the parameters of all that are not in owned.
func Partition(all, owned []*autodiff.Parameter) []*autodiff.Parameter {
	return optim.Partition(all, owned)
}

// Errors

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = optim.ErrConfiguration
	// ErrNumericalInstability matches every *NumericalInstabilityError.
	ErrNumericalInstability = optim.ErrNumericalInstability
	// ErrShapeMismatch matches every *ShapeMismatchError.
	ErrShapeMismatch = optim.ErrShapeMismatch
)

// ConfigurationError reports an invalid step size or group.
type ConfigurationError = optim.ConfigurationError

// NumericalInstabilityError reports a failed factorization during a step.
type NumericalInstabilityError = optim.NumericalInstabilityError

// ShapeMismatchError reports a gradient of the wrong shape.
type ShapeMismatchError = optim.ShapeMismatchError

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(
//	    model.HyperParameters(),
//	    optim.SGDConfig{
//	        LR:       0.01,
//	        Momentum: 0.9,
//	    },
//	)
func NewSGD(params []*autodiff.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer := optim.NewAdam(
//	    model.HyperParameters(),
//	    optim.AdamConfig{
//	        LR:    0.01,
//	        Betas: [2]float64{0.9, 0.999},
//	    },
//	)
func NewAdam(params []*autodiff.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}
