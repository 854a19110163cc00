// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
)

// Parameter is a named float64 matrix updated in place by an optimizer.
type Parameter = autodiff.Parameter

// Gradients maps a parameter to the gradient of the loss with respect to it.
type Gradients = autodiff.Gradients

// Closure evaluates the loss and its gradients.
type Closure = autodiff.Closure

// DefaultStep is the default central-difference step.
const DefaultStep = autodiff.DefaultStep

// NewParameter creates a parameter that owns value.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return autodiff.NewParameter(name, value)
}

// NewScalar creates a 1×1 parameter.
func NewScalar(name string, v float64) *Parameter {
	return autodiff.NewScalar(name, v)
}

// Numerical computes central-difference gradients of f with respect to params.
func Numerical(f func() (float64, error), params []*Parameter, eps float64) (Gradients, error) {
	return autodiff.Numerical(f, params, eps)
}

// Check returns the largest relative error between the gradients returned by
// closure and central differences.
func Check(closure Closure, params []*Parameter, eps float64) (float64, error) {
	return autodiff.Check(closure, params, eps)
}
