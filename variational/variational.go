// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package variational

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/variational"
)

// Gaussian is a batched variational distribution with one channel per output.
type Gaussian = variational.Gaussian

// Natural holds the natural parameters of one channel.
type Natural = variational.Natural

// Expectation holds the expectation parameters of one channel.
type Expectation = variational.Expectation

// Transform maps (μ, S) to the coordinates a natural-gradient step is taken in.
type Transform = variational.Transform

// NaturalTransform steps in natural coordinates.
type NaturalTransform = variational.NaturalTransform

// MeanVarSqrtTransform steps in (μ, S) coordinates.
type MeanVarSqrtTransform = variational.MeanVarSqrtTransform

// NewGaussian creates an m-dimensional Gaussian with l channels at zero mean
// and identity covariance.
func NewGaussian(name string, m, l int) *Gaussian {
	return variational.NewGaussian(name, m, l)
}

// MeanSqrtToNatural converts (μ, S) to natural parameters.
func MeanSqrtToNatural(mean *mat.VecDense, sqrtCov *mat.TriDense) (Natural, error) {
	return variational.MeanSqrtToNatural(mean, sqrtCov)
}

// NaturalToMeanSqrt converts natural parameters to (μ, S).
func NaturalToMeanSqrt(nat Natural) (*mat.VecDense, *mat.TriDense, error) {
	return variational.NaturalToMeanSqrt(nat)
}

// MeanSqrtToExpectation converts (μ, S) to expectation parameters.
func MeanSqrtToExpectation(mean *mat.VecDense, sqrtCov *mat.TriDense) Expectation {
	return variational.MeanSqrtToExpectation(mean, sqrtCov)
}

// ExpectationToMeanSqrt converts expectation parameters to (μ, S).
func ExpectationToMeanSqrt(e Expectation) (*mat.VecDense, *mat.TriDense, error) {
	return variational.ExpectationToMeanSqrt(e)
}

// NaturalToExpectation converts natural parameters to expectation parameters.
func NaturalToExpectation(nat Natural) (Expectation, error) {
	return variational.NaturalToExpectation(nat)
}

// ExpectationToNatural converts expectation parameters to natural parameters.
func ExpectationToNatural(e Expectation) (Natural, error) {
	return variational.ExpectationToNatural(e)
}

// ExpectationGradient converts ∂loss/∂μ and ∂loss/∂S into the gradient with
// respect to the expectation parameters.
func ExpectationGradient(mean *mat.VecDense, sqrtCov *mat.TriDense, gradMean mat.Vector, gradSqrt mat.Matrix) (*mat.VecDense, *mat.SymDense, error) {
	return variational.ExpectationGradient(mean, sqrtCov, gradMean, gradSqrt)
}
