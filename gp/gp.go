// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/gp"
)

// Kernel is a covariance function on row-vector inputs.
type Kernel = gp.Kernel

// SquaredExponential is the RBF kernel with log-space hyperparameters.
type SquaredExponential = gp.SquaredExponential

// GaussianLikelihood is a Gaussian observation model.
type GaussianLikelihood = gp.GaussianLikelihood

// GPR is exact Gaussian-process regression.
type GPR = gp.GPR

// VGP is a whitened variational GP over the training inputs.
type VGP = gp.VGP

// SGPR is sparse regression with the collapsed bound.
type SGPR = gp.SGPR

// SVGP is a whitened sparse variational GP.
type SVGP = gp.SVGP

// Dataset holds inputs and targets.
type Dataset = gp.Dataset

// Batcher yields the data for one loss evaluation.
type Batcher = gp.Batcher

// Minibatches iterates over a dataset in shuffled batches.
type Minibatches = gp.Minibatches

// ErrEmptyDataset is returned for datasets or batches with no rows.
var ErrEmptyDataset = gp.ErrEmptyDataset

// NewSquaredExponential creates an RBF kernel.
func NewSquaredExponential(variance, lengthscale float64) *SquaredExponential {
	return gp.NewSquaredExponential(variance, lengthscale)
}

// NewGaussianLikelihood creates a Gaussian likelihood.
func NewGaussianLikelihood(variance float64) *GaussianLikelihood {
	return gp.NewGaussianLikelihood(variance)
}

// NewGPR creates an exact GP regression model.
func NewGPR(data *Dataset, kernel Kernel, likelihood *GaussianLikelihood) *GPR {
	return gp.NewGPR(data, kernel, likelihood)
}

// NewVGP creates a VGP with q at the prior.
func NewVGP(data *Dataset, kernel Kernel, likelihood *GaussianLikelihood) *VGP {
	return gp.NewVGP(data, kernel, likelihood)
}

// NewSGPR creates a collapsed sparse GP with inducing inputs z.
func NewSGPR(data *Dataset, z *mat.Dense, kernel Kernel, likelihood *GaussianLikelihood) *SGPR {
	return gp.NewSGPR(data, z, kernel, likelihood)
}

// NewSVGP creates an SVGP with inducing inputs z.
func NewSVGP(z *mat.Dense, outputs, numData int, kernel Kernel, likelihood *GaussianLikelihood) *SVGP {
	return gp.NewSVGP(z, outputs, numData, kernel, likelihood)
}

// NewDataset checks and wraps inputs x and targets y.
func NewDataset(x, y *mat.Dense) (*Dataset, error) {
	return gp.NewDataset(x, y)
}

// NewSynthetic draws a reproducible regression dataset.
func NewSynthetic(n, d int, seed int64) *Dataset {
	return gp.NewSynthetic(n, d, seed)
}

// NewMinibatches creates a shuffled minibatch iterator.
func NewMinibatches(data *Dataset, size int, seed int64) (*Minibatches, error) {
	return gp.NewMinibatches(data, size, seed)
}

// FullBatch returns a Batcher that always yields all of data.
func FullBatch(data *Dataset) Batcher {
	return gp.FullBatch(data)
}
