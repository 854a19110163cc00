// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package variational provides Gaussian variational distributions and the
// parameterizations natural-gradient steps are taken in.
//
// A Gaussian q = N(μ, SSᵀ) is stored by its mean and lower-triangular square
// root. It has three coordinate systems:
//   - model: (μ, S)
//   - natural: η₁ = Σ⁻¹μ, η₂ = -½Σ⁻¹
//   - expectation: m₁ = μ, m₂ = Σ + μμᵀ
//
// A Transform chooses where the optimizer steps: NaturalTransform (the
// default) steps in natural coordinates, MeanVarSqrtTransform steps directly
// in (μ, S).
//
// Example:
//
//	q := variational.NewGaussian("q", 20, 1)
//	q.Transform = variational.MeanVarSqrtTransform{}
//
//	mean, sqrtCov := q.Channel(0)
//	nat, err := variational.MeanSqrtToNatural(mean, sqrtCov)
package variational
