// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gp provides Gaussian-process models with analytic variational
// gradients.
//
// GPR and SGPR have closed-form objectives. VGP and SVGP carry a
// variational.Gaussian trained by the natural-gradient optimizer; one step
// with γ = 1 on the full data brings them to the GPR and SGPR objectives
// respectively.
//
// Example:
//
//	data := gp.NewSynthetic(100, 2, 1)
//	z := data.Subset([]int{0, 10, 20, 30, 40}).X
//	model := gp.NewSVGP(z, 1, data.Len(), gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.1))
//
//	batches, err := gp.NewMinibatches(data, 32, 1)
//	closure := model.Loss(batches, nil)
package gp
