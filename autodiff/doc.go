// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff defines how models hand gradients to optimizers.
//
// A model exposes its state as Parameters and supplies a Closure that
// evaluates the loss and returns gradients keyed by parameter. Models without
// analytic gradients for some parameters can fill them in with Numerical.
//
// Example:
//
//	import "github.com/born-ml/natgrad/autodiff"
//
//	w := autodiff.NewScalar("w", 1.0)
//	closure := func() (float64, autodiff.Gradients, error) {
//	    loss := func() (float64, error) {
//	        v := w.Scalar() - 3
//	        return v * v, nil
//	    }
//	    l, _ := loss()
//	    grads, err := autodiff.Numerical(loss, []*autodiff.Parameter{w}, 0)
//	    return l, grads, err
//	}
package autodiff
