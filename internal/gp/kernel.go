// Package gp implements the Gaussian-process models used to exercise the
// natural-gradient optimizer.
//
// Models:
//   - GPR: exact regression, the reference optimum for VGP
//   - VGP: whitened variational GP over the training inputs
//   - SGPR: Titsias' collapsed sparse bound, the reference optimum for SVGP
//   - SVGP: whitened sparse variational GP with minibatch losses
//
// Variational models expose their q as a *variational.Gaussian and hand the
// optimizers a closure with analytic gradients for q and central-difference
// gradients for the requested hyperparameters.
package gp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/parallel"
)

// Kernel is a covariance function on row-vector inputs.
type Kernel interface {
	// K returns the cross-covariance between the rows of x and z.
	K(x, z mat.Matrix) *mat.Dense

	// KSym returns the covariance of the rows of x with themselves.
	KSym(x mat.Matrix) *mat.SymDense

	// KDiag returns the diagonal of KSym(x).
	KDiag(x mat.Matrix) *mat.VecDense

	// Parameters returns the kernel hyperparameters.
	Parameters() []*autodiff.Parameter
}

// SquaredExponential is the RBF kernel
//
//	k(x, z) = σ² exp(-‖x - z‖² / 2ℓ²)
//
// with σ² and ℓ stored in log space.
type SquaredExponential struct {
	LogVariance    *autodiff.Parameter
	LogLengthscale *autodiff.Parameter

	// Parallel controls row fan-out when building covariance matrices.
	Parallel parallel.Config
}

// NewSquaredExponential creates an RBF kernel.
func NewSquaredExponential(variance, lengthscale float64) *SquaredExponential {
	return &SquaredExponential{
		LogVariance:    autodiff.NewScalar("kernel.log_variance", math.Log(variance)),
		LogLengthscale: autodiff.NewScalar("kernel.log_lengthscale", math.Log(lengthscale)),
		Parallel:       parallel.DefaultConfig(),
	}
}

// Variance returns σ².
func (k *SquaredExponential) Variance() float64 {
	return math.Exp(k.LogVariance.Scalar())
}

// Lengthscale returns ℓ.
func (k *SquaredExponential) Lengthscale() float64 {
	return math.Exp(k.LogLengthscale.Scalar())
}

// Parameters implements Kernel.
func (k *SquaredExponential) Parameters() []*autodiff.Parameter {
	return []*autodiff.Parameter{k.LogVariance, k.LogLengthscale}
}

func (k *SquaredExponential) eval(a, b []float64, variance, scale float64) float64 {
	d := floats.Distance(a, b, 2)
	return variance * math.Exp(-0.5*d*d*scale)
}

// K implements Kernel.
func (k *SquaredExponential) K(x, z mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	m, _ := z.Dims()
	variance, ell := k.Variance(), k.Lengthscale()
	scale := 1 / (ell * ell)

	zRows := rows(z)
	out := mat.NewDense(n, m, nil)
	parallel.For(n, func(i int) {
		xi := mat.Row(nil, i, x)
		row := out.RawRowView(i)
		for j, zj := range zRows {
			row[j] = k.eval(xi, zj, variance, scale)
		}
	}, k.Parallel)
	return out
}

// KSym implements Kernel.
func (k *SquaredExponential) KSym(x mat.Matrix) *mat.SymDense {
	n, _ := x.Dims()
	variance, ell := k.Variance(), k.Lengthscale()
	scale := 1 / (ell * ell)

	xRows := rows(x)
	data := make([]float64, n*n)
	parallel.For(n, func(i int) {
		for j := 0; j <= i; j++ {
			v := k.eval(xRows[i], xRows[j], variance, scale)
			data[i*n+j] = v
			data[j*n+i] = v
		}
	}, k.Parallel)
	return mat.NewSymDense(n, data)
}

// KDiag implements Kernel.
func (k *SquaredExponential) KDiag(x mat.Matrix) *mat.VecDense {
	n, _ := x.Dims()
	diag := make([]float64, n)
	floats.AddConst(k.Variance(), diag)
	return mat.NewVecDense(n, diag)
}

func rows(a mat.Matrix) [][]float64 {
	r, _ := a.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, a)
	}
	return out
}
