package gp

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
)

// evaluator computes the loss of a model on fixed data, with analytic
// gradients for q when withGrads is set.
type evaluator func(withGrads bool) (float64, autodiff.Gradients, error)

// closureFor wraps eval into a closure that also returns central-difference
// gradients for hyper, computed on the same data.
func closureFor(eval evaluator, hyper []*autodiff.Parameter) (float64, autodiff.Gradients, error) {
	loss, grads, err := eval(true)
	if err != nil {
		return 0, nil, err
	}
	if len(hyper) == 0 {
		return loss, grads, nil
	}
	hg, err := autodiff.Numerical(func() (float64, error) {
		l, _, err := eval(false)
		return l, err
	}, hyper, autodiff.DefaultStep)
	if err != nil {
		return 0, nil, err
	}
	if err := grads.Merge(hg); err != nil {
		return 0, nil, err
	}
	return loss, grads, nil
}

// whitenedKL returns KL(N(μ, SSᵀ) ‖ N(0, I)).
func whitenedKL(mean *mat.VecDense, s *mat.TriDense) float64 {
	n := mean.Len()
	frob := mat.Norm(s, 2)
	return 0.5*(frob*frob+mat.Dot(mean, mean)-float64(n)) - linalg.LogDiagSum(s)
}

// addWhitenedKLGrad adds ∂KL/∂μ = μ to gradMean and ∂KL/∂S = S - diag(1/Sᵢᵢ)
// to gradSqrt.
func addWhitenedKLGrad(gradMean *mat.VecDense, gradSqrt *mat.Dense, mean *mat.VecDense, s *mat.TriDense) {
	gradMean.AddVec(gradMean, mean)
	gradSqrt.Add(gradSqrt, s)
	n := mean.Len()
	for i := 0; i < n; i++ {
		gradSqrt.Set(i, i, gradSqrt.At(i, i)-1/s.At(i, i))
	}
}

// priorFactor returns the lower Cholesky factor of k(x, x) + jitter·I.
func priorFactor(kernel Kernel, x mat.Matrix, jitter float64) (*mat.TriDense, error) {
	k := kernel.KSym(x)
	linalg.AddJitter(k, jitter)
	return linalg.LowerCholesky(k)
}
