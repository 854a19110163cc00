package gp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
	"github.com/born-ml/natgrad/internal/variational"
)

// VGP is a whitened variational GP with one inducing variable per training
// input:
//
//	f = L v,  L Lᵀ = k(X, X) + jitter·I,  q(v[:, p]) = N(μₚ, SₚSₚᵀ)
//
// With a Gaussian likelihood the optimal q recovers GPR exactly, and one
// natural-gradient step with γ = 1 reaches it from any starting point.
type VGP struct {
	Data       *Dataset
	Kernel     Kernel
	Likelihood *GaussianLikelihood
	Jitter     float64

	q *variational.Gaussian
}

// NewVGP creates a VGP with q initialized to the prior.
func NewVGP(data *Dataset, kernel Kernel, likelihood *GaussianLikelihood) *VGP {
	return &VGP{
		Data:       data,
		Kernel:     kernel,
		Likelihood: likelihood,
		Jitter:     linalg.DefaultJitter,
		q:          variational.NewGaussian("vgp.q", data.Len(), data.Outputs()),
	}
}

// Q returns the variational distribution over the whitened values.
func (v *VGP) Q() *variational.Gaussian {
	return v.q
}

// HyperParameters returns the kernel and likelihood parameters.
func (v *VGP) HyperParameters() []*autodiff.Parameter {
	return append(v.Kernel.Parameters(), v.Likelihood.Parameters()...)
}

// Parameters returns the parameters of q followed by the hyperparameters.
func (v *VGP) Parameters() []*autodiff.Parameter {
	return append(v.q.Parameters(), v.HyperParameters()...)
}

// ELBO returns the evidence lower bound.
func (v *VGP) ELBO() (float64, error) {
	loss, _, err := v.evaluate(false)
	return -loss, err
}

// Loss returns a closure evaluating -ELBO with analytic gradients for q and
// central-difference gradients for hyper, which may be nil.
func (v *VGP) Loss(hyper []*autodiff.Parameter) autodiff.Closure {
	return func() (float64, autodiff.Gradients, error) {
		return closureFor(v.evaluate, hyper)
	}
}

func (v *VGP) evaluate(withGrads bool) (float64, autodiff.Gradients, error) {
	lk, err := priorFactor(v.Kernel, v.Data.X, v.Jitter)
	if err != nil {
		return 0, nil, fmt.Errorf("vgp: %w", err)
	}
	noise := v.Likelihood.Variance()
	n := v.Data.Len()

	var grads autodiff.Gradients
	var gradMean *mat.Dense
	if withGrads {
		gradMean = mat.NewDense(n, v.q.Channels(), nil)
		grads = autodiff.Gradients{v.q.Mean: gradMean}
	}

	var elbo float64
	for p := 0; p < v.q.Channels(); p++ {
		mean, s := v.q.Channel(p)
		y := v.Data.Y.ColView(p)

		// Marginals of f = L v.
		var fm mat.VecDense
		fm.MulVec(lk, mean)
		var ls mat.Dense
		ls.Mul(lk, s)

		for i := 0; i < n; i++ {
			elbo += v.Likelihood.VariationalExpectation(y.AtVec(i), fm.AtVec(i), floats.Dot(ls.RawRowView(i), ls.RawRowView(i)))
		}
		elbo -= whitenedKL(mean, s)

		if !withGrads {
			continue
		}
		// ∂(-ELBO)/∂μ = -Lᵀ(y - Lμ)/σ² + μ
		var resid, gm mat.VecDense
		resid.SubVec(y, &fm)
		gm.MulVec(lk.T(), &resid)
		gm.ScaleVec(-1/noise, &gm)

		// ∂(-ELBO)/∂S = tril(LᵀLS)/σ² + S - diag(1/Sᵢᵢ)
		var ltls mat.Dense
		ltls.Mul(lk.T(), &ls)
		gs := mat.DenseCopyOf(linalg.Tril(&ltls))
		gs.Scale(1/noise, gs)

		addWhitenedKLGrad(&gm, gs, mean, s)
		gradMean.SetCol(p, gm.RawVector().Data)
		grads[v.q.SqrtCov[p]] = gs
	}
	return -elbo, grads, nil
}
