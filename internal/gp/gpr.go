package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
)

// GPR is exact Gaussian-process regression with a Gaussian likelihood.
type GPR struct {
	Data       *Dataset
	Kernel     Kernel
	Likelihood *GaussianLikelihood
	Jitter     float64
}

// NewGPR creates an exact GP regression model.
func NewGPR(data *Dataset, kernel Kernel, likelihood *GaussianLikelihood) *GPR {
	return &GPR{Data: data, Kernel: kernel, Likelihood: likelihood, Jitter: linalg.DefaultJitter}
}

// Parameters returns the kernel and likelihood hyperparameters.
func (g *GPR) Parameters() []*autodiff.Parameter {
	return append(g.Kernel.Parameters(), g.Likelihood.Parameters()...)
}

// LogMarginalLikelihood returns log p(Y) summed over output columns, with
// prior covariance k(X, X) + jitter·I.
func (g *GPR) LogMarginalLikelihood() (float64, error) {
	n := g.Data.Len()
	k := g.Kernel.KSym(g.Data.X)
	linalg.AddJitter(k, g.Jitter+g.Likelihood.Variance())
	l, err := linalg.LowerCholesky(k)
	if err != nil {
		return 0, fmt.Errorf("gpr: %w", err)
	}

	alpha, err := linalg.SolveLower(l, g.Data.Y)
	if err != nil {
		return 0, fmt.Errorf("gpr: %w", err)
	}
	p := g.Data.Outputs()
	fit := floats.Dot(alpha.RawMatrix().Data, alpha.RawMatrix().Data)
	return -0.5*fit - float64(p)*(linalg.LogDiagSum(l)+0.5*float64(n)*math.Log(2*math.Pi)), nil
}

// Loss returns a closure evaluating -log p(Y) with central-difference
// gradients for every hyperparameter.
func (g *GPR) Loss() autodiff.Closure {
	eval := func(bool) (float64, autodiff.Gradients, error) {
		lml, err := g.LogMarginalLikelihood()
		return -lml, autodiff.Gradients{}, err
	}
	return func() (float64, autodiff.Gradients, error) {
		return closureFor(eval, g.Parameters())
	}
}
