package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
)

// SGPR is sparse GP regression with Titsias' collapsed variational bound.
// Its ELBO is the value SVGP reaches with the optimal q for the same
// inducing inputs and hyperparameters.
type SGPR struct {
	Data       *Dataset
	Kernel     Kernel
	Likelihood *GaussianLikelihood
	Inducing   *autodiff.Parameter // M×D
	Jitter     float64
}

// NewSGPR creates a collapsed sparse GP with inducing inputs z. z is copied.
func NewSGPR(data *Dataset, z *mat.Dense, kernel Kernel, likelihood *GaussianLikelihood) *SGPR {
	return &SGPR{
		Data:       data,
		Kernel:     kernel,
		Likelihood: likelihood,
		Inducing:   autodiff.NewParameter("sgpr.inducing", mat.DenseCopyOf(z)),
		Jitter:     linalg.DefaultJitter,
	}
}

// Parameters returns the kernel, likelihood and inducing-input parameters.
func (s *SGPR) Parameters() []*autodiff.Parameter {
	params := append(s.Kernel.Parameters(), s.Likelihood.Parameters()...)
	return append(params, s.Inducing)
}

// ELBO returns the collapsed bound summed over output columns:
//
//	A = L⁻¹Kuf/σ,  B = AAᵀ + I,  c = L_B⁻¹Ay/σ
//	bound = -N/2 log 2πσ² - Σ log diag L_B - yᵀy/2σ² + cᵀc/2
//	        - tr(Kff)/2σ² + tr(AAᵀ)/2
func (s *SGPR) ELBO() (float64, error) {
	n := s.Data.Len()
	noise := s.Likelihood.Variance()
	sigma := math.Sqrt(noise)
	z := s.Inducing.Value()

	luu, err := priorFactor(s.Kernel, z, s.Jitter)
	if err != nil {
		return 0, fmt.Errorf("sgpr: %w", err)
	}
	kuf := s.Kernel.K(z, s.Data.X)
	a, err := linalg.SolveLower(luu, kuf)
	if err != nil {
		return 0, fmt.Errorf("sgpr: %w", err)
	}
	a.Scale(1/sigma, a)

	aat := linalg.OuterLower(a)
	traceAAT := mat.Trace(aat)
	b := mat.NewSymDense(aat.SymmetricDim(), nil)
	b.CopySym(aat)
	linalg.AddJitter(b, 1)
	lb, err := linalg.LowerCholesky(b)
	if err != nil {
		return 0, fmt.Errorf("sgpr: %w", err)
	}

	var ay mat.Dense
	ay.Mul(a, s.Data.Y)
	c, err := linalg.SolveLower(lb, &ay)
	if err != nil {
		return 0, fmt.Errorf("sgpr: %w", err)
	}
	c.Scale(1/sigma, c)

	traceKff := mat.Sum(s.Kernel.KDiag(s.Data.X))
	yty := mat.Norm(s.Data.Y, 2)
	cc := mat.Norm(c, 2)

	p := float64(s.Data.Outputs())
	perOutput := -0.5*float64(n)*math.Log(2*math.Pi*noise) - linalg.LogDiagSum(lb) -
		0.5*traceKff/noise + 0.5*traceAAT
	return p*perOutput - 0.5*yty*yty/noise + 0.5*cc*cc, nil
}

// Loss returns a closure evaluating -ELBO with central-difference gradients
// for every parameter.
func (s *SGPR) Loss() autodiff.Closure {
	eval := func(bool) (float64, autodiff.Gradients, error) {
		elbo, err := s.ELBO()
		return -elbo, autodiff.Gradients{}, err
	}
	return func() (float64, autodiff.Gradients, error) {
		return closureFor(eval, s.Parameters())
	}
}
