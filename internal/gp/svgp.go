package gp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
	"github.com/born-ml/natgrad/internal/variational"
)

// SVGP is a whitened sparse variational GP with M inducing inputs Z:
//
//	u = L v,  L Lᵀ = k(Z, Z) + jitter·I,  q(v[:, p]) = N(μₚ, SₚSₚᵀ)
//
// The data term of its ELBO is estimated from a batch and scaled by N/B.
type SVGP struct {
	Kernel     Kernel
	Likelihood *GaussianLikelihood
	Inducing   *autodiff.Parameter // M×D
	NumData    int
	Jitter     float64

	q *variational.Gaussian
}

// NewSVGP creates an SVGP with inducing inputs z (copied), outputs output
// columns and numData training points.
func NewSVGP(z *mat.Dense, outputs, numData int, kernel Kernel, likelihood *GaussianLikelihood) *SVGP {
	m, _ := z.Dims()
	return &SVGP{
		Kernel:     kernel,
		Likelihood: likelihood,
		Inducing:   autodiff.NewParameter("svgp.inducing", mat.DenseCopyOf(z)),
		NumData:    numData,
		Jitter:     linalg.DefaultJitter,
		q:          variational.NewGaussian("svgp.q", m, outputs),
	}
}

// Q returns the variational distribution over the whitened inducing values.
func (s *SVGP) Q() *variational.Gaussian {
	return s.q
}

// HyperParameters returns the kernel, likelihood and inducing-input
// parameters.
func (s *SVGP) HyperParameters() []*autodiff.Parameter {
	params := append(s.Kernel.Parameters(), s.Likelihood.Parameters()...)
	return append(params, s.Inducing)
}

// Parameters returns the parameters of q followed by the hyperparameters.
func (s *SVGP) Parameters() []*autodiff.Parameter {
	return append(s.q.Parameters(), s.HyperParameters()...)
}

// ELBO returns the bound estimated on batch.
func (s *SVGP) ELBO(batch *Dataset) (float64, error) {
	loss, _, err := s.evaluate(batch, false)
	return -loss, err
}

// Loss returns a closure that draws one batch per call and evaluates -ELBO
// on it, with analytic gradients for q and central-difference gradients for
// hyper, which may be nil.
func (s *SVGP) Loss(batches Batcher, hyper []*autodiff.Parameter) autodiff.Closure {
	return func() (float64, autodiff.Gradients, error) {
		batch := batches.Next()
		return closureFor(func(withGrads bool) (float64, autodiff.Gradients, error) {
			return s.evaluate(batch, withGrads)
		}, hyper)
	}
}

// projection returns A = L⁻¹k(Z, X) and the prior variances k(xᵢ, xᵢ).
func (s *SVGP) projection(x mat.Matrix) (*mat.Dense, *mat.VecDense, error) {
	z := s.Inducing.Value()
	luu, err := priorFactor(s.Kernel, z, s.Jitter)
	if err != nil {
		return nil, nil, err
	}
	a, err := linalg.SolveLower(luu, s.Kernel.K(z, x))
	if err != nil {
		return nil, nil, err
	}
	return a, s.Kernel.KDiag(x), nil
}

// Predict returns the marginal mean and variance of f at the rows of x,
// one column per output.
func (s *SVGP) Predict(x mat.Matrix) (mean, variance *mat.Dense, err error) {
	a, kdiag, err := s.projection(x)
	if err != nil {
		return nil, nil, fmt.Errorf("svgp predict: %w", err)
	}
	n, _ := x.Dims()
	mean = mat.NewDense(n, s.q.Channels(), nil)
	variance = mat.NewDense(n, s.q.Channels(), nil)
	for p := 0; p < s.q.Channels(); p++ {
		fm, fv := s.marginals(a, kdiag, p)
		mean.SetCol(p, fm.RawVector().Data)
		variance.SetCol(p, fv)
	}
	return mean, variance, nil
}

// marginals returns the mean Aᵀμ and variance k - ‖a‖² + ‖Sᵀa‖² of f for
// channel p.
func (s *SVGP) marginals(a *mat.Dense, kdiag *mat.VecDense, p int) (*mat.VecDense, []float64) {
	mean, sqrt := s.q.Channel(p)
	_, n := a.Dims()

	fm := mat.NewVecDense(n, nil)
	fm.MulVec(a.T(), mean)

	var sta mat.Dense
	sta.Mul(sqrt.T(), a)
	fv := make([]float64, n)
	for i := 0; i < n; i++ {
		ai := mat.Col(nil, i, a)
		si := mat.Col(nil, i, &sta)
		fv[i] = kdiag.AtVec(i) - floats.Dot(ai, ai) + floats.Dot(si, si)
	}
	return fm, fv
}

func (s *SVGP) evaluate(batch *Dataset, withGrads bool) (float64, autodiff.Gradients, error) {
	if batch == nil || batch.Len() == 0 {
		return 0, nil, ErrEmptyDataset
	}
	a, kdiag, err := s.projection(batch.X)
	if err != nil {
		return 0, nil, fmt.Errorf("svgp: %w", err)
	}
	noise := s.Likelihood.Variance()
	scale := float64(s.NumData) / float64(batch.Len())
	m := s.q.Dim()

	var grads autodiff.Gradients
	var gradMean *mat.Dense
	var aat *mat.SymDense
	if withGrads {
		gradMean = mat.NewDense(m, s.q.Channels(), nil)
		grads = autodiff.Gradients{s.q.Mean: gradMean}
		aat = linalg.OuterLower(a)
	}

	var elbo float64
	for p := 0; p < s.q.Channels(); p++ {
		y := batch.Y.ColView(p)
		fm, fv := s.marginals(a, kdiag, p)

		var data float64
		for i, v := range fv {
			data += s.Likelihood.VariationalExpectation(y.AtVec(i), fm.AtVec(i), v)
		}
		mean, sqrt := s.q.Channel(p)
		elbo += scale*data - whitenedKL(mean, sqrt)

		if !withGrads {
			continue
		}
		// ∂(-ELBO)/∂μ = -(N/B) A(y - Aᵀμ)/σ² + μ
		var resid, gm mat.VecDense
		resid.SubVec(y, fm)
		gm.MulVec(a, &resid)
		gm.ScaleVec(-scale/noise, &gm)

		// ∂(-ELBO)/∂S = (N/B) tril(AAᵀS)/σ² + S - diag(1/Sᵢᵢ)
		var aats mat.Dense
		aats.Mul(aat, sqrt)
		gs := mat.DenseCopyOf(linalg.Tril(&aats))
		gs.Scale(scale/noise, gs)

		addWhitenedKLGrad(&gm, gs, mean, sqrt)
		gradMean.SetCol(p, gm.RawVector().Data)
		grads[s.q.SqrtCov[p]] = gs
	}
	return -elbo, grads, nil
}
