// Package variational implements the parameterizations of a multivariate
// Gaussian q = N(μ, Σ) used by natural-gradient optimization.
//
// Three coordinate systems are involved:
//   - model:        (μ, S) with Σ = S Sᵀ and S lower triangular
//   - natural:      η₁ = Σ⁻¹μ,  η₂ = -½Σ⁻¹
//   - expectation:  m₁ = μ,     m₂ = Σ + μμᵀ
//
// The Euclidean gradient of a loss with respect to the expectation parameters
// equals its natural gradient with respect to the natural parameters, which
// is what makes the optimizer cheap: no Fisher matrix is ever formed.
package variational

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/linalg"
)

// Natural holds a Gaussian in information form.
type Natural struct {
	Eta1 *mat.VecDense // Σ⁻¹μ
	Eta2 *mat.SymDense // -½Σ⁻¹, negative definite
}

// Expectation holds a Gaussian in moment form.
type Expectation struct {
	M1 *mat.VecDense // μ
	M2 *mat.SymDense // Σ + μμᵀ
}

// MeanSqrtToNatural converts (μ, S) to natural parameters.
func MeanSqrtToNatural(mean *mat.VecDense, sqrtCov *mat.TriDense) (Natural, error) {
	precision, err := linalg.InverseSPD(linalg.OuterLower(sqrtCov))
	if err != nil {
		return Natural{}, fmt.Errorf("natural parameters: %w", err)
	}
	eta1 := mat.NewVecDense(mean.Len(), nil)
	eta1.MulVec(precision, mean)

	eta2 := mat.NewSymDense(precision.SymmetricDim(), nil)
	eta2.ScaleSym(-0.5, precision)
	return Natural{Eta1: eta1, Eta2: eta2}, nil
}

// NaturalToMeanSqrt converts natural parameters to (μ, S).
//
// It fails with linalg.ErrNotPositiveDefinite when η₂ is not negative
// definite.
func NaturalToMeanSqrt(nat Natural) (*mat.VecDense, *mat.TriDense, error) {
	n := nat.Eta2.SymmetricDim()
	precision := mat.NewSymDense(n, nil)
	precision.ScaleSym(-2, nat.Eta2)

	chol, err := linalg.Cholesky(precision)
	if err != nil {
		return nil, nil, fmt.Errorf("eta2 is not negative definite: %w", err)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, nil, fmt.Errorf("invert precision: %w: %v", linalg.ErrNotPositiveDefinite, err)
	}
	var mean mat.VecDense
	mean.MulVec(&cov, nat.Eta1)

	sqrtCov, err := linalg.LowerCholesky(&cov)
	if err != nil {
		return nil, nil, fmt.Errorf("covariance from natural parameters: %w", err)
	}
	return &mean, sqrtCov, nil
}

// MeanSqrtToExpectation converts (μ, S) to expectation parameters.
func MeanSqrtToExpectation(mean *mat.VecDense, sqrtCov *mat.TriDense) Expectation {
	m2 := linalg.OuterLower(sqrtCov)
	m2.SymRankOne(m2, 1, mean)
	return Expectation{M1: mat.VecDenseCopyOf(mean), M2: m2}
}

// ExpectationToMeanSqrt converts expectation parameters to (μ, S).
func ExpectationToMeanSqrt(e Expectation) (*mat.VecDense, *mat.TriDense, error) {
	cov := mat.NewSymDense(e.M2.SymmetricDim(), nil)
	cov.SymRankOne(e.M2, -1, e.M1)
	sqrtCov, err := linalg.LowerCholesky(cov)
	if err != nil {
		return nil, nil, fmt.Errorf("covariance from expectation parameters: %w", err)
	}
	return mat.VecDenseCopyOf(e.M1), sqrtCov, nil
}

// NaturalToExpectation converts natural parameters to expectation parameters.
func NaturalToExpectation(nat Natural) (Expectation, error) {
	mean, sqrtCov, err := NaturalToMeanSqrt(nat)
	if err != nil {
		return Expectation{}, err
	}
	return MeanSqrtToExpectation(mean, sqrtCov), nil
}

// ExpectationToNatural converts expectation parameters to natural parameters.
func ExpectationToNatural(e Expectation) (Natural, error) {
	mean, sqrtCov, err := ExpectationToMeanSqrt(e)
	if err != nil {
		return Natural{}, err
	}
	return MeanSqrtToNatural(mean, sqrtCov)
}
