package variational

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff/ops"
	"github.com/born-ml/natgrad/internal/linalg"
)

// ErrNotLowerTriangular is returned when a square-root covariance has
// non-zero entries above its diagonal.
var ErrNotLowerTriangular = errors.New("square-root covariance is not lower triangular")

// Transform maps the model parameters (μ, S) of one Gaussian to the
// coordinates a natural-gradient step is taken in, and back.
//
// Forward and Backward are mutually inverse up to floating-point tolerance.
// Tangent pushes a direction expressed in natural coordinates at nat into the
// transform's own coordinates; the optimizer uses it to express the natural
// gradient, which is always computed in natural coordinates.
type Transform interface {
	// Name identifies the transform in logs and errors.
	Name() string

	// Forward maps (μ, S) to the transform's coordinates (a, b).
	Forward(mean *mat.VecDense, sqrtCov *mat.TriDense) (*mat.VecDense, *mat.Dense, error)

	// Backward maps (a, b) back to (μ, S).
	Backward(a *mat.VecDense, b mat.Matrix) (*mat.VecDense, *mat.TriDense, error)

	// Tangent maps the natural-coordinate direction (d1, d2) at nat to a
	// direction in the transform's coordinates.
	Tangent(nat Natural, d1 *mat.VecDense, d2 *mat.SymDense) (*mat.VecDense, *mat.Dense, error)
}

// NaturalTransform is the canonical transform: (a, b) = (η₁, η₂).
//
// A step in these coordinates is the plain natural-gradient update
// η ← η - γ ∇ₘloss.
type NaturalTransform struct{}

// Name implements Transform.
func (NaturalTransform) Name() string { return "natural" }

// Forward implements Transform.
func (NaturalTransform) Forward(mean *mat.VecDense, sqrtCov *mat.TriDense) (*mat.VecDense, *mat.Dense, error) {
	nat, err := MeanSqrtToNatural(mean, sqrtCov)
	if err != nil {
		return nil, nil, err
	}
	return nat.Eta1, mat.DenseCopyOf(nat.Eta2), nil
}

// Backward implements Transform.
//
// b is symmetrized before use; the resulting S has a positive diagonal.
func (NaturalTransform) Backward(a *mat.VecDense, b mat.Matrix) (*mat.VecDense, *mat.TriDense, error) {
	eta2, err := linalg.Symmetrize(b)
	if err != nil {
		return nil, nil, err
	}
	if eta2.SymmetricDim() != a.Len() {
		return nil, nil, fmt.Errorf("natural backward: eta1 has length %d, eta2 is %d×%d", a.Len(), eta2.SymmetricDim(), eta2.SymmetricDim())
	}
	return NaturalToMeanSqrt(Natural{Eta1: a, Eta2: eta2})
}

// Tangent implements Transform. Natural coordinates need no push-forward.
func (NaturalTransform) Tangent(_ Natural, d1 *mat.VecDense, d2 *mat.SymDense) (*mat.VecDense, *mat.Dense, error) {
	return mat.VecDenseCopyOf(d1), mat.DenseCopyOf(d2), nil
}

// MeanVarSqrtTransform is the "Xi" transform: (a, b) = (μ, S).
//
// The natural gradient is pushed forward through η ↦ (μ, S) and the step is
// taken directly in model coordinates, so no information-form matrices are
// reconstructed after the update. Its first-order behaviour matches
// NaturalTransform; for finite γ the trajectories differ.
//
// γ = 1 is not an exact step under this transform. A large γ can succeed
// and still leave the objective far worse than before, so use a small γ.
type MeanVarSqrtTransform struct{}

// Name implements Transform.
func (MeanVarSqrtTransform) Name() string { return "xi" }

// Forward implements Transform.
func (MeanVarSqrtTransform) Forward(mean *mat.VecDense, sqrtCov *mat.TriDense) (*mat.VecDense, *mat.Dense, error) {
	return mat.VecDenseCopyOf(mean), mat.DenseCopyOf(sqrtCov), nil
}

// Backward implements Transform.
//
// b must be lower triangular. A negative diagonal entry is normalized by
// negating its column, which leaves S Sᵀ unchanged; a zero or non-finite
// diagonal means S Sᵀ is not positive definite.
func (MeanVarSqrtTransform) Backward(a *mat.VecDense, b mat.Matrix) (*mat.VecDense, *mat.TriDense, error) {
	n, c := b.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("xi backward: %w", linalg.ErrNotSquare)
	}
	if n != a.Len() {
		return nil, nil, fmt.Errorf("xi backward: mean has length %d, sqrt covariance is %d×%d", a.Len(), n, n)
	}
	if !linalg.IsLowerTriangular(b, 0) {
		return nil, nil, fmt.Errorf("xi backward: %w", ErrNotLowerTriangular)
	}
	if !linalg.IsFinite(a) || !linalg.IsFinite(b) {
		return nil, nil, fmt.Errorf("xi backward: %w", linalg.ErrNonFinite)
	}

	sqrtCov, err := NormalizeSqrt(linalg.Tril(b))
	if err != nil {
		return nil, nil, fmt.Errorf("xi backward: %w", err)
	}
	return mat.VecDenseCopyOf(a), sqrtCov, nil
}

// Tangent implements Transform as the Jacobian-vector product of η ↦ (μ, S):
//
//	dΣ = 2 Σ d₂ Σ
//	dμ = dΣ η₁ + Σ d₁
//	dS = S Φ(S⁻¹ dΣ S⁻ᵀ)
func (MeanVarSqrtTransform) Tangent(nat Natural, d1 *mat.VecDense, d2 *mat.SymDense) (*mat.VecDense, *mat.Dense, error) {
	_, sqrtCov, err := NaturalToMeanSqrt(nat)
	if err != nil {
		return nil, nil, fmt.Errorf("xi tangent: %w", err)
	}
	cov := linalg.OuterLower(sqrtCov)

	var tmp, scaled mat.Dense
	tmp.Mul(d2, cov)
	scaled.Mul(cov, &tmp)
	scaled.Scale(2, &scaled)
	dCov, err := linalg.Symmetrize(&scaled)
	if err != nil {
		return nil, nil, err
	}

	dMean := mat.NewVecDense(d1.Len(), nil)
	dMean.MulVec(dCov, nat.Eta1)
	var covD1 mat.VecDense
	covD1.MulVec(cov, d1)
	dMean.AddVec(dMean, &covD1)

	dSqrt, err := ops.CholeskyJVP(sqrtCov, dCov)
	if err != nil {
		return nil, nil, fmt.Errorf("xi tangent: %w", err)
	}
	return dMean, mat.DenseCopyOf(dSqrt), nil
}

// NormalizeSqrt returns a copy of the lower-triangular s whose columns are
// negated where needed to make the diagonal positive. The product S Sᵀ is
// unchanged. A zero or NaN diagonal entry is an error.
func NormalizeSqrt(s *mat.TriDense) (*mat.TriDense, error) {
	n, _ := s.Triangle()
	out := mat.NewTriDense(n, mat.Lower, nil)
	out.Copy(s)
	for j := 0; j < n; j++ {
		d := out.At(j, j)
		if d == 0 || math.IsNaN(d) {
			return nil, fmt.Errorf("zero diagonal at %d: %w", j, linalg.ErrNotPositiveDefinite)
		}
		if d < 0 {
			for i := j; i < n; i++ {
				out.SetTri(i, j, -out.At(i, j))
			}
		}
	}
	return out, nil
}

// Canonical returns t, or NaturalTransform when t is nil.
func Canonical(t Transform) Transform {
	if t == nil {
		return NaturalTransform{}
	}
	return t
}
