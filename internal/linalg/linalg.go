// Package linalg provides the dense linear algebra used by the natural-gradient
// optimizer: Cholesky factorization with an explicit failure signal, triangular
// solves, SPD inversion, jitter injection and a few triangular helpers.
//
// All routines are thin wrappers around gonum/mat. They never silently repair
// a matrix: a factorization that fails returns ErrNotPositiveDefinite.
package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultJitter is the diagonal jitter added to prior covariance matrices.
const DefaultJitter = 1e-6

var (
	// ErrNotPositiveDefinite is returned when a Cholesky factorization fails.
	ErrNotPositiveDefinite = errors.New("matrix is not positive definite")

	// ErrNonFinite is returned when a matrix contains NaN or Inf entries.
	ErrNonFinite = errors.New("matrix contains non-finite values")

	// ErrNotSquare is returned when a square matrix is required.
	ErrNotSquare = errors.New("matrix is not square")
)

// Cholesky factorizes the symmetric matrix a.
func Cholesky(a mat.Symmetric) (*mat.Cholesky, error) {
	if !IsFinite(a) {
		return nil, fmt.Errorf("cholesky: %w", ErrNonFinite)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("cholesky of %d×%d matrix: %w", a.SymmetricDim(), a.SymmetricDim(), ErrNotPositiveDefinite)
	}
	return &chol, nil
}

// LowerCholesky returns the lower-triangular factor L of a = L Lᵀ.
//
// The diagonal of L is strictly positive, which makes the factor unique.
func LowerCholesky(a mat.Symmetric) (*mat.TriDense, error) {
	chol, err := Cholesky(a)
	if err != nil {
		return nil, err
	}
	var l mat.TriDense
	chol.LTo(&l)
	return &l, nil
}

// InverseSPD returns the inverse of the symmetric positive-definite matrix a.
func InverseSPD(a mat.Symmetric) (*mat.SymDense, error) {
	chol, err := Cholesky(a)
	if err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("inverse: %w: %v", ErrNotPositiveDefinite, err)
	}
	return &inv, nil
}

// AddJitter adds jitter to the diagonal of a in place.
func AddJitter(a *mat.SymDense, jitter float64) {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		a.SetSym(i, i, a.At(i, i)+jitter)
	}
}

// OuterLower returns L Lᵀ for a triangular (or any square) factor.
func OuterLower(l mat.Matrix) *mat.SymDense {
	n, _ := l.Dims()
	s := mat.NewSymDense(n, nil)
	s.SymOuterK(1, l)
	return s
}

// Symmetrize returns ½(a + aᵀ).
func Symmetrize(a mat.Matrix) (*mat.SymDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("symmetrize %d×%d: %w", r, c, ErrNotSquare)
	}
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s, nil
}

// Tril returns a copy of the lower triangle of the square matrix a.
func Tril(a mat.Matrix) *mat.TriDense {
	n, _ := a.Dims()
	t := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			t.SetTri(i, j, a.At(i, j))
		}
	}
	return t
}

// Phi returns the lower triangle of a with its diagonal halved.
//
// Phi is the linear map appearing in the forward and reverse derivatives of
// the Cholesky factorization.
func Phi(a mat.Matrix) *mat.TriDense {
	t := Tril(a)
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		t.SetTri(i, i, 0.5*t.At(i, i))
	}
	return t
}

// IsLowerTriangular reports whether every entry above the diagonal of a is
// within tol of zero.
func IsLowerTriangular(a mat.Matrix, tol float64) bool {
	r, c := a.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(a.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// IsFinite reports whether all entries of a are finite.
func IsFinite(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// SolveLower returns L⁻¹ b.
func SolveLower(l *mat.TriDense, b mat.Matrix) (*mat.Dense, error) {
	var x mat.Dense
	if err := x.Solve(l, b); err != nil {
		return nil, fmt.Errorf("triangular solve: %w: %v", ErrNotPositiveDefinite, err)
	}
	return &x, nil
}

// SolveLowerT returns L⁻ᵀ b.
func SolveLowerT(l *mat.TriDense, b mat.Matrix) (*mat.Dense, error) {
	var x mat.Dense
	if err := x.Solve(l.T(), b); err != nil {
		return nil, fmt.Errorf("triangular solve: %w: %v", ErrNotPositiveDefinite, err)
	}
	return &x, nil
}

// SolveLowerVec returns L⁻¹ b for a vector b.
func SolveLowerVec(l *mat.TriDense, b mat.Vector) (*mat.VecDense, error) {
	var x mat.VecDense
	if err := x.SolveVec(l, b); err != nil {
		return nil, fmt.Errorf("triangular solve: %w: %v", ErrNotPositiveDefinite, err)
	}
	return &x, nil
}

// LogDiagSum returns Σᵢ log|Lᵢᵢ|, i.e. ½ log det(L Lᵀ).
func LogDiagSum(l mat.Matrix) float64 {
	n, _ := l.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Log(math.Abs(l.At(i, i)))
	}
	return sum
}

// Eye returns the n×n identity as a lower-triangular matrix.
func Eye(n int) *mat.TriDense {
	t := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		t.SetTri(i, i, 1)
	}
	return t
}

// MinEigenvalue returns the smallest eigenvalue of the symmetric matrix a.
func MinEigenvalue(a mat.Symmetric) (float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(a, false); !ok {
		return 0, errors.New("eigendecomposition did not converge")
	}
	values := es.Values(nil)
	lowest := math.Inf(1)
	for _, v := range values {
		lowest = math.Min(lowest, v)
	}
	return lowest, nil
}
