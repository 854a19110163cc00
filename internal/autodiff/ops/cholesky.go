// Package ops holds closed-form derivative rules for the matrix operations
// used by the variational transforms.
//
// Supported rules:
//   - CholeskyBackward: reverse mode through Σ = L Lᵀ (∂loss/∂L -> ∂loss/∂Σ)
//   - CholeskyJVP: forward mode through L = chol(Σ) (dΣ -> dL)
//
// Both use Φ(X), the lower triangle of X with its diagonal halved.
package ops

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/linalg"
)

// CholeskyBackward maps the gradient with respect to a lower-triangular
// factor L to the gradient with respect to the symmetric matrix Σ = L Lᵀ.
//
// Backward pass:
//
//	P   = Φ(Lᵀ tril(ḡL))
//	ḡΣ  = sym(L⁻ᵀ P L⁻¹)
//
// Entries of gradL above the diagonal are ignored: they do not correspond to
// free parameters of L.
func CholeskyBackward(l *mat.TriDense, gradL mat.Matrix) (*mat.SymDense, error) {
	n, _ := l.Triangle()
	if r, c := gradL.Dims(); r != n || c != n {
		return nil, fmt.Errorf("cholesky backward: gradient is %d×%d, factor is %d×%d", r, c, n, n)
	}

	var a mat.Dense
	a.Mul(l.T(), linalg.Tril(gradL))
	p := linalg.Phi(&a)

	// L⁻ᵀ P
	left, err := linalg.SolveLowerT(l, p)
	if err != nil {
		return nil, fmt.Errorf("cholesky backward: %w", err)
	}
	// (L⁻ᵀ P) L⁻¹ = (L⁻ᵀ (L⁻ᵀ P)ᵀ)ᵀ
	right, err := linalg.SolveLowerT(l, left.T())
	if err != nil {
		return nil, fmt.Errorf("cholesky backward: %w", err)
	}
	return linalg.Symmetrize(right.T())
}

// CholeskyJVP returns the directional derivative of chol at Σ = L Lᵀ in the
// symmetric direction dSigma:
//
//	dL = L Φ(L⁻¹ dΣ L⁻ᵀ)
func CholeskyJVP(l *mat.TriDense, dSigma mat.Symmetric) (*mat.TriDense, error) {
	n, _ := l.Triangle()
	if dSigma.SymmetricDim() != n {
		return nil, fmt.Errorf("cholesky jvp: direction is %d×%d, factor is %d×%d",
			dSigma.SymmetricDim(), dSigma.SymmetricDim(), n, n)
	}

	// L⁻¹ dΣ
	y, err := linalg.SolveLower(l, dSigma)
	if err != nil {
		return nil, fmt.Errorf("cholesky jvp: %w", err)
	}
	// L⁻¹ (L⁻¹ dΣ)ᵀ = L⁻¹ dΣ L⁻ᵀ since dΣ is symmetric
	x, err := linalg.SolveLower(l, y.T())
	if err != nil {
		return nil, fmt.Errorf("cholesky jvp: %w", err)
	}

	var dl mat.TriDense
	dl.MulTri(l, linalg.Phi(x))
	return &dl, nil
}
