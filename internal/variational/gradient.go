package variational

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff/ops"
)

// ExpectationGradient converts ∂loss/∂μ and ∂loss/∂S at (μ, S) into
// ∂loss/∂m₁ and ∂loss/∂m₂.
//
// With μ = m₁ and Σ = m₂ - m₁m₁ᵀ:
//
//	ḡΣ = CholeskyBackward(S, ḡS)
//	g₂ = ḡΣ
//	g₁ = ḡμ - 2 ḡΣ μ
//
// Because of the natural/expectation duality, (g₁, g₂) is also the natural
// gradient of the loss with respect to (η₁, η₂).
func ExpectationGradient(mean *mat.VecDense, sqrtCov *mat.TriDense, gradMean mat.Vector, gradSqrt mat.Matrix) (*mat.VecDense, *mat.SymDense, error) {
	if gradMean.Len() != mean.Len() {
		return nil, nil, fmt.Errorf("expectation gradient: mean gradient has length %d, mean has %d", gradMean.Len(), mean.Len())
	}
	g2, err := ops.CholeskyBackward(sqrtCov, gradSqrt)
	if err != nil {
		return nil, nil, fmt.Errorf("expectation gradient: %w", err)
	}

	g1 := mat.NewVecDense(mean.Len(), nil)
	g1.MulVec(g2, mean)
	g1.AddScaledVec(gradMean, -2, g1)
	return g1, g2, nil
}
