package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/linalg"
)

func testFactor(t *testing.T) (*mat.SymDense, *mat.TriDense) {
	t.Helper()
	sigma := mat.NewSymDense(3, []float64{
		2.0, 0.3, -0.4,
		0.3, 1.5, 0.2,
		-0.4, 0.2, 1.2,
	})
	l, err := linalg.LowerCholesky(sigma)
	require.NoError(t, err)
	return sigma, l
}

// TestCholeskyBackward_Quadratic checks f(L) = tr(G L Lᵀ), whose gradient with
// respect to Σ is G itself.
func TestCholeskyBackward_Quadratic(t *testing.T) {
	_, l := testFactor(t)
	g := mat.NewSymDense(3, []float64{
		1.0, -0.5, 0.25,
		-0.5, 2.0, 0.1,
		0.25, 0.1, -0.7,
	})

	var gl mat.Dense
	gl.Mul(g, l)
	gl.Scale(2, &gl)

	gSigma, err := CholeskyBackward(l, linalg.Tril(&gl))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(gSigma, g, 1e-10), "got\n%v", mat.Formatted(gSigma))
}

// TestCholeskyBackward_IgnoresUpperTriangle checks that entries above the
// diagonal of the incoming gradient have no effect.
func TestCholeskyBackward_IgnoresUpperTriangle(t *testing.T) {
	_, l := testFactor(t)
	lower := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		2, 3, 0,
		4, 5, 6,
	})
	full := mat.DenseCopyOf(lower)
	full.Set(0, 2, 100)
	full.Set(1, 2, -7)

	a, err := CholeskyBackward(l, lower)
	require.NoError(t, err)
	b, err := CholeskyBackward(l, full)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a, b, 1e-12))
}

func TestCholeskyJVP_FiniteDifference(t *testing.T) {
	sigma, l := testFactor(t)
	dSigma := mat.NewSymDense(3, []float64{
		0.2, 0.1, 0.0,
		0.1, -0.3, 0.05,
		0.0, 0.05, 0.4,
	})

	dl, err := CholeskyJVP(l, dSigma)
	require.NoError(t, err)

	const h = 1e-6
	perturbed := func(sign float64) *mat.TriDense {
		s := mat.NewSymDense(3, nil)
		s.AddSym(sigma, scaledSym(dSigma, sign*h))
		f, err := linalg.LowerCholesky(s)
		require.NoError(t, err)
		return f
	}
	var fd mat.Dense
	fd.Sub(perturbed(1), perturbed(-1))
	fd.Scale(1/(2*h), &fd)

	assert.True(t, mat.EqualApprox(dl, &fd, 1e-6), "jvp\n%v\nfd\n%v", mat.Formatted(dl), mat.Formatted(&fd))
	assert.True(t, linalg.IsLowerTriangular(dl, 0))
}

func TestCholeskyShapeErrors(t *testing.T) {
	_, l := testFactor(t)

	_, err := CholeskyBackward(l, mat.NewDense(2, 2, nil))
	assert.Error(t, err)

	_, err = CholeskyJVP(l, mat.NewSymDense(2, nil))
	assert.Error(t, err)
}

func scaledSym(a *mat.SymDense, f float64) *mat.SymDense {
	s := mat.NewSymDense(a.SymmetricDim(), nil)
	s.ScaleSym(f, a)
	return s
}
