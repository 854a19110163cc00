package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLowerCholesky(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 2, 0.4,
		2, 5, 1,
		0.4, 1, 3,
	})

	l, err := LowerCholesky(a)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Greater(t, l.At(i, i), 0.0, "diagonal %d must be positive", i)
	}
	assert.True(t, IsLowerTriangular(l, 0))
	assert.True(t, mat.EqualApprox(OuterLower(l), a, 1e-12))
}

func TestCholesky_Failures(t *testing.T) {
	tests := map[string]struct {
		a    *mat.SymDense
		want error
	}{
		"indefinite": {
			a:    mat.NewSymDense(2, []float64{1, 2, 2, 1}),
			want: ErrNotPositiveDefinite,
		},
		"negative diagonal": {
			a:    mat.NewSymDense(2, []float64{-1, 0, 0, 1}),
			want: ErrNotPositiveDefinite,
		},
		"nan": {
			a:    mat.NewSymDense(2, []float64{math.NaN(), 0, 0, 1}),
			want: ErrNonFinite,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LowerCholesky(tc.a)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInverseSPD(t *testing.T) {
	a := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	inv, err := InverseSPD(a)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(a, inv)
	assert.True(t, mat.EqualApprox(&prod, mat.NewDiagDense(2, []float64{1, 1}), 1e-12))
}

func TestAddJitter(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0.3, 0.3, 2})
	AddJitter(a, 0.5)
	assert.Equal(t, 1.5, a.At(0, 0))
	assert.Equal(t, 2.5, a.At(1, 1))
	assert.Equal(t, 0.3, a.At(0, 1))
}

func TestPhiAndTril(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{2, 7, 3, 4})

	tril := Tril(a)
	assert.Equal(t, 0.0, tril.At(0, 1))
	assert.Equal(t, 3.0, tril.At(1, 0))

	phi := Phi(a)
	assert.Equal(t, 1.0, phi.At(0, 0))
	assert.Equal(t, 2.0, phi.At(1, 1))
	assert.Equal(t, 3.0, phi.At(1, 0))
	assert.Equal(t, 0.0, phi.At(0, 1))
}

func TestSymmetrize(t *testing.T) {
	s, err := Symmetrize(mat.NewDense(2, 2, []float64{1, 2, 4, 3}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.At(0, 1))
	assert.Equal(t, 3.0, s.At(1, 0))

	_, err = Symmetrize(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrNotSquare)
}

func TestTriangularSolves(t *testing.T) {
	l := mat.NewTriDense(2, mat.Lower, []float64{2, 0, 1, 4})
	b := mat.NewDense(2, 1, []float64{4, 9})

	x, err := SolveLower(l, b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x.At(0, 0), 1e-12)
	assert.InDelta(t, 1.75, x.At(1, 0), 1e-12)

	// Lᵀ = [[2, 1], [0, 4]]
	xt, err := SolveLowerT(l, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.875, xt.At(0, 0), 1e-12)
	assert.InDelta(t, 2.25, xt.At(1, 0), 1e-12)

	v, err := SolveLowerVec(l, mat.NewVecDense(2, []float64{4, 9}))
	require.NoError(t, err)
	assert.InDelta(t, 1.75, v.AtVec(1), 1e-12)
}

func TestLogDiagSumAndEigen(t *testing.T) {
	l := mat.NewTriDense(2, mat.Lower, []float64{2, 0, 1, 3})
	assert.InDelta(t, math.Log(6), LogDiagSum(l), 1e-12)

	lowest, err := MinEigenvalue(mat.NewSymDense(2, []float64{2, 0, 0, 0.5}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, lowest, 1e-12)

	eye := Eye(3)
	assert.Equal(t, 1.0, eye.At(2, 2))
	assert.Equal(t, 0.0, eye.At(2, 1))
}
