package gp_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/gp"
	"github.com/born-ml/natgrad/internal/linalg"
	"github.com/born-ml/natgrad/internal/parallel"
	"github.com/born-ml/natgrad/internal/variational"
)

func TestSquaredExponential(t *testing.T) {
	k := gp.NewSquaredExponential(2.0, 0.5)
	assert.InDelta(t, 2.0, k.Variance(), 1e-12)
	assert.InDelta(t, 0.5, k.Lengthscale(), 1e-12)
	assert.Len(t, k.Parameters(), 2)

	x := mat.NewDense(2, 1, []float64{0, 1})
	kxx := k.KSym(x)
	assert.InDelta(t, 2.0, kxx.At(0, 0), 1e-12)
	// 2·exp(-1/(2·0.25))
	assert.InDelta(t, 2*math.Exp(-2), kxx.At(0, 1), 1e-12)
	assert.Equal(t, []float64{2, 2}, k.KDiag(x).RawVector().Data)
}

func TestSquaredExponential_ParallelMatchesSequential(t *testing.T) {
	data := gp.NewSynthetic(40, 3, 7)
	z := data.Subset([]int{0, 5, 9}).X

	seq := gp.NewSquaredExponential(1.3, 0.8)
	seq.Parallel = parallel.Config{}
	par := gp.NewSquaredExponential(1.3, 0.8)
	par.Parallel = parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	assert.True(t, mat.Equal(seq.KSym(data.X), par.KSym(data.X)))
	assert.True(t, mat.Equal(seq.K(data.X, z), par.K(data.X, z)))

	// K(X, X) agrees with KSym(X).
	assert.True(t, mat.EqualApprox(seq.K(data.X, data.X), seq.KSym(data.X), 1e-14))
}

func TestGPR_SinglePoint(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{0.3})
	y := mat.NewDense(1, 1, []float64{1.2})
	data, err := gp.NewDataset(x, y)
	require.NoError(t, err)

	model := gp.NewGPR(data, gp.NewSquaredExponential(1.5, 1), gp.NewGaussianLikelihood(0.5))
	lml, err := model.LogMarginalLikelihood()
	require.NoError(t, err)

	v := 1.5 + 0.5 + linalg.DefaultJitter
	want := -0.5*math.Log(2*math.Pi*v) - 1.2*1.2/(2*v)
	assert.InDelta(t, want, lml, 1e-12)
}

func TestGPR_LossGradients(t *testing.T) {
	data := gp.NewSynthetic(15, 1, 3)
	model := gp.NewGPR(data, gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.2))

	loss, grads, err := model.Loss()()
	require.NoError(t, err)
	lml, err := model.LogMarginalLikelihood()
	require.NoError(t, err)
	assert.InDelta(t, -lml, loss, 1e-12)
	for _, p := range model.Parameters() {
		assert.NotNil(t, grads.Get(p), p.Name())
	}
}

func TestSGPR_InducingAtDataRecoversGPR(t *testing.T) {
	data := gp.NewSynthetic(10, 1, 5)
	kernel := gp.NewSquaredExponential(1, 1)
	likelihood := gp.NewGaussianLikelihood(0.1)

	lml, err := gp.NewGPR(data, kernel, likelihood).LogMarginalLikelihood()
	require.NoError(t, err)

	full, err := gp.NewSGPR(data, data.X, kernel, likelihood).ELBO()
	require.NoError(t, err)
	assert.InDelta(t, lml, full, 1e-3)

	sparse, err := gp.NewSGPR(data, data.Subset([]int{0, 3, 6}).X, kernel, likelihood).ELBO()
	require.NoError(t, err)
	assert.Less(t, sparse, lml, "collapsed bound is a lower bound")
}

// randomize sets q to an arbitrary distribution with a non-trivial
// square-root covariance.
func randomize(q *variational.Gaussian, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	m := q.Dim()
	for l := 0; l < q.Channels(); l++ {
		s := q.SqrtCov[l].Value()
		for i := 0; i < m; i++ {
			q.Mean.Value().Set(i, l, rng.NormFloat64())
			for j := 0; j < i; j++ {
				s.Set(i, j, 0.1*rng.NormFloat64())
			}
			s.Set(i, i, 0.5+rng.Float64())
		}
	}
}

func TestVGP_Gradients(t *testing.T) {
	data := gp.NewSynthetic(8, 2, 11)
	model := gp.NewVGP(data, gp.NewSquaredExponential(1, 1.5), gp.NewGaussianLikelihood(0.3))
	randomize(model.Q(), 1)

	worst, err := autodiff.Check(model.Loss(nil), model.Q().Parameters(), 1e-6)
	require.NoError(t, err)
	assert.Less(t, worst, 1e-5)
}

func TestSVGP_Gradients(t *testing.T) {
	data := gp.NewSynthetic(12, 2, 13)
	z := data.Subset([]int{0, 2, 4, 6}).X
	batch := data.Subset([]int{1, 3, 5, 7, 9, 11})

	// NumData ≠ batch size exercises the N/B scaling.
	model := gp.NewSVGP(z, 1, data.Len(), gp.NewSquaredExponential(1, 1.5), gp.NewGaussianLikelihood(0.3))
	randomize(model.Q(), 2)

	worst, err := autodiff.Check(model.Loss(gp.FullBatch(batch), nil), model.Q().Parameters(), 1e-6)
	require.NoError(t, err)
	assert.Less(t, worst, 1e-5)
}

func TestSVGP_HyperParameterGradients(t *testing.T) {
	data := gp.NewSynthetic(12, 2, 17)
	z := data.Subset([]int{0, 4, 8}).X
	model := gp.NewSVGP(z, 1, data.Len(), gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.3))
	randomize(model.Q(), 3)

	hyper := model.HyperParameters()
	_, grads, err := model.Loss(gp.FullBatch(data), hyper)()
	require.NoError(t, err)
	for _, p := range model.Parameters() {
		require.NotNil(t, grads.Get(p), p.Name())
	}
	r, c := model.Inducing.Dims()
	gr, gc := grads.Get(model.Inducing).Dims()
	assert.Equal(t, [2]int{r, c}, [2]int{gr, gc})

	worst, err := autodiff.Check(model.Loss(gp.FullBatch(data), hyper), hyper, 1e-5)
	require.NoError(t, err)
	assert.Less(t, worst, 1e-4)
}

func TestSVGP_PredictMatchesTrainingMarginals(t *testing.T) {
	data := gp.NewSynthetic(6, 1, 19)
	model := gp.NewSVGP(data.X, 1, data.Len(), gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.3))

	// With q equal to the prior, the predictive equals the prior.
	mean, variance, err := model.Predict(data.X)
	require.NoError(t, err)
	for i := 0; i < data.Len(); i++ {
		assert.InDelta(t, 0, mean.At(i, 0), 1e-12)
		assert.InDelta(t, 1, variance.At(i, 0), 1e-9)
	}
}

func TestSVGP_EmptyBatch(t *testing.T) {
	model := gp.NewSVGP(mat.NewDense(2, 1, []float64{0, 1}), 1, 10, gp.NewSquaredExponential(1, 1), gp.NewGaussianLikelihood(0.3))
	_, err := model.ELBO(nil)
	assert.ErrorIs(t, err, gp.ErrEmptyDataset)
}
