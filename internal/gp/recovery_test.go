package gp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/natgrad/internal/gp"
	"github.com/born-ml/natgrad/internal/linalg"
	"github.com/born-ml/natgrad/internal/optim"
	"github.com/born-ml/natgrad/internal/variational"
)

func TestVGP_OneStepRecoversGPR(t *testing.T) {
	for _, n := range []int{1, 30, 100} {
		data := gp.NewSynthetic(n, 2, 1)
		kernel := gp.NewSquaredExponential(1, 1)
		likelihood := gp.NewGaussianLikelihood(0.1)

		lml, err := gp.NewGPR(data, kernel, likelihood).LogMarginalLikelihood()
		require.NoError(t, err)

		model := gp.NewVGP(data, kernel, likelihood)
		before, err := model.ELBO()
		require.NoError(t, err)

		err = optim.Minimize(model.Loss(nil), []*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{Gamma: 1})
		require.NoError(t, err)

		after, err := model.ELBO()
		require.NoError(t, err)
		assert.Greater(t, after, before, "n=%d", n)
		assert.InDelta(t, lml, after, 1e-6*max(1, -lml), "n=%d", n)

		lowest, err := linalg.MinEigenvalue(model.Q().Covariance(0))
		require.NoError(t, err)
		assert.Greater(t, lowest, 0.0)
	}
}

func TestSVGP_OneStepRecoversSGPR(t *testing.T) {
	data := gp.NewSynthetic(100, 2, 2)
	z := data.Subset([]int{0, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95}).X
	kernel := gp.NewSquaredExponential(1, 1)
	likelihood := gp.NewGaussianLikelihood(0.1)

	bound, err := gp.NewSGPR(data, z, kernel, likelihood).ELBO()
	require.NoError(t, err)

	model := gp.NewSVGP(z, 1, data.Len(), kernel, likelihood)
	err = optim.Minimize(model.Loss(gp.FullBatch(data), nil), []*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{Gamma: 1})
	require.NoError(t, err)

	elbo, err := model.ELBO(data)
	require.NoError(t, err)
	assert.InDelta(t, bound, elbo, 1e-6*max(1, -bound))

	// A second full step stays at the optimum.
	require.NoError(t, optim.Minimize(model.Loss(gp.FullBatch(data), nil), []*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{Gamma: 1}))
	again, err := model.ELBO(data)
	require.NoError(t, err)
	assert.InDelta(t, elbo, again, 1e-6*max(1, -bound))
}

func TestSVGP_XiTransformConverges(t *testing.T) {
	data := gp.NewSynthetic(10, 1, 4)
	z := data.Subset([]int{0, 4, 8}).X
	kernel := gp.NewSquaredExponential(1, 1)
	likelihood := gp.NewGaussianLikelihood(1)

	bound, err := gp.NewSGPR(data, z, kernel, likelihood).ELBO()
	require.NoError(t, err)

	model := gp.NewSVGP(z, 1, data.Len(), kernel, likelihood)
	model.Q().Transform = variational.MeanVarSqrtTransform{}
	opt, err := optim.NewNaturalGradient([]*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{Gamma: 0.05})
	require.NoError(t, err)

	for i := 0; i < 400; i++ {
		require.NoError(t, opt.Step(model.Loss(gp.FullBatch(data), nil)), "step %d", i)
	}
	elbo, err := model.ELBO(data)
	require.NoError(t, err)
	assert.InDelta(t, bound, elbo, 1e-6*max(1, -bound))
	assert.Equal(t, 400, opt.Steps())
}

func TestSVGP_NaturalGradientWithAdam(t *testing.T) {
	data := gp.NewSynthetic(60, 1, 6)
	z := data.Subset([]int{0, 6, 12, 18, 24, 30, 36, 42, 48, 54}).X
	// Deliberately poor starting hyperparameters.
	kernel := gp.NewSquaredExponential(0.5, 2)
	likelihood := gp.NewGaussianLikelihood(1)

	model := gp.NewSVGP(z, 1, data.Len(), kernel, likelihood)
	collapsed := func() float64 {
		bound, err := gp.NewSGPR(data, model.Inducing.Value(), kernel, likelihood).ELBO()
		require.NoError(t, err)
		return bound
	}
	start := collapsed()

	batches, err := gp.NewMinibatches(data, 20, 1)
	require.NoError(t, err)
	natgrad, err := optim.NewNaturalGradient([]*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{Gamma: 0.5})
	require.NoError(t, err)
	adam := optim.NewAdam(optim.Partition(model.Parameters(), natgrad.Parameters()), optim.AdamConfig{LR: 0.05})
	assert.ElementsMatch(t, model.HyperParameters(), adam.Parameters())

	for i := 0; i < 80; i++ {
		require.NoError(t, natgrad.Step(model.Loss(batches, nil)))
		_, grads, err := model.Loss(batches, adam.Parameters())()
		require.NoError(t, err)
		adam.Step(grads)
	}

	assert.Less(t, likelihood.Variance(), 1.0)
	assert.Greater(t, collapsed(), start)

	// q was trained by natural gradients alone and is close to optimal for
	// the final hyperparameters.
	elbo, err := model.ELBO(data)
	require.NoError(t, err)
	assert.Greater(t, elbo, start)
}
