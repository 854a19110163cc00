package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/optim"
)

func scalarGrad(p *autodiff.Parameter, g float64) autodiff.Gradients {
	return autodiff.Gradients{p: mat.NewDense(1, 1, []float64{g})}
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	param := autodiff.NewScalar("x", 2.0)
	optimizer := optim.NewSGD([]*autodiff.Parameter{param}, optim.SGDConfig{LR: 0.1})

	optimizer.Step(scalarGrad(param, 1.0))

	// x_new = 2.0 - 0.1 * 1.0
	assert.InDelta(t, 1.9, param.Scalar(), 1e-12)
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	param := autodiff.NewScalar("x", 1.0)
	optimizer := optim.NewSGD([]*autodiff.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// v_1 = 1.0, x_1 = 1.0 - 0.1 * 1.0
	optimizer.Step(scalarGrad(param, 1.0))
	assert.InDelta(t, 0.9, param.Scalar(), 1e-12)

	// v_2 = 0.9 * 1.0 + 1.0 = 1.9, x_2 = 0.9 - 0.1 * 1.9
	optimizer.Step(scalarGrad(param, 1.0))
	assert.InDelta(t, 0.71, param.Scalar(), 1e-12)
}

func TestSGD_SkipsMissingAndMismatchedGradients(t *testing.T) {
	x := autodiff.NewScalar("x", 1.0)
	y := autodiff.NewScalar("y", 1.0)
	optimizer := optim.NewSGD([]*autodiff.Parameter{x, y}, optim.SGDConfig{LR: 0.5})

	optimizer.Step(autodiff.Gradients{y: mat.NewDense(1, 2, []float64{1, 1})})

	assert.Equal(t, 1.0, x.Scalar())
	assert.Equal(t, 1.0, y.Scalar())
}

// TestSGD_ZeroGrad tests ZeroGrad method.
func TestSGD_ZeroGrad(t *testing.T) {
	param := autodiff.NewScalar("x", 1.0)
	param.SetGrad(mat.NewDense(1, 1, []float64{5}))
	require.NotNil(t, param.Grad())

	optimizer := optim.NewSGD([]*autodiff.Parameter{param}, optim.SGDConfig{LR: 0.1})
	optimizer.ZeroGrad()

	assert.Nil(t, param.Grad())
}

// TestSGD_GetSetLR tests learning rate getter/setter.
func TestSGD_GetSetLR(t *testing.T) {
	optimizer := optim.NewSGD(nil, optim.SGDConfig{LR: 0.01})
	assert.Equal(t, 0.01, optimizer.GetLR())

	optimizer.SetLR(0.001)
	assert.Equal(t, 0.001, optimizer.GetLR())

	assert.Equal(t, 0.01, optim.NewSGD(nil, optim.SGDConfig{}).GetLR(), "default learning rate")
}

func TestSGD_StateDict(t *testing.T) {
	param := autodiff.NewScalar("x", 1.0)
	optimizer := optim.NewSGD([]*autodiff.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	optimizer.Step(scalarGrad(param, 1.0))

	state := optimizer.StateDict()
	require.Contains(t, state, "velocity.0")
	assert.Equal(t, 1.0, state["velocity.0"].At(0, 0))

	// A restored optimizer continues from the saved velocity.
	restored := optim.NewSGD([]*autodiff.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, restored.LoadStateDict(state))
	restored.Step(scalarGrad(param, 1.0))
	assert.InDelta(t, 0.71, param.Scalar(), 1e-12)

	bad := map[string]*mat.Dense{"velocity.0": mat.NewDense(2, 1, nil)}
	assert.Error(t, restored.LoadStateDict(bad))
}

// TestAdam_SimpleUpdate tests Adam optimizer update.
func TestAdam_SimpleUpdate(t *testing.T) {
	param := autodiff.NewScalar("x", 1.0)
	optimizer := optim.NewAdam([]*autodiff.Parameter{param}, optim.AdamConfig{
		LR:    0.001,
		Betas: [2]float64{0.9, 0.999},
		Eps:   1e-8,
	})

	optimizer.Step(scalarGrad(param, 1.0))

	// m_hat = v_hat = 1 after bias correction, so the first step is lr.
	assert.InDelta(t, 0.999, param.Scalar(), 1e-9)
	assert.Equal(t, 1, optimizer.GetTimestep())
}

// TestAdam_BiasCorrection tests that the step size is scale invariant early on.
func TestAdam_BiasCorrection(t *testing.T) {
	for _, g := range []float64{1e-3, 1, 1e3} {
		param := autodiff.NewScalar("x", 0)
		optimizer := optim.NewAdam([]*autodiff.Parameter{param}, optim.AdamConfig{LR: 0.01})

		optimizer.Step(scalarGrad(param, g))
		optimizer.Step(scalarGrad(param, g))

		assert.InDelta(t, -0.02, param.Scalar(), 1e-6, "gradient %g", g)
	}
}

// TestAdam_ZeroGrad tests ZeroGrad method.
func TestAdam_ZeroGrad(t *testing.T) {
	param := autodiff.NewScalar("x", 1.0)
	param.SetGrad(mat.NewDense(1, 1, []float64{5}))

	optimizer := optim.NewAdam([]*autodiff.Parameter{param}, optim.AdamConfig{})
	optimizer.ZeroGrad()

	assert.Nil(t, param.Grad())
	assert.Equal(t, 0.001, optimizer.GetLR(), "default learning rate")
}

// TestConvergence_SimpleQuadratic tests both optimizers minimize f(x) = (x-3)^2.
func TestConvergence_SimpleQuadratic(t *testing.T) {
	tests := []struct {
		name  string
		build func(*autodiff.Parameter) optim.Optimizer
		steps int
	}{
		{
			name: "sgd",
			build: func(p *autodiff.Parameter) optim.Optimizer {
				return optim.NewSGD([]*autodiff.Parameter{p}, optim.SGDConfig{LR: 0.1})
			},
			steps: 100,
		},
		{
			name: "sgd momentum",
			build: func(p *autodiff.Parameter) optim.Optimizer {
				return optim.NewSGD([]*autodiff.Parameter{p}, optim.SGDConfig{LR: 0.05, Momentum: 0.5})
			},
			steps: 200,
		},
		{
			name: "adam",
			build: func(p *autodiff.Parameter) optim.Optimizer {
				return optim.NewAdam([]*autodiff.Parameter{p}, optim.AdamConfig{LR: 0.1})
			},
			steps: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := autodiff.NewScalar("x", 0)
			optimizer := tt.build(param)
			for i := 0; i < tt.steps; i++ {
				optimizer.Step(scalarGrad(param, 2*(param.Scalar()-3)))
			}
			assert.InDelta(t, 3.0, param.Scalar(), 1e-2)
		})
	}
}

// TestMultipleParameters tests that every parameter gets its own update.
func TestMultipleParameters(t *testing.T) {
	w := autodiff.NewParameter("w", mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	b := autodiff.NewScalar("b", 1)
	optimizer := optim.NewSGD([]*autodiff.Parameter{w, b}, optim.SGDConfig{LR: 0.5})

	optimizer.Step(autodiff.Gradients{
		w: mat.NewDense(2, 2, []float64{1, 1, 2, 2}),
		b: mat.NewDense(1, 1, []float64{-2}),
	})

	assert.Equal(t, []float64{0.5, 1.5, 2, 3}, w.Value().RawMatrix().Data)
	assert.Equal(t, 2.0, b.Scalar())
	assert.False(t, math.IsNaN(b.Scalar()))
}

func TestPartition(t *testing.T) {
	a := autodiff.NewScalar("a", 0)
	b := autodiff.NewScalar("b", 0)
	c := autodiff.NewScalar("c", 0)

	rest := optim.Partition([]*autodiff.Parameter{a, b, c}, []*autodiff.Parameter{b})
	assert.Equal(t, []*autodiff.Parameter{a, c}, rest)

	assert.Empty(t, optim.Partition([]*autodiff.Parameter{a}, []*autodiff.Parameter{a}))
}
