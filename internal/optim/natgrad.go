package optim

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
	"github.com/born-ml/natgrad/internal/parallel"
	"github.com/born-ml/natgrad/internal/variational"
)

// NaturalGradientConfig holds configuration for the natural-gradient
// optimizer.
type NaturalGradientConfig struct {
	// Gamma is the step size, in (0, 1]. It is validated, not defaulted.
	Gamma float64

	// Parallel controls how groups are fanned out. The zero value updates
	// groups sequentially.
	Parallel parallel.Config

	// Logger receives step events at Debug and failures at Warn.
	// Defaults to a no-op logger.
	Logger *zap.Logger
}

// NaturalGradient takes natural-gradient steps on Gaussian variational
// distributions.
//
// Update rule, per channel, in natural coordinates η = (Σ⁻¹μ, -½Σ⁻¹):
//
//	η = η - γ ∇ₘloss
//
// where ∇ₘloss is the gradient with respect to the expectation parameters
// (μ, Σ + μμᵀ), which equals the natural gradient with respect to η. With a
// conjugate model and γ = 1 a single step lands on the optimal q.
//
// Groups using MeanVarSqrtTransform take the same step pushed forward into
// (μ, S) coordinates instead.
//
// The optimizer owns the parameters of its groups. Other parameters of the
// model are left to an ordinary optimizer; see Partition.
type NaturalGradient struct {
	groups   []*variational.Gaussian
	gamma    float64
	parallel parallel.Config
	logger   *zap.Logger
	steps    int
}

// channelUpdate is the pending new state of one channel.
type channelUpdate struct {
	mean    *mat.VecDense
	sqrtCov *mat.TriDense
}

// NewNaturalGradient creates a natural-gradient optimizer over groups.
//
// Returns a *ConfigurationError if gamma is outside (0, 1], if there are no
// groups, or if a group has inconsistent shapes, shares a parameter with
// another group or cannot be mapped through its transform. A current state
// whose covariance cannot be factorized is a *NumericalInstabilityError.
func NewNaturalGradient(groups []*variational.Gaussian, config NaturalGradientConfig) (*NaturalGradient, error) {
	if err := validateGamma(config.Gamma); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, &ConfigurationError{Group: -1, Field: "groups", Value: 0, Message: "at least one variational group is required"}
	}

	seen := make(map[*autodiff.Parameter]int)
	for i, g := range groups {
		if err := validateGroup(i, g); err != nil {
			return nil, err
		}
		for _, p := range g.Parameters() {
			if j, dup := seen[p]; dup {
				return nil, &ConfigurationError{Group: i, Field: "parameters", Value: p.Name(),
					Message: fmt.Sprintf("parameter is already owned by group %d", j)}
			}
			seen[p] = i
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NaturalGradient{
		groups:   groups,
		gamma:    config.Gamma,
		parallel: config.Parallel,
		logger:   logger,
	}, nil
}

// Minimize builds a NaturalGradient over groups and takes one step.
func Minimize(closure autodiff.Closure, groups []*variational.Gaussian, config NaturalGradientConfig) error {
	opt, err := NewNaturalGradient(groups, config)
	if err != nil {
		return err
	}
	return opt.Step(closure)
}

func validateGamma(gamma float64) error {
	if math.IsNaN(gamma) || gamma <= 0 || gamma > 1 {
		return &ConfigurationError{Group: -1, Field: "gamma", Value: gamma, Message: "must be in (0, 1]"}
	}
	return nil
}

func validateGroup(i int, g *variational.Gaussian) error {
	if g == nil {
		return &ConfigurationError{Group: i, Field: "group", Value: nil, Message: "group is nil"}
	}
	if err := g.Validate(); err != nil {
		return &ConfigurationError{Group: i, Field: "shape", Value: g.Channels(), Message: err.Error()}
	}

	// Probe the transform on the current state so shape errors surface here
	// rather than on the first step.
	t := g.TransformOrDefault()
	m := g.Dim()
	for l := 0; l < g.Channels(); l++ {
		mean, sqrtCov, err := normalizedChannel(g, l)
		if err != nil {
			return stateError(i, l, t, "sqrt_cov", l, err)
		}
		a, b, err := t.Forward(mean, sqrtCov)
		if err != nil {
			return stateError(i, l, t, "transform", t.Name(), err)
		}
		br, bc := b.Dims()
		if a.Len() != m || br != m || bc != m {
			return &ConfigurationError{Group: i, Field: "transform", Value: t.Name(),
				Message: fmt.Sprintf("forward returned shapes %d and %d×%d, want %d and %d×%d", a.Len(), br, bc, m, m, m)}
		}
	}
	return nil
}

// stateError classifies a failure on the current state of channel l. A
// factorization or finiteness failure is numerical, anything else is a
// configuration problem.
func stateError(i, l int, t variational.Transform, field string, value any, err error) error {
	if errors.Is(err, linalg.ErrNotPositiveDefinite) || errors.Is(err, linalg.ErrNonFinite) {
		return &NumericalInstabilityError{Group: i, Channel: l, Transform: t.Name(), Err: err}
	}
	return &ConfigurationError{Group: i, Field: field, Value: value, Message: err.Error()}
}

// Step evaluates closure once and updates every group from the resulting
// gradients.
//
// Groups with no gradient in the map are skipped. Updates are computed for
// all groups before any is written: if one fails, no parameter changes and
// the first failure (in group order) is returned.
func (n *NaturalGradient) Step(closure autodiff.Closure) error {
	loss, grads, err := closure()
	if err != nil {
		return fmt.Errorf("natural gradient step: evaluate closure: %w", err)
	}

	updates := make([][]channelUpdate, len(n.groups))
	err = parallel.ForErr(len(n.groups), func(i int) error {
		u, err := n.computeGroup(i, grads)
		updates[i] = u
		return err
	}, n.parallel)
	if err != nil {
		n.logger.Warn("natural gradient step failed",
			zap.Int("step", n.steps),
			zap.Float64("gamma", n.gamma),
			zap.Error(err))
		return err
	}

	updated := 0
	for i, u := range updates {
		if u == nil {
			continue
		}
		for l, c := range u {
			n.groups[i].SetChannel(l, c.mean, c.sqrtCov)
		}
		updated++
	}
	n.steps++

	n.logger.Debug("natural gradient step",
		zap.Int("step", n.steps),
		zap.Float64("loss", loss),
		zap.Float64("gamma", n.gamma),
		zap.Int("groups_updated", updated))
	return nil
}

// computeGroup returns the new state of every channel of group i, or nil if
// the group has no gradients.
func (n *NaturalGradient) computeGroup(i int, grads autodiff.Gradients) ([]channelUpdate, error) {
	g := n.groups[i]
	m, channels := g.Dim(), g.Channels()

	gradMean, err := groupGradient(i, g.Mean, grads)
	if err != nil {
		return nil, err
	}
	gradSqrt := make([]*mat.Dense, channels)
	present := gradMean != nil
	for l, p := range g.SqrtCov {
		if gradSqrt[l], err = groupGradient(i, p, grads); err != nil {
			return nil, err
		}
		present = present || gradSqrt[l] != nil
	}
	if !present {
		n.logger.Debug("skipping group without gradients", zap.Int("group", i))
		return nil, nil
	}

	t := g.TransformOrDefault()
	out := make([]channelUpdate, channels)
	for l := 0; l < channels; l++ {
		gm := mat.NewVecDense(m, nil)
		if gradMean != nil {
			gm.CopyVec(gradMean.ColView(l))
		}
		gs := mat.NewDense(m, m, nil)
		if gradSqrt[l] != nil {
			gs.Copy(gradSqrt[l])
		}

		mean, sqrtCov, err := n.stepChannel(t, g, l, gm, gs)
		if err != nil {
			return nil, &NumericalInstabilityError{Group: i, Channel: l, Transform: t.Name(), Err: err}
		}
		out[l] = channelUpdate{mean: mean, sqrtCov: sqrtCov}
	}
	return out, nil
}

// stepChannel computes the updated (μ, S) of channel l.
func (n *NaturalGradient) stepChannel(t variational.Transform, g *variational.Gaussian, l int, gradMean *mat.VecDense, gradSqrt *mat.Dense) (*mat.VecDense, *mat.TriDense, error) {
	mean, sqrtCov, err := normalizedChannel(g, l)
	if err != nil {
		return nil, nil, err
	}
	flipGradientColumns(g.SqrtCov[l].Value(), gradSqrt)

	a, b, err := t.Forward(mean, sqrtCov)
	if err != nil {
		return nil, nil, fmt.Errorf("forward: %w", err)
	}
	g1, g2, err := variational.ExpectationGradient(mean, sqrtCov, gradMean, gradSqrt)
	if err != nil {
		return nil, nil, fmt.Errorf("expectation gradient: %w", err)
	}
	nat, err := variational.MeanSqrtToNatural(mean, sqrtCov)
	if err != nil {
		return nil, nil, fmt.Errorf("natural parameters: %w", err)
	}
	d1, d2, err := t.Tangent(nat, g1, g2)
	if err != nil {
		return nil, nil, fmt.Errorf("tangent: %w", err)
	}

	a.AddScaledVec(a, -n.gamma, d1)
	var scaled mat.Dense
	scaled.Scale(n.gamma, d2)
	b.Sub(b, &scaled)

	newMean, newSqrt, err := t.Backward(a, b)
	if err != nil {
		return nil, nil, fmt.Errorf("backward: %w", err)
	}
	if !linalg.IsFinite(newMean) || !linalg.IsFinite(newSqrt) {
		return nil, nil, linalg.ErrNonFinite
	}
	return newMean, newSqrt, nil
}

// groupGradient fetches and checks the gradient of p.
func groupGradient(group int, p *autodiff.Parameter, grads autodiff.Gradients) (*mat.Dense, error) {
	grad := grads.Get(p)
	if grad == nil {
		return nil, nil
	}
	r, c := p.Dims()
	gr, gc := grad.Dims()
	if gr != r || gc != c {
		return nil, &ShapeMismatchError{Group: group, Parameter: p.Name(), Want: [2]int{r, c}, Got: [2]int{gr, gc}}
	}
	if !linalg.IsFinite(grad) {
		return nil, &NumericalInstabilityError{Group: group, Channel: -1,
			Err: fmt.Errorf("gradient for %q: %w", p.Name(), linalg.ErrNonFinite)}
	}
	return grad, nil
}

// normalizedChannel returns channel l with a positive-diagonal square root.
func normalizedChannel(g *variational.Gaussian, l int) (*mat.VecDense, *mat.TriDense, error) {
	mean, sqrtCov := g.Channel(l)
	sqrtCov, err := variational.NormalizeSqrt(sqrtCov)
	if err != nil {
		return nil, nil, err
	}
	return mean, sqrtCov, nil
}

// flipGradientColumns negates the columns of grad where the stored square
// root has a negative diagonal, so that grad refers to the normalized factor.
func flipGradientColumns(stored mat.Matrix, grad *mat.Dense) {
	r, c := grad.Dims()
	for j := 0; j < c; j++ {
		if stored.At(j, j) >= 0 {
			continue
		}
		for i := 0; i < r; i++ {
			grad.Set(i, j, -grad.At(i, j))
		}
	}
}

// Parameters returns every parameter owned by the optimizer.
func (n *NaturalGradient) Parameters() []*autodiff.Parameter {
	var params []*autodiff.Parameter
	for _, g := range n.groups {
		params = append(params, g.Parameters()...)
	}
	return params
}

// Groups returns the variational groups updated by the optimizer.
func (n *NaturalGradient) Groups() []*variational.Gaussian {
	return n.groups
}

// Gamma returns the current step size.
func (n *NaturalGradient) Gamma() float64 {
	return n.gamma
}

// SetGamma updates the step size, e.g. from a schedule.
func (n *NaturalGradient) SetGamma(gamma float64) error {
	if err := validateGamma(gamma); err != nil {
		return err
	}
	n.gamma = gamma
	return nil
}

// Steps returns the number of successful steps taken.
func (n *NaturalGradient) Steps() int {
	return n.steps
}
