package variational

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
	"github.com/born-ml/natgrad/internal/linalg"
)

// ErrInvalidShape is returned by Validate when the mean and square-root
// covariance parameters of a Gaussian do not agree.
var ErrInvalidShape = errors.New("invalid variational parameter shape")

// Gaussian is a (possibly batched) variational distribution with one
// independent channel per output:
//
//	q(u[:, l]) = N(Mean[:, l], SqrtCov[l] SqrtCov[l]ᵀ),  l = 0..L-1
//
// Mean is M×L and every SqrtCov[l] is an M×M lower-triangular matrix. A nil
// Transform selects NaturalTransform.
//
// The parameters are mutated in place by the natural-gradient optimizer; the
// caller must not hand the same Gaussian to two optimizers that run
// concurrently.
type Gaussian struct {
	Mean      *autodiff.Parameter
	SqrtCov   []*autodiff.Parameter
	Transform Transform
}

// NewGaussian creates an M-dimensional Gaussian with l channels, initialized
// to zero mean and identity covariance.
func NewGaussian(name string, m, l int) *Gaussian {
	g := &Gaussian{
		Mean:    autodiff.NewParameter(name+".mean", mat.NewDense(m, l, nil)),
		SqrtCov: make([]*autodiff.Parameter, l),
	}
	for i := range g.SqrtCov {
		g.SqrtCov[i] = autodiff.NewParameter(fmt.Sprintf("%s.sqrt_cov[%d]", name, i), mat.DenseCopyOf(linalg.Eye(m)))
	}
	return g
}

// Dim returns M, the dimension of each channel.
func (g *Gaussian) Dim() int {
	r, _ := g.Mean.Dims()
	return r
}

// Channels returns L, the number of independent channels.
func (g *Gaussian) Channels() int {
	return len(g.SqrtCov)
}

// TransformOrDefault returns the transform used for natural-gradient steps.
func (g *Gaussian) TransformOrDefault() Transform {
	return Canonical(g.Transform)
}

// Parameters returns the mean followed by the square-root covariances.
func (g *Gaussian) Parameters() []*autodiff.Parameter {
	params := make([]*autodiff.Parameter, 0, 1+len(g.SqrtCov))
	params = append(params, g.Mean)
	return append(params, g.SqrtCov...)
}

// Validate checks the shapes and triangularity of the parameters.
func (g *Gaussian) Validate() error {
	if g.Mean == nil {
		return fmt.Errorf("%w: mean is nil", ErrInvalidShape)
	}
	m, l := g.Mean.Dims()
	if m == 0 {
		return fmt.Errorf("%w: mean has no rows", ErrInvalidShape)
	}
	if l != len(g.SqrtCov) {
		return fmt.Errorf("%w: mean has %d columns but %d square-root covariances", ErrInvalidShape, l, len(g.SqrtCov))
	}
	for i, s := range g.SqrtCov {
		if s == nil {
			return fmt.Errorf("%w: sqrt_cov[%d] is nil", ErrInvalidShape, i)
		}
		r, c := s.Dims()
		if r != m || c != m {
			return fmt.Errorf("%w: sqrt_cov[%d] is %d×%d, want %d×%d", ErrInvalidShape, i, r, c, m, m)
		}
		if !linalg.IsLowerTriangular(s.Value(), 0) {
			return fmt.Errorf("sqrt_cov[%d]: %w", i, ErrNotLowerTriangular)
		}
	}
	return nil
}

// Channel returns copies of the mean and square-root covariance of channel l.
func (g *Gaussian) Channel(l int) (*mat.VecDense, *mat.TriDense) {
	mean := mat.NewVecDense(g.Dim(), mat.Col(nil, l, g.Mean.Value()))
	return mean, linalg.Tril(g.SqrtCov[l].Value())
}

// SetChannel overwrites channel l in place.
func (g *Gaussian) SetChannel(l int, mean *mat.VecDense, sqrtCov *mat.TriDense) {
	g.Mean.Value().SetCol(l, mat.Col(nil, 0, mean))
	g.SqrtCov[l].Value().Copy(sqrtCov)
}

// Covariance returns S Sᵀ for channel l.
func (g *Gaussian) Covariance(l int) *mat.SymDense {
	return linalg.OuterLower(g.SqrtCov[l].Value())
}
