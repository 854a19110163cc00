package gp

import (
	"math"

	"github.com/born-ml/natgrad/internal/autodiff"
)

// GaussianLikelihood is y = f + ε with ε ~ N(0, σ²), σ² stored in log space.
type GaussianLikelihood struct {
	LogVariance *autodiff.Parameter
}

// NewGaussianLikelihood creates a Gaussian likelihood with noise variance
// variance.
func NewGaussianLikelihood(variance float64) *GaussianLikelihood {
	return &GaussianLikelihood{
		LogVariance: autodiff.NewScalar("likelihood.log_variance", math.Log(variance)),
	}
}

// Variance returns σ².
func (l *GaussianLikelihood) Variance() float64 {
	return math.Exp(l.LogVariance.Scalar())
}

// Parameters returns the likelihood hyperparameters.
func (l *GaussianLikelihood) Parameters() []*autodiff.Parameter {
	return []*autodiff.Parameter{l.LogVariance}
}

// VariationalExpectation returns E[log N(y | f, σ²)] for f ~ N(mean, variance).
func (l *GaussianLikelihood) VariationalExpectation(y, mean, variance float64) float64 {
	noise := l.Variance()
	r := y - mean
	return -0.5*math.Log(2*math.Pi*noise) - (r*r+variance)/(2*noise)
}
