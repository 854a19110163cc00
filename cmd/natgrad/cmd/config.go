package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/natgrad/autodiff"
	"github.com/born-ml/natgrad/gp"
	"github.com/born-ml/natgrad/optim"
	"github.com/born-ml/natgrad/variational"
)

// experiment is the configuration shared by recover and train. Every field
// can be set by flag, by NATGRAD_<KEY> or in the config file.
type experiment struct {
	Model       string  `mapstructure:"model"`
	N           int     `mapstructure:"n"`
	Dim         int     `mapstructure:"dim"`
	Inducing    int     `mapstructure:"inducing"`
	Seed        int64   `mapstructure:"seed"`
	Variance    float64 `mapstructure:"variance"`
	Lengthscale float64 `mapstructure:"lengthscale"`
	Noise       float64 `mapstructure:"noise"`
	Gamma       float64 `mapstructure:"gamma"`
	Transform   string  `mapstructure:"transform"`
	LR          float64 `mapstructure:"lr"`
	Optimizer   string  `mapstructure:"optimizer"`
	Momentum    float64 `mapstructure:"momentum"`
	Batch       int     `mapstructure:"batch"`
	Iterations  int     `mapstructure:"iterations"`
}

func addExperimentFlags(flags *pflag.FlagSet) {
	flags.Int("n", 100, "number of synthetic data points")
	flags.Int("dim", 2, "input dimension")
	flags.Int("inducing", 20, "number of inducing points (svgp)")
	flags.Int64("seed", 1, "random seed")
	flags.Float64("variance", 1, "initial kernel variance")
	flags.Float64("lengthscale", 1, "initial kernel lengthscale")
	flags.Float64("noise", 0.1, "initial likelihood variance")
	flags.String("transform", "natural", "natural-gradient parameterization (natural, xi); xi needs a small --gamma")
}

func loadExperiment(v *viper.Viper) (experiment, error) {
	var e experiment
	if err := v.Unmarshal(&e); err != nil {
		return e, fmt.Errorf("decode config: %w", err)
	}
	if e.N <= 0 || e.Dim <= 0 {
		return e, fmt.Errorf("n and dim must be positive, got %d and %d", e.N, e.Dim)
	}
	if e.Inducing <= 0 || e.Inducing > e.N {
		return e, fmt.Errorf("inducing must be in [1, %d], got %d", e.N, e.Inducing)
	}
	return e, nil
}

func (e experiment) transform() (variational.Transform, error) {
	switch e.Transform {
	case "", "natural":
		return variational.NaturalTransform{}, nil
	case "xi":
		return variational.MeanVarSqrtTransform{}, nil
	default:
		return nil, fmt.Errorf("unknown transform %q", e.Transform)
	}
}

// hyperOptimizer builds the first-order optimizer for the parameters the
// natural-gradient optimizer does not own.
func (e experiment) hyperOptimizer(params []*autodiff.Parameter) (optim.Optimizer, error) {
	switch e.Optimizer {
	case "", "adam":
		return optim.NewAdam(params, optim.AdamConfig{LR: e.LR}), nil
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: e.LR, Momentum: e.Momentum}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", e.Optimizer)
	}
}

func (e experiment) kernel() *gp.SquaredExponential {
	return gp.NewSquaredExponential(e.Variance, e.Lengthscale)
}

func (e experiment) likelihood() *gp.GaussianLikelihood {
	return gp.NewGaussianLikelihood(e.Noise)
}

// inducingInputs picks every (N/M)-th training input.
func (e experiment) inducingInputs(data *gp.Dataset) *gp.Dataset {
	idx := make([]int, e.Inducing)
	for i := range idx {
		idx[i] = i * data.Len() / e.Inducing
	}
	return data.Subset(idx)
}
