package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/natgrad/gp"
	"github.com/born-ml/natgrad/optim"
	"github.com/born-ml/natgrad/variational"
)

func trainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit an SVGP by alternating natural-gradient and first-order steps",
		Long: `Fits an SVGP on synthetic data with minibatches.

Every iteration takes one natural-gradient step of size gamma on q and one
--optimizer (adam or sgd) step on the kernel and likelihood hyperparameters,
each on its own batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadExperiment(a.v)
			if err != nil {
				return err
			}
			return a.train(cmd.OutOrStdout(), e)
		},
	}

	cmd.Flags().Int("iterations", 100, "number of training iterations")
	cmd.Flags().Float64("gamma", 0.1, "natural-gradient step size")
	cmd.Flags().String("optimizer", "adam", "optimizer for the hyperparameters (adam, sgd)")
	cmd.Flags().Float64("lr", 0.01, "learning rate for the hyperparameters")
	cmd.Flags().Float64("momentum", 0.9, "momentum for --optimizer sgd")
	cmd.Flags().Int("batch", 32, "minibatch size")
	addExperimentFlags(cmd.Flags())

	return cmd
}

func (a *app) train(out io.Writer, e experiment) error {
	if e.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", e.Iterations)
	}
	transform, err := e.transform()
	if err != nil {
		return err
	}

	data := gp.NewSynthetic(e.N, e.Dim, e.Seed)
	batches, err := gp.NewMinibatches(data, e.Batch, e.Seed)
	if err != nil {
		return err
	}
	kernel, likelihood := e.kernel(), e.likelihood()
	model := gp.NewSVGP(e.inducingInputs(data).X, data.Outputs(), data.Len(), kernel, likelihood)
	model.Q().Transform = transform

	natgrad, err := optim.NewNaturalGradient([]*variational.Gaussian{model.Q()}, optim.NaturalGradientConfig{
		Gamma:  e.Gamma,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	hyper := optim.Partition(model.Parameters(), natgrad.Parameters())
	hyperOpt, err := e.hyperOptimizer(hyper)
	if err != nil {
		return err
	}

	qLoss := model.Loss(batches, nil)
	hyperLoss := model.Loss(batches, hyper)
	logEvery := max(1, e.Iterations/10)

	for it := 1; it <= e.Iterations; it++ {
		if err := natgrad.Step(qLoss); err != nil {
			return fmt.Errorf("iteration %d: %w", it, err)
		}
		_, grads, err := hyperLoss()
		if err != nil {
			return fmt.Errorf("iteration %d: hyperparameter gradients: %w", it, err)
		}
		hyperOpt.Step(grads)

		if it%logEvery == 0 || it == e.Iterations {
			elbo, err := model.ELBO(data)
			if err != nil {
				return fmt.Errorf("iteration %d: %w", it, err)
			}
			a.logger.Info("training",
				zap.Int("iteration", it),
				zap.Int("epoch", batches.Epoch()),
				zap.Float64("elbo", elbo),
				zap.Float64("variance", kernel.Variance()),
				zap.Float64("lengthscale", kernel.Lengthscale()),
				zap.Float64("noise", likelihood.Variance()))
		}
	}

	elbo, err := model.ELBO(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "iterations %d\nelbo %.6f\nvariance %.6f\nlengthscale %.6f\nnoise %.6f\n",
		e.Iterations, elbo, kernel.Variance(), kernel.Lengthscale(), likelihood.Variance())
	return err
}
