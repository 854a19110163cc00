package cmd

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/natgrad/autodiff"
	"github.com/born-ml/natgrad/gp"
	"github.com/born-ml/natgrad/optim"
	"github.com/born-ml/natgrad/variational"
)

func recoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Take one full natural-gradient step and compare with the exact objective",
		Long: `Fits q with a single natural-gradient step of size gamma on the full data.

With --model vgp the reference is the exact GPR log marginal likelihood. With
--model svgp it is the collapsed SGPR bound for the same inducing inputs.
For gamma = 1 and the natural transform the reference is reached in one step.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadExperiment(a.v)
			if err != nil {
				return err
			}
			return a.recover(cmd.OutOrStdout(), e)
		},
	}

	cmd.Flags().String("model", "vgp", "model to fit (vgp, svgp)")
	cmd.Flags().Float64("gamma", 1, "natural-gradient step size")
	addExperimentFlags(cmd.Flags())

	return cmd
}

// recoverTarget is a variational model together with its exact counterpart.
type recoverTarget struct {
	q             *variational.Gaussian
	loss          autodiff.Closure
	elbo          func() (float64, error)
	reference     float64
	referenceName string
}

func newRecoverTarget(e experiment, data *gp.Dataset) (recoverTarget, error) {
	kernel, likelihood := e.kernel(), e.likelihood()

	switch e.Model {
	case "vgp":
		model := gp.NewVGP(data, kernel, likelihood)
		lml, err := gp.NewGPR(data, kernel, likelihood).LogMarginalLikelihood()
		if err != nil {
			return recoverTarget{}, err
		}
		return recoverTarget{
			q:             model.Q(),
			loss:          model.Loss(nil),
			elbo:          model.ELBO,
			reference:     lml,
			referenceName: "gpr log marginal likelihood",
		}, nil
	case "svgp":
		z := e.inducingInputs(data).X
		model := gp.NewSVGP(z, data.Outputs(), data.Len(), kernel, likelihood)
		bound, err := gp.NewSGPR(data, z, kernel, likelihood).ELBO()
		if err != nil {
			return recoverTarget{}, err
		}
		return recoverTarget{
			q:             model.Q(),
			loss:          model.Loss(gp.FullBatch(data), nil),
			elbo:          func() (float64, error) { return model.ELBO(data) },
			reference:     bound,
			referenceName: "sgpr collapsed bound",
		}, nil
	default:
		return recoverTarget{}, fmt.Errorf("unknown model %q", e.Model)
	}
}

func (a *app) recover(out io.Writer, e experiment) error {
	transform, err := e.transform()
	if err != nil {
		return err
	}
	target, err := newRecoverTarget(e, gp.NewSynthetic(e.N, e.Dim, e.Seed))
	if err != nil {
		return err
	}
	target.q.Transform = transform

	before, err := target.elbo()
	if err != nil {
		return err
	}
	err = optim.Minimize(target.loss, []*variational.Gaussian{target.q}, optim.NaturalGradientConfig{
		Gamma:  e.Gamma,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	after, err := target.elbo()
	if err != nil {
		return err
	}

	a.logger.Info("recovery step",
		zap.String("model", e.Model),
		zap.String("transform", transform.Name()),
		zap.Float64("gamma", e.Gamma),
		zap.Float64("gap", math.Abs(after-target.reference)))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "elbo before\t%.6f\n", before)
	fmt.Fprintf(w, "elbo after\t%.6f\n", after)
	fmt.Fprintf(w, "%s\t%.6f\n", target.referenceName, target.reference)
	return w.Flush()
}
