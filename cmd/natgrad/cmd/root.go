// Package cmd implements the natgrad commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	envPrefix    = "NATGRAD"
)

// app carries the state shared by all subcommands.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:          "natgrad",
		Short:        "natgrad fits Gaussian-process models with natural gradients.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	cmd.PersistentFlags().String(configFlag, "", "path to a YAML config file")
	cmd.PersistentFlags().String(logLevelFlag, "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		versionCmd(),
		recoverCmd(a),
		trainCmd(a),
	)

	return cmd
}

// init binds flags and environment variables, reads the optional config
// file and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if path := a.v.GetString(configFlag); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	logger, err := newLogger(a.v.GetString(logLevelFlag))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	return cfg.Build()
}
