package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "natgrad %s\n", version)
			return err
		},
	}
}
