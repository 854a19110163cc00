// Package main provides the natgrad CLI.
package main

import (
	"os"

	"github.com/born-ml/natgrad/cmd/natgrad/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
