// Package main provides the CLI for the TableForge transform engine.
package main

import (
	"os"

	"github.com/tableforge-labs/tableforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
