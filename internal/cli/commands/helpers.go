// Package commands implements the tableforge subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/config"
	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/internal/pipeline"
	"github.com/tableforge-labs/tableforge/pkg/transform"

	// Register the dataset sources.
	_ "github.com/tableforge-labs/tableforge/internal/dataset/duckdb"
	_ "github.com/tableforge-labs/tableforge/internal/dataset/postgres"
	_ "github.com/tableforge-labs/tableforge/internal/dataset/sqlitedb"
)

// currentConfig returns the loaded app config, falling back to defaults so
// commands stay usable in tests that skip the root command.
func currentConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Source:     dataset.SourceConfig{Type: config.DefaultSourceType, Path: config.DefaultSourcePath},
		ConfigsDir: config.DefaultConfigsDir,
		MaxLimit:   config.DefaultMaxLimit,
		CacheTTL:   config.DefaultCacheTTL,
		Output:     config.DefaultOutput,
	}
}

// openResolver builds the dataset resolver for the configured source,
// wrapped in the TTL cache.
func openResolver(cfg *config.Config) (*dataset.CachingResolver, error) {
	inner, err := dataset.Open(cfg.Source)
	if err != nil {
		return nil, err
	}
	return dataset.NewCachingResolver(inner, cfg.CacheTTL), nil
}

// newRunner wires a pipeline runner from the app config.
func newRunner(cmd *cobra.Command, cfg *config.Config) (*pipeline.Runner, *dataset.CachingResolver, error) {
	resolver, err := openResolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	runner := &pipeline.Runner{
		Resolver: resolver,
		MaxLimit: cfg.MaxLimit,
		Logger:   config.GetLogger(cmd.Context()),
	}
	return runner, resolver, nil
}

// loadTransform reads a transform config from a path.
func loadTransform(path string) (*transform.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("transform config %s: %w", path, err)
	}
	return transform.LoadFile(path)
}
