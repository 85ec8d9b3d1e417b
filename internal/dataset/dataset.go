// Package dataset resolves named datasets into in-memory tables. Sources
// self-register by type so new backends only need an init side effect in
// their own package.
package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

// Resolver loads named datasets from one source.
type Resolver interface {
	// Resolve returns the named dataset as a table.
	Resolve(ctx context.Context, name string) (*table.Table, error)
	// Names lists the dataset names this source can resolve.
	Names(ctx context.Context) ([]string, error)
}

// NotFoundError reports a dataset the source does not know.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %q not found", e.Name)
}

// SourceConfig selects and parameterizes a dataset source.
type SourceConfig struct {
	// Type names a registered source ("csv", "duckdb", "sqlite", "postgres").
	Type string `koanf:"type"`
	// Path is the data directory or database file, depending on the type.
	Path string `koanf:"path"`
	// DSN is the connection string for server-backed sources.
	DSN string `koanf:"dsn"`
}

// Factory builds a resolver from a source config.
type Factory func(cfg SourceConfig) (Resolver, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a source type available to Open. It panics on duplicate
// registration; sources register from init.
func Register(typ string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[typ]; dup {
		panic(fmt.Sprintf("dataset: source %q registered twice", typ))
	}
	factories[typ] = f
}

// Types lists the registered source types.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for typ := range factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Open builds a resolver for the configured source type.
func Open(cfg SourceConfig) (Resolver, error) {
	mu.RLock()
	f, ok := factories[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dataset: unknown source type %q (have %v)", cfg.Type, Types())
	}
	return f(cfg)
}
