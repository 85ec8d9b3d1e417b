// Package config loads the application configuration that surrounds a
// transform run: where datasets come from, server settings, and output
// preferences. Transform configs themselves live in pkg/transform.
package config

import (
	"time"

	"github.com/tableforge-labs/tableforge/internal/dataset"
)

// Defaults applied before any config file, env var, or flag.
const (
	DefaultConfigsDir = "configs"
	DefaultSourceType = "csv"
	DefaultSourcePath = "data"
	DefaultPort       = 8090
	DefaultMaxLimit   = 1000
	DefaultCacheTTL   = 5 * time.Minute
	DefaultOutput     = "auto"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Port the API listens on.
	Port int `koanf:"port"`
	// Watch reloads transform configs when the configs directory changes.
	Watch bool `koanf:"watch"`
}

// Config is the fully resolved application configuration.
type Config struct {
	// Source selects where datasets are resolved from.
	Source dataset.SourceConfig `koanf:"source"`
	// ConfigsDir holds the transform config YAML files.
	ConfigsDir string `koanf:"configs_dir"`

	Server ServerConfig `koanf:"server"`

	// MaxLimit caps the page size of any run.
	MaxLimit int `koanf:"max_limit"`
	// CacheTTL bounds how long resolved datasets are reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
	// Output selects the CLI render format: auto, table, json, csv, markdown.
	Output string `koanf:"output"`
}
