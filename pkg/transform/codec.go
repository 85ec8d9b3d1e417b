package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Load reads a Config from YAML.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode transform config: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads a Config from a YAML file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the Config as YAML. Field order is fixed by the struct
// definition and map values serialize with sorted keys, so unchanged
// configs produce byte-identical output.
func (c *Config) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode transform config: %w", err)
	}
	return enc.Close()
}

// SaveFile writes the Config as YAML to path.
func (c *Config) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// CanonicalJSON returns the deterministic JSON form of the config: stable
// struct field order, map keys sorted by the encoder.
func (c *Config) CanonicalJSON() ([]byte, error) {
	return json.Marshal(c)
}

// Fingerprint returns a stable hex digest of the canonical config. Two
// configs with the same content always share a fingerprint, which makes it
// usable as a cache key alongside a dataset version.
func (c *Config) Fingerprint() string {
	b, err := c.CanonicalJSON()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
