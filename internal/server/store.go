package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// ConfigStore holds the transform configs loaded from a directory. The
// config name is the file name without its extension.
type ConfigStore struct {
	dir string

	mu      sync.RWMutex
	configs map[string]*transform.Config
}

// NewConfigStore creates a store over dir and loads it once.
func NewConfigStore(dir string) (*ConfigStore, error) {
	s := &ConfigStore{dir: dir, configs: map[string]*transform.Config{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every config file in the directory. Files that fail to
// parse are skipped; the error reports the first failure after a full pass.
func (s *ConfigStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read configs dir %s: %w", s.dir, err)
	}

	configs := make(map[string]*transform.Config)
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		cfg, err := transform.LoadFile(filepath.Join(s.dir, name))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key := strings.TrimSuffix(name, ext)
		if cfg.Name == "" {
			cfg.Name = key
		}
		configs[key] = cfg
	}

	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
	return firstErr
}

// Get returns the named config.
func (s *ConfigStore) Get(name string) (*transform.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// Names lists the loaded config names in sorted order.
func (s *ConfigStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.configs))
	for n := range s.configs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
