// Package export renders a transform configuration and its resolved dataset
// schemas into a reviewable artifact. The artifact is deterministic so it
// can live in version control next to the config.
package export

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/internal/schema"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// DatasetSchema is one resolved dataset in the artifact.
type DatasetSchema struct {
	Name     string           `yaml:"name"`
	RowCount int              `yaml:"row_count"`
	Columns  []schema.Profile `yaml:"columns"`
}

// JoinSummary is one join step in the artifact.
type JoinSummary struct {
	Right       string   `yaml:"right"`
	Type        string   `yaml:"type"`
	RightPrefix string   `yaml:"right_prefix"`
	Keys        []string `yaml:"keys"`
}

// Artifact is the full description of a transform config.
type Artifact struct {
	Name        string          `yaml:"name,omitempty"`
	Fingerprint string          `yaml:"fingerprint"`
	Datasets    []DatasetSchema `yaml:"datasets"`
	Joins       []JoinSummary   `yaml:"joins,omitempty"`
	// SuggestedKeys lists join key candidates for datasets the config
	// references but never joins.
	SuggestedKeys   []string `yaml:"suggested_keys,omitempty"`
	FilterColumns   []string `yaml:"filter_columns,omitempty"`
	ComputedOutputs []string `yaml:"computed_outputs,omitempty"`
	OutputColumns   []string `yaml:"output_columns,omitempty"`
	SortColumn      string   `yaml:"sort_column,omitempty"`
	PageSize        int      `yaml:"page_size,omitempty"`
}

// Describe resolves every dataset the config references and builds the
// artifact.
func Describe(ctx context.Context, r dataset.Resolver, cfg *transform.Config) (*Artifact, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tables := make(map[string][]string, len(cfg.Datasets))
	datasets := make([]DatasetSchema, 0, len(cfg.Datasets))
	for _, ref := range cfg.Datasets {
		t, err := r.Resolve(ctx, string(ref))
		if err != nil {
			return nil, err
		}
		rep := schema.Inspect(t)
		tables[string(ref)] = t.ColumnNames()
		datasets = append(datasets, DatasetSchema{
			Name:     string(ref),
			RowCount: rep.RowCount,
			Columns:  rep.Columns,
		})
	}

	joins := make([]JoinSummary, 0, len(cfg.Joins))
	for _, step := range cfg.Joins {
		keys := make([]string, len(step.Keys))
		for i, kp := range step.Keys {
			keys[i] = fmt.Sprintf("%s = %s", kp.Left, kp.Right)
		}
		joins = append(joins, JoinSummary{
			Right:       string(step.Right),
			Type:        string(step.Type),
			RightPrefix: step.RightPrefix,
			Keys:        keys,
		})
	}

	// Datasets the config references but never joins get a key suggestion
	// against the primary dataset.
	joined := map[string]bool{string(cfg.Primary()): true}
	for _, step := range cfg.Joins {
		joined[string(step.Right)] = true
	}
	var suggested []string
	primaryCols := tables[string(cfg.Primary())]
	for _, ref := range cfg.Datasets {
		if joined[string(ref)] {
			continue
		}
		if left, right, ok := schema.SuggestJoinKeys(primaryCols, tables[string(ref)]); ok {
			suggested = append(suggested, fmt.Sprintf("%s: %s = %s", ref, left, right))
		}
	}

	computed := make([]string, 0, len(cfg.Computed))
	for _, cc := range cfg.Computed {
		computed = append(computed, fmt.Sprintf("%s (%s)", cc.OutputName, cc.Function))
	}
	outputs := make([]string, 0, len(cfg.Columns))
	for _, oc := range cfg.Columns {
		outputs = append(outputs, oc.Name)
	}
	sortColumn := ""
	if cfg.Sort != nil {
		sortColumn = fmt.Sprintf("%s %s", cfg.Sort.Column, cfg.Sort.Direction)
	}

	return &Artifact{
		Name:            cfg.Name,
		Fingerprint:     cfg.Fingerprint(),
		Datasets:        datasets,
		Joins:           joins,
		SuggestedKeys:   suggested,
		FilterColumns:   cfg.FilterColumns(),
		ComputedOutputs: computed,
		OutputColumns:   outputs,
		SortColumn:      sortColumn,
		PageSize:        cfg.PageSize,
	}, nil
}

// WriteYAML renders the artifact as YAML.
func (a *Artifact) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return enc.Close()
}
