// Package pipeline executes a transform configuration end to end: resolve
// the base dataset, run the join plan, apply the filter tree, append
// computed columns, shape the output columns, sort, and paginate. Stage
// order is fixed; given the same config and the same datasets the result is
// byte-for-byte identical.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tableforge-labs/tableforge/internal/compute"
	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/internal/filter"
	"github.com/tableforge-labs/tableforge/internal/join"
	"github.com/tableforge-labs/tableforge/internal/schema"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// DefaultMaxLimit caps the page size when the runner does not set one.
const DefaultMaxLimit = 1000

// Runner executes transform configs against a dataset source.
type Runner struct {
	Resolver dataset.Resolver
	// MaxLimit caps the effective page size. Zero means DefaultMaxLimit.
	MaxLimit int
	Logger   *slog.Logger
}

// Page selects the slice of the result to return.
type Page struct {
	Offset int
	Limit  int
}

// ColumnMeta describes one output column.
type ColumnMeta struct {
	Name  string     `json:"name"`
	Label string     `json:"label,omitempty"`
	Type  table.Type `json:"type"`
}

// Meta carries result metadata alongside the rows.
type Meta struct {
	Columns           []ColumnMeta         `json:"columns"`
	JoinQuality       []join.QualityReport `json:"join_quality,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
	ConfigFingerprint string               `json:"config_fingerprint"`
}

// Result is one page of a transform run. Rows are maps so JSON encoding
// sorts the keys and output stays deterministic.
type Result struct {
	Rows   []map[string]any `json:"rows"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
	Meta   Meta             `json:"meta"`
}

// Run executes cfg and returns the requested page.
func (r *Runner) Run(ctx context.Context, cfg *transform.Config, page Page) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if page.Offset < 0 {
		return nil, &transform.ValidationError{Field: "offset", Message: "offset must not be negative"}
	}
	log := r.logger()

	base, err := r.Resolver.Resolve(ctx, string(cfg.Primary()))
	if err != nil {
		return nil, err
	}
	log.Debug("resolved base dataset", "dataset", cfg.Primary(), "rows", base.NumRows())

	t, quality, err := join.Execute(base, cfg.Joins, func(ref string) (*table.Table, error) {
		return r.Resolver.Resolve(ctx, ref)
	})
	if err != nil {
		return nil, err
	}

	rep := schema.Inspect(t)
	review := transform.ReviewAgainst(cfg, t.ColumnNames())
	if !review.OK() {
		return nil, &transform.ValidationError{Field: "config", Message: review.Errors[0]}
	}

	pred, err := filter.Compile(cfg.Filter, t, rep)
	if err != nil {
		return nil, err
	}
	t, err = filter.Apply(pred, t)
	if err != nil {
		return nil, err
	}
	log.Debug("filtered rows", "rows", t.NumRows())

	t, err = compute.Apply(cfg.Computed, t, rep)
	if err != nil {
		return nil, err
	}

	t, labels, err := selectColumns(t, cfg.Columns)
	if err != nil {
		return nil, err
	}

	if cfg.Sort != nil {
		if err := sortRows(t, cfg.Sort); err != nil {
			return nil, err
		}
	}

	total := t.NumRows()
	offset, limit := r.clampPage(cfg, page, total)
	rows := pageRows(t, offset, limit)
	log.Debug("run complete", "config", cfg.Name, "total", total, "offset", offset, "limit", limit)

	return &Result{
		Rows:   rows,
		Total:  total,
		Offset: offset,
		Limit:  limit,
		Meta: Meta{
			Columns:           columnMeta(t, labels),
			JoinQuality:       quality,
			Warnings:          review.Warnings,
			ConfigFingerprint: cfg.Fingerprint(),
		},
	}, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (r *Runner) maxLimit() int {
	if r.MaxLimit > 0 {
		return r.MaxLimit
	}
	return DefaultMaxLimit
}

// clampPage resolves the effective offset and limit: a missing limit falls
// back to the config's page size, then to the runner cap; the cap always
// bounds the result.
func (r *Runner) clampPage(cfg *transform.Config, page Page, total int) (int, int) {
	limit := page.Limit
	if limit <= 0 {
		limit = cfg.PageSize
	}
	if limit <= 0 || limit > r.maxLimit() {
		limit = r.maxLimit()
	}
	offset := page.Offset
	if offset > total {
		offset = total
	}
	return offset, limit
}

func pageRows(t *table.Table, offset, limit int) []map[string]any {
	end := offset + limit
	if end > t.NumRows() {
		end = t.NumRows()
	}
	rows := make([]map[string]any, 0, end-offset)
	names := t.ColumnNames()
	for i := offset; i < end; i++ {
		row := t.Row(i)
		m := make(map[string]any, len(names))
		for j, name := range names {
			m[name] = row[j].Native()
		}
		rows = append(rows, m)
	}
	return rows
}

// selectColumns projects and reorders the output columns. An empty selection
// keeps every column in table order.
func selectColumns(t *table.Table, selected []transform.OutputColumn) (*table.Table, map[string]string, error) {
	labels := make(map[string]string, len(selected))
	if len(selected) == 0 {
		return t, labels, nil
	}

	idx := make([]int, 0, len(selected))
	cols := make([]table.Column, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for i, oc := range selected {
		col, ok := t.ColumnIndex(oc.Name)
		if !ok {
			return nil, nil, &transform.ValidationError{
				Field:   fmt.Sprintf("columns[%d]", i),
				Message: fmt.Sprintf("unknown column %q", oc.Name),
			}
		}
		if seen[oc.Name] {
			continue
		}
		seen[oc.Name] = true
		idx = append(idx, col)
		cols = append(cols, t.Columns()[col])
		if oc.Label != "" {
			labels[oc.Name] = oc.Label
		}
	}

	out, err := table.New(cols...)
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		next := make([]table.Value, len(idx))
		for j, col := range idx {
			next[j] = row[col]
		}
		if err := out.AppendRow(next); err != nil {
			return nil, nil, err
		}
	}
	return out, labels, nil
}

// sortRows orders the table's rows in place on one column. The sort is
// stable so ties keep their pipeline order. Values compare numerically when
// both sides parse as numbers, otherwise as strings; blanks sort last under
// asc and first under desc.
func sortRows(t *table.Table, spec *transform.SortSpec) error {
	col, ok := t.ColumnIndex(spec.Column)
	if !ok {
		return &transform.ValidationError{Field: "sort.column", Message: fmt.Sprintf("unknown column %q", spec.Column)}
	}
	desc := spec.Direction == "desc"
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			i, j = j, i
		}
		return valueLess(rows[i][col], rows[j][col])
	})
	return nil
}

func valueLess(a, b table.Value) bool {
	ab, bb := a.IsBlank(), b.IsBlank()
	if ab || bb {
		// Blank sorts after any value.
		return !ab && bb
	}
	af, aok := a.Float()
	bf, bok := b.Float()
	if aok && bok {
		return af < bf
	}
	return a.Render() < b.Render()
}

func columnMeta(t *table.Table, labels map[string]string) []ColumnMeta {
	cols := t.Columns()
	out := make([]ColumnMeta, len(cols))
	for i, c := range cols {
		out[i] = ColumnMeta{Name: c.Name, Label: labels[c.Name], Type: c.Type}
	}
	return out
}
