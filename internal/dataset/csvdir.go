package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

func init() {
	Register("csv", func(cfg SourceConfig) (Resolver, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("dataset: csv source needs a path")
		}
		return NewDirResolver(cfg.Path), nil
	})
}

// DirResolver maps dataset names to CSV files in a directory: dataset
// "orders" resolves to <dir>/orders.csv.
type DirResolver struct {
	dir string
}

// NewDirResolver resolves datasets from CSV files under dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{dir: dir}
}

func (r *DirResolver) Resolve(ctx context.Context, name string) (*table.Table, error) {
	if strings.ContainsAny(name, `/\`) || name == "" {
		return nil, &NotFoundError{Name: name}
	}
	path := filepath.Join(r.dir, name+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	return t, nil
}

func (r *DirResolver) Names(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: list %s: %w", r.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := strings.CutSuffix(e.Name(), ".csv"); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadCSV parses CSV data into a table. The first record is the header; a
// leading byte order mark is stripped. Empty cells load as null. All columns
// load as strings; typing is inferred downstream.
func ReadCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := make([]table.Column, len(header))
	for i, name := range header {
		cols[i] = table.Column{Name: strings.TrimSpace(name), Type: table.TypeString}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]table.Value, len(cols))
		for i := range cols {
			if i >= len(rec) || rec[i] == "" {
				row[i] = table.Null()
				continue
			}
			row[i] = table.String(rec[i])
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}
