// Package duckdb resolves datasets from tables in a DuckDB database file.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/pkg/table"
)

func init() {
	dataset.Register("duckdb", func(cfg dataset.SourceConfig) (dataset.Resolver, error) {
		return Open(cfg.Path)
	})
}

// Resolver loads DuckDB tables as datasets.
type Resolver struct {
	db *sql.DB
}

// Open connects to the DuckDB database at path. An empty path opens an
// in-memory database.
func Open(path string) (*Resolver, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open %q: %w", path, err)
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Resolve(ctx context.Context, name string) (*table.Table, error) {
	if ok, err := r.exists(ctx, name); err != nil {
		return nil, err
	} else if !ok {
		return nil, &dataset.NotFoundError{Name: name}
	}
	return dataset.QueryTable(ctx, r.db, name)
}

func (r *Resolver) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *Resolver) exists(ctx context.Context, name string) (bool, error) {
	if !dataset.ValidIdent(name) {
		return false, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'main' AND table_name = ?`,
		name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("duckdb: check table %q: %w", name, err)
	}
	return count > 0, nil
}

// Close releases the database connection.
func (r *Resolver) Close() error { return r.db.Close() }
