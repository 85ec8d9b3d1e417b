// Package sqlitedb resolves datasets from tables in a SQLite database file.
// It uses the pure-Go driver so builds stay cgo-free.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/pkg/table"
)

func init() {
	dataset.Register("sqlite", func(cfg dataset.SourceConfig) (dataset.Resolver, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite: source needs a path")
		}
		return Open(cfg.Path)
	})
}

// Resolver loads SQLite tables as datasets.
type Resolver struct {
	db *sql.DB
}

// Open connects to the SQLite database at path.
func Open(path string) (*Resolver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
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
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
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
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: check table %q: %w", name, err)
	}
	return count > 0, nil
}

// Close releases the database connection.
func (r *Resolver) Close() error { return r.db.Close() }
