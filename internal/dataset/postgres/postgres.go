// Package postgres resolves datasets from tables in a PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/pkg/table"
)

func init() {
	dataset.Register("postgres", func(cfg dataset.SourceConfig) (dataset.Resolver, error) {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres: source needs a dsn")
		}
		return Open(cfg.DSN)
	})
}

// Resolver loads tables from the public schema as datasets.
type Resolver struct {
	db *sql.DB
}

// Open connects to the PostgreSQL database at dsn.
func Open(dsn string) (*Resolver, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
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
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tables: %w", err)
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
		`SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = $1`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("postgres: check table %q: %w", name, err)
	}
	return count > 0, nil
}

// Close releases the database connection.
func (r *Resolver) Close() error { return r.db.Close() }
