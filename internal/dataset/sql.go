package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

// identRe accepts the table names we are willing to interpolate into SQL.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is safe to use as a SQL table name.
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}

// QueryTable loads every row of the named database table. The name is
// validated rather than quoted; drivers disagree on quoting rules.
func QueryTable(ctx context.Context, db *sql.DB, name string) (*table.Table, error) {
	if !ValidIdent(name) {
		return nil, &NotFoundError{Name: name}
	}
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+name)
	if err != nil {
		return nil, fmt.Errorf("dataset: query %s: %w", name, err)
	}
	defer rows.Close()
	return ScanTable(rows)
}

// ScanTable drains a result set into a table. SQL NULL loads as a null
// cell; other values map onto the closest cell kind.
func ScanTable(rows *sql.Rows) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]table.Column, len(names))
	for i, n := range names {
		cols[i] = table.Column{Name: n, Type: table.TypeString}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]table.Value, len(names))
		for i, v := range raw {
			row[i] = cell(v)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, rows.Err()
}

func cell(v any) table.Value {
	switch val := v.(type) {
	case nil:
		return table.Null()
	case []byte:
		return table.String(string(val))
	case string:
		return table.String(val)
	case int64:
		return table.Number(float64(val))
	case int32:
		return table.Number(float64(val))
	case float64:
		return table.Number(val)
	case float32:
		return table.Number(float64(val))
	case bool:
		return table.Bool(val)
	case time.Time:
		return table.Date(val)
	}
	return table.String(fmt.Sprint(v))
}
