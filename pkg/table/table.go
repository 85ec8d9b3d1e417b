// Package table defines the in-memory tabular data model the transform
// engine operates on: ordered, uniquely named, typed columns and rows of
// tagged cell values. Tables are treated as immutable snapshots by the
// engine; every pipeline stage builds a new table rather than mutating
// its input.
package table

import "fmt"

// Type is the declared (or inferred) logical type of a column.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeBool    Type = "boolean"
	TypeDate    Type = "date"
)

// Column describes one named, typed column.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Table is an ordered sequence of named, typed columns plus an ordered
// sequence of rows. Every row holds exactly one value (possibly null) per
// declared column.
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]Value
}

// New creates an empty table with the given columns.
// Column names must be unique within the table.
func New(cols ...Column) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("table: column %d has no name", i)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.Name)
		}
		index[c.Name] = i
	}
	return &Table{cols: append([]Column(nil), cols...), index: index}, nil
}

// MustNew is New for statically known schemas; it panics on invalid columns.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the ordered column descriptors.
func (t *Table) Columns() []Column { return t.cols }

// ColumnNames returns the ordered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// AppendRow adds a row. The row length must match the column count.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("table: row has %d values, want %d", len(row), len(t.cols))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the i-th row. The returned slice must not be modified.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Rows returns all rows. The returned slices must not be modified.
func (t *Table) Rows() [][]Value { return t.rows }

// Value returns the cell at (row, col).
func (t *Table) Value(row, col int) Value { return t.rows[row][col] }
