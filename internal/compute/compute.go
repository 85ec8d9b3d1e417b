// Package compute appends computed columns to a table. Each computed column
// is described by a function name and an argument map; arguments are decoded
// once per column, then applied row by row. A cell whose inputs cannot be
// evaluated degrades to null rather than failing the run.
package compute

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tableforge-labs/tableforge/internal/schema"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// UnbucketedLabel is the bucket assigned to rows whose input is blank or
// non-numeric.
const UnbucketedLabel = "unbucketed"

// Apply evaluates the computed columns in order and returns a new table with
// one extra column per spec. Later columns may reference earlier outputs.
// The report supplies inferred date layouts for date_format; it may be nil.
func Apply(specs []transform.ComputedColumn, t *table.Table, rep *schema.Report) (*table.Table, error) {
	out := t
	for i := range specs {
		next, err := applyOne(&specs[i], out, rep, fmt.Sprintf("computed[%d]", i))
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// cellFn produces the computed cell for one row.
type cellFn func(row []table.Value) table.Value

func applyOne(spec *transform.ComputedColumn, t *table.Table, rep *schema.Report, field string) (*table.Table, error) {
	if spec.OutputName == "" {
		return nil, &transform.ValidationError{Field: field + ".output_name", Message: "output name is required"}
	}
	if t.HasColumn(spec.OutputName) {
		return nil, &transform.ValidationError{Field: field + ".output_name", Message: fmt.Sprintf("column %q already exists", spec.OutputName)}
	}

	var (
		fn      cellFn
		colType table.Type
		err     error
	)
	switch spec.Function {
	case transform.FuncConcat:
		fn, err = compileConcat(spec, t, field)
		colType = table.TypeString
	case transform.FuncCoalesce:
		fn, err = compileCoalesce(spec, t, field)
		colType = table.TypeString
	case transform.FuncDateFormat:
		fn, err = compileDateFormat(spec, t, rep, field)
		colType = table.TypeString
	case transform.FuncBucket:
		fn, err = compileBucket(spec, t, field)
		colType = table.TypeString
	default:
		err = &transform.ValidationError{Field: field + ".function", Message: fmt.Sprintf("unknown function %q", spec.Function)}
	}
	if err != nil {
		return nil, err
	}

	cols := append(append([]table.Column{}, t.Columns()...), table.Column{Name: spec.OutputName, Type: colType})
	out, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		next := append(append([]table.Value{}, row...), fn(row))
		if err := out.AppendRow(next); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeArgs(spec *transform.ComputedColumn, dst any, field string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(spec.Args); err != nil {
		return &transform.ValidationError{Field: field + ".args", Message: err.Error()}
	}
	return nil
}

func columnIndexes(t *table.Table, names []string, field string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.ColumnIndex(name)
		if !ok {
			return nil, &transform.ValidationError{Field: field + ".args.columns", Message: fmt.Sprintf("unknown column %q", name)}
		}
		idx[i] = col
	}
	return idx, nil
}

type concatArgs struct {
	Columns   []string `mapstructure:"columns"`
	Separator string   `mapstructure:"separator"`
}

func compileConcat(spec *transform.ComputedColumn, t *table.Table, field string) (cellFn, error) {
	var args concatArgs
	if err := decodeArgs(spec, &args, field); err != nil {
		return nil, err
	}
	if len(args.Columns) == 0 {
		return nil, &transform.ValidationError{Field: field + ".args.columns", Message: "concat needs at least one input column"}
	}
	idx, err := columnIndexes(t, args.Columns, field)
	if err != nil {
		return nil, err
	}
	sep := args.Separator
	return func(row []table.Value) table.Value {
		parts := make([]string, len(idx))
		for i, col := range idx {
			parts[i] = row[col].Render()
		}
		return table.String(strings.Join(parts, sep))
	}, nil
}

type coalesceArgs struct {
	Columns []string `mapstructure:"columns"`
}

func compileCoalesce(spec *transform.ComputedColumn, t *table.Table, field string) (cellFn, error) {
	var args coalesceArgs
	if err := decodeArgs(spec, &args, field); err != nil {
		return nil, err
	}
	if len(args.Columns) == 0 {
		return nil, &transform.ValidationError{Field: field + ".args.columns", Message: "coalesce needs at least one input column"}
	}
	idx, err := columnIndexes(t, args.Columns, field)
	if err != nil {
		return nil, err
	}
	return func(row []table.Value) table.Value {
		for _, col := range idx {
			if !row[col].IsBlank() {
				return table.String(row[col].Render())
			}
		}
		return table.Null()
	}, nil
}

type dateFormatArgs struct {
	Column       string `mapstructure:"column"`
	InputFormat  string `mapstructure:"input_format"`
	OutputFormat string `mapstructure:"output_format"`
}

func compileDateFormat(spec *transform.ComputedColumn, t *table.Table, rep *schema.Report, field string) (cellFn, error) {
	var args dateFormatArgs
	if err := decodeArgs(spec, &args, field); err != nil {
		return nil, err
	}
	if args.Column == "" {
		return nil, &transform.ValidationError{Field: field + ".args.column", Message: "date_format needs an input column"}
	}
	if args.OutputFormat == "" {
		return nil, &transform.ValidationError{Field: field + ".args.output_format", Message: "date_format needs an output format"}
	}
	col, ok := t.ColumnIndex(args.Column)
	if !ok {
		return nil, &transform.ValidationError{Field: field + ".args.column", Message: fmt.Sprintf("unknown column %q", args.Column)}
	}

	layout := args.InputFormat
	if layout == "" && rep != nil {
		layout = rep.DateLayout(args.Column)
	}
	outFormat := args.OutputFormat
	return func(row []table.Value) table.Value {
		d, ok := row[col].Time(layout)
		if !ok {
			return table.Null()
		}
		return table.String(d.Format(outFormat))
	}, nil
}

type bucketArgs struct {
	Column     string    `mapstructure:"column"`
	Boundaries []float64 `mapstructure:"boundaries"`
	Labels     []string  `mapstructure:"labels"`
}

func compileBucket(spec *transform.ComputedColumn, t *table.Table, field string) (cellFn, error) {
	var args bucketArgs
	if err := decodeArgs(spec, &args, field); err != nil {
		return nil, err
	}
	if args.Column == "" {
		return nil, &transform.ValidationError{Field: field + ".args.column", Message: "bucket needs an input column"}
	}
	if len(args.Boundaries) == 0 {
		return nil, &transform.ValidationError{Field: field + ".args.boundaries", Message: "bucket needs at least one boundary"}
	}
	for i := 1; i < len(args.Boundaries); i++ {
		if args.Boundaries[i] <= args.Boundaries[i-1] {
			return nil, &transform.ValidationError{Field: field + ".args.boundaries", Message: "boundaries must be strictly increasing"}
		}
	}
	if len(args.Labels) != len(args.Boundaries)+1 {
		return nil, &transform.ValidationError{
			Field:   field + ".args.labels",
			Message: fmt.Sprintf("need %d labels for %d boundaries, got %d", len(args.Boundaries)+1, len(args.Boundaries), len(args.Labels)),
		}
	}
	col, ok := t.ColumnIndex(args.Column)
	if !ok {
		return nil, &transform.ValidationError{Field: field + ".args.column", Message: fmt.Sprintf("unknown column %q", args.Column)}
	}

	boundaries := args.Boundaries
	labels := args.Labels
	return func(row []table.Value) table.Value {
		f, ok := row[col].Float()
		if !ok {
			return table.String(UnbucketedLabel)
		}
		for i, b := range boundaries {
			if f < b {
				return table.String(labels[i])
			}
		}
		return table.String(labels[len(boundaries)])
	}, nil
}
