// Package schema infers column types and basic data-quality signals from
// tables, and validates tables against declared column requirements. All
// functions are pure: they never modify the table they inspect.
package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

// sampleLimit caps how many rows contribute to type inference and distinct
// counting. Null counts always cover the whole table.
const sampleLimit = 5000

// distinctLimit caps the tracked distinct values per column; columns with
// higher cardinality report the cap.
const distinctLimit = 10000

// Profile is the inferred description of one column.
type Profile struct {
	Name          string     `json:"name" yaml:"name"`
	Type          table.Type `json:"type" yaml:"type"`
	NullCount     int        `json:"null_count" yaml:"null_count"`
	DistinctCount int        `json:"distinct_count" yaml:"distinct_count"`

	// DateFormat is the layout that matched during inference; set only for
	// date-typed columns.
	DateFormat string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
}

// Report is the full inspection result for a table.
type Report struct {
	RowCount int       `json:"row_count"`
	Columns  []Profile `json:"columns"`

	byName map[string]int
}

// Column returns the profile of the named column.
func (r *Report) Column(name string) (Profile, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Profile{}, false
	}
	return r.Columns[i], true
}

// DateLayout returns the inferred date layout of the named column, or ""
// when the column is not date-typed.
func (r *Report) DateLayout(name string) string {
	p, ok := r.Column(name)
	if !ok {
		return ""
	}
	return p.DateFormat
}

// Inspect derives a schema report from the table. Inference per column
// tries boolean, then integer, then float, then date (fixed layout set),
// and falls back to string; a column only gets a non-string type when every
// sampled non-null value parses as that type.
func Inspect(t *table.Table) *Report {
	cols := t.Columns()
	rep := &Report{
		RowCount: t.NumRows(),
		Columns:  make([]Profile, len(cols)),
		byName:   make(map[string]int, len(cols)),
	}

	sample := t.NumRows()
	if sample > sampleLimit {
		sample = sampleLimit
	}

	for ci, col := range cols {
		prof := Profile{Name: col.Name}
		distinct := make(map[string]struct{})

		allBool := true
		allInt := true
		allFloat := true
		allDate := true
		dateLayout := ""
		nonNull := 0

		for ri := 0; ri < t.NumRows(); ri++ {
			v := t.Value(ri, ci)
			if isNullish(v) {
				prof.NullCount++
				continue
			}
			if ri >= sample {
				continue
			}
			nonNull++

			if len(distinct) < distinctLimit {
				distinct[v.Render()] = struct{}{}
			}

			if allBool && !looksBool(v) {
				allBool = false
			}
			if allInt || allFloat {
				f, ok := v.Float()
				if !ok {
					allInt, allFloat = false, false
				} else if allInt && f != math.Trunc(f) {
					allInt = false
				}
			}
			if allDate {
				layout, ok := looksDate(v)
				if !ok {
					allDate = false
				} else if dateLayout == "" {
					dateLayout = layout
				}
			}
		}

		prof.DistinctCount = len(distinct)
		switch {
		case nonNull == 0:
			prof.Type = table.TypeString
		case allBool:
			prof.Type = table.TypeBool
		case allInt:
			prof.Type = table.TypeInteger
		case allFloat:
			prof.Type = table.TypeFloat
		case allDate:
			prof.Type = table.TypeDate
			prof.DateFormat = dateLayout
		default:
			prof.Type = table.TypeString
		}

		rep.Columns[ci] = prof
		rep.byName[col.Name] = ci
	}

	return rep
}

// isNullish treats true nulls and blank-rendering strings as null for
// profiling, matching how upstream exports encode missing values.
func isNullish(v table.Value) bool {
	if v.IsBlank() {
		return true
	}
	if v.Kind() == table.KindString {
		switch strings.ToLower(strings.TrimSpace(v.Render())) {
		case "nan", "none", "null":
			return true
		}
	}
	return false
}

func looksBool(v table.Value) bool {
	if v.Kind() == table.KindBool {
		return true
	}
	if v.Kind() != table.KindString {
		return false
	}
	_, err := strconv.ParseBool(strings.TrimSpace(v.Render()))
	return err == nil
}

func looksDate(v table.Value) (string, bool) {
	switch v.Kind() {
	case table.KindDate:
		return "", true
	case table.KindString:
		_, layout, ok := table.ParseDate(v.Render())
		return layout, ok
	}
	return "", false
}
