// Package filter compiles a boolean filter tree into a per-row predicate.
// Column lookups, operator dispatch, regex compilation and comparison-value
// parsing all happen once at compile time; evaluating a row allocates
// nothing. Conditions that cannot be evaluated for a row (non-numeric cell
// under a numeric operator, unparsable date) fail closed: the condition is
// false, never an error.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tableforge-labs/tableforge/internal/schema"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// Predicate decides whether a row is kept.
type Predicate func(row []table.Value) bool

var fold = cases.Fold()

// Compile turns the filter tree into a predicate bound to the table's
// schema. A nil node compiles to a predicate that keeps every row. The
// report supplies inferred date layouts for date operators; it may be nil.
func Compile(node *transform.FilterNode, t *table.Table, rep *schema.Report) (Predicate, error) {
	if node == nil {
		return func([]table.Value) bool { return true }, nil
	}
	return compileNode(node, t, rep, "filter")
}

func compileNode(n *transform.FilterNode, t *table.Table, rep *schema.Report, field string) (Predicate, error) {
	if n.IsGroup() {
		return compileGroup(n, t, rep, field)
	}
	return compileCondition(n, t, rep, field)
}

func compileGroup(n *transform.FilterNode, t *table.Table, rep *schema.Report, field string) (Predicate, error) {
	children := make([]Predicate, len(n.Children))
	for i := range n.Children {
		p, err := compileNode(&n.Children[i], t, rep, fmt.Sprintf("%s.children[%d]", field, i))
		if err != nil {
			return nil, err
		}
		children[i] = p
	}

	switch n.Op {
	case transform.GroupAnd:
		// An empty AND group is vacuously true.
		return func(row []table.Value) bool {
			for _, p := range children {
				if !p(row) {
					return false
				}
			}
			return true
		}, nil
	case transform.GroupOr:
		// An empty OR group is vacuously false.
		return func(row []table.Value) bool {
			for _, p := range children {
				if p(row) {
					return true
				}
			}
			return false
		}, nil
	}
	return nil, &transform.ValidationError{Field: field + ".op", Message: fmt.Sprintf("unsupported group operator %q", n.Op)}
}

func compileCondition(n *transform.FilterNode, t *table.Table, rep *schema.Report, field string) (Predicate, error) {
	col, ok := t.ColumnIndex(n.Column)
	if !ok {
		return nil, &transform.ValidationError{Field: field + ".column", Message: fmt.Sprintf("unknown column %q", n.Column)}
	}
	cs := n.IsCaseSensitive()

	switch n.Operator {
	case transform.OpIsNull:
		return func(row []table.Value) bool { return row[col].IsBlank() }, nil
	case transform.OpIsNotNull:
		return func(row []table.Value) bool { return !row[col].IsBlank() }, nil

	case transform.OpEquals, transform.OpNotEquals:
		want := canon(stringArg(n.Value), cs)
		negate := n.Operator == transform.OpNotEquals
		return func(row []table.Value) bool {
			return (canon(row[col].Render(), cs) == want) != negate
		}, nil

	case transform.OpContains, transform.OpNotContains:
		want := canon(stringArg(n.Value), cs)
		negate := n.Operator == transform.OpNotContains
		return func(row []table.Value) bool {
			return strings.Contains(canon(row[col].Render(), cs), want) != negate
		}, nil

	case transform.OpStartsWith:
		want := canon(stringArg(n.Value), cs)
		return func(row []table.Value) bool {
			return strings.HasPrefix(canon(row[col].Render(), cs), want)
		}, nil
	case transform.OpEndsWith:
		want := canon(stringArg(n.Value), cs)
		return func(row []table.Value) bool {
			return strings.HasSuffix(canon(row[col].Render(), cs), want)
		}, nil

	case transform.OpRegex:
		pattern := stringArg(n.Value)
		if !cs {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &transform.ValidationError{Field: field + ".value", Message: fmt.Sprintf("invalid regex: %v", err)}
		}
		return func(row []table.Value) bool {
			return re.MatchString(row[col].Render())
		}, nil

	case transform.OpIn, transform.OpNotIn:
		items := listArg(n.Value)
		if len(items) == 0 {
			return nil, &transform.ValidationError{Field: field + ".value", Message: "value set must not be empty"}
		}
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			set[canon(item, cs)] = struct{}{}
		}
		negate := n.Operator == transform.OpNotIn
		return func(row []table.Value) bool {
			_, hit := set[canon(row[col].Render(), cs)]
			return hit != negate
		}, nil

	case transform.OpGt, transform.OpGte, transform.OpLt, transform.OpLte:
		threshold, ok := numberArg(n.Value)
		if !ok {
			return nil, &transform.ValidationError{Field: field + ".value", Message: "value must be numeric"}
		}
		op := n.Operator
		return func(row []table.Value) bool {
			f, ok := row[col].Float()
			if !ok {
				return false
			}
			switch op {
			case transform.OpGt:
				return f > threshold
			case transform.OpGte:
				return f >= threshold
			case transform.OpLt:
				return f < threshold
			default:
				return f <= threshold
			}
		}, nil

	case transform.OpBetween:
		lo, hi, err := rangeArg(n.Value, field)
		if err != nil {
			return nil, err
		}
		return func(row []table.Value) bool {
			f, ok := row[col].Float()
			return ok && f >= lo && f <= hi
		}, nil

	case transform.OpDateBefore, transform.OpDateAfter:
		want, _, ok := table.ParseDate(stringArg(n.Value))
		if !ok {
			return nil, &transform.ValidationError{Field: field + ".value", Message: "value is not a recognized date"}
		}
		layout := dateLayout(rep, n.Column)
		before := n.Operator == transform.OpDateBefore
		return func(row []table.Value) bool {
			d, ok := row[col].Time(layout)
			if !ok {
				return false
			}
			if before {
				return d.Before(want)
			}
			return d.After(want)
		}, nil

	case transform.OpDateBetween:
		bounds := listArg(n.Value)
		if len(bounds) != 2 {
			return nil, &transform.ValidationError{Field: field + ".value", Message: "date_between needs exactly two dates"}
		}
		lo, _, okLo := table.ParseDate(bounds[0])
		hi, _, okHi := table.ParseDate(bounds[1])
		if !okLo || !okHi {
			return nil, &transform.ValidationError{Field: field + ".value", Message: "date_between bounds are not recognized dates"}
		}
		layout := dateLayout(rep, n.Column)
		return func(row []table.Value) bool {
			d, ok := row[col].Time(layout)
			return ok && !d.Before(lo) && !d.After(hi)
		}, nil
	}

	return nil, &transform.ValidationError{Field: field + ".operator", Message: fmt.Sprintf("unsupported operator %q", n.Operator)}
}

// Apply keeps the rows of t matched by the predicate, in order, as a new
// table sharing the input's column set.
func Apply(p Predicate, t *table.Table) (*table.Table, error) {
	out, err := table.New(t.Columns()...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		if p(row) {
			if err := out.AppendRow(row); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func dateLayout(rep *schema.Report, column string) string {
	if rep == nil {
		return ""
	}
	return rep.DateLayout(column)
}

// canon normalizes a string for comparison under the condition's case rule.
func canon(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return fold.String(s)
}

func stringArg(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// listArg accepts a declared value set as a list or as a comma-separated
// string.
func listArg(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, stringArg(item))
		}
		return out
	case string:
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case nil:
		return nil
	}
	return []string{stringArg(v)}
}

func numberArg(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case string:
		return table.String(val).Float()
	}
	return 0, false
}

func rangeArg(v any, field string) (float64, float64, error) {
	items := listArg(v)
	if len(items) != 2 {
		return 0, 0, &transform.ValidationError{Field: field + ".value", Message: "between needs exactly two bounds"}
	}
	lo, okLo := table.String(items[0]).Float()
	hi, okHi := table.String(items[1]).Float()
	if !okLo || !okHi {
		return 0, 0, &transform.ValidationError{Field: field + ".value", Message: "between bounds must be numeric"}
	}
	return lo, hi, nil
}
