package transform

import (
	"fmt"
	"strings"
)

// Review is the outcome of checking a Config against the column set it will
// actually run over. Errors block a run; warnings do not.
type Review struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether the review found no blocking problems.
func (r *Review) OK() bool { return len(r.Errors) == 0 }

// ReviewAgainst checks column references in the config against the columns
// available after the join plan has run. It mirrors what the pipeline will
// reject, but as a report instead of a failure, so configs can be checked
// without touching row data.
func ReviewAgainst(c *Config, columns []string) *Review {
	rev := &Review{Errors: []string{}, Warnings: []string{}}

	if err := c.Validate(); err != nil {
		rev.Errors = append(rev.Errors, err.Error())
		return rev
	}

	available := make(map[string]bool, len(columns))
	for _, name := range columns {
		available[name] = true
	}

	for _, col := range c.FilterColumns() {
		if !available[col] {
			rev.Errors = append(rev.Errors, fmt.Sprintf("filter references unknown column %q", col))
		}
	}

	// Computed columns extend the available set in declared order.
	for i, cc := range c.Computed {
		if available[cc.OutputName] {
			rev.Errors = append(rev.Errors, fmt.Sprintf("computed column %d output %q collides with an existing column", i+1, cc.OutputName))
		}
		for _, col := range computedInputs(cc) {
			if !available[col] {
				rev.Errors = append(rev.Errors, fmt.Sprintf("computed column %q reads unknown column %q", cc.OutputName, col))
			}
		}
		available[cc.OutputName] = true
	}

	selected := make(map[string]bool, len(c.Columns))
	for _, oc := range c.Columns {
		if !available[oc.Name] {
			rev.Errors = append(rev.Errors, fmt.Sprintf("selected output column %q does not exist", oc.Name))
		}
		if selected[oc.Name] {
			rev.Warnings = append(rev.Warnings, fmt.Sprintf("output column %q is selected more than once", oc.Name))
		}
		selected[oc.Name] = true
	}

	if c.Sort != nil {
		inOutput := len(c.Columns) == 0 && available[c.Sort.Column] || selected[c.Sort.Column]
		if !inOutput {
			rev.Errors = append(rev.Errors, fmt.Sprintf("sort column %q is not part of the output", c.Sort.Column))
		}
	}

	return rev
}

// computedInputs lists the columns a computed-column spec reads, as far as
// that can be determined without decoding the full args.
func computedInputs(cc ComputedColumn) []string {
	var cols []string
	switch cc.Function {
	case FuncConcat, FuncCoalesce:
		if raw, ok := cc.Args["columns"]; ok {
			cols = append(cols, toStringList(raw)...)
		}
	case FuncDateFormat, FuncBucket:
		if raw, ok := cc.Args["column"]; ok {
			if s, ok := raw.(string); ok && s != "" {
				cols = append(cols, s)
			}
		}
	}
	return cols
}

func toStringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
