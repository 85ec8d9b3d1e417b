package schema

import (
	"fmt"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

// ProblemKind classifies a contract violation.
type ProblemKind string

const (
	ProblemMissing      ProblemKind = "missing"
	ProblemAllNull      ProblemKind = "all_null"
	ProblemTypeMismatch ProblemKind = "type_mismatch"
)

// Problem is one contract violation found by Validate.
type Problem struct {
	Column  string      `json:"column"`
	Problem ProblemKind `json:"problem"`
	Detail  string      `json:"detail,omitempty"`
}

// Requirement declares what a caller expects of one column. Type may be
// empty when only presence and nullability matter.
type Requirement struct {
	Column string
	Type   table.Type
}

// Validate checks the table against the required columns and returns the
// problems found. It never fails the run; the caller decides whether to
// proceed.
func Validate(t *table.Table, reqs []Requirement) []Problem {
	rep := Inspect(t)
	var problems []Problem

	for _, req := range reqs {
		prof, ok := rep.Column(req.Column)
		if !ok {
			problems = append(problems, Problem{Column: req.Column, Problem: ProblemMissing})
			continue
		}
		if rep.RowCount > 0 && prof.NullCount == rep.RowCount {
			problems = append(problems, Problem{Column: req.Column, Problem: ProblemAllNull})
			continue
		}
		if req.Type != "" && !typeSatisfies(prof.Type, req.Type) {
			problems = append(problems, Problem{
				Column:  req.Column,
				Problem: ProblemTypeMismatch,
				Detail:  fmt.Sprintf("want %s, inferred %s", req.Type, prof.Type),
			})
		}
	}

	return problems
}

// typeSatisfies allows integer columns where a float is required; every
// other requirement is an exact match.
func typeSatisfies(inferred, want table.Type) bool {
	if inferred == want {
		return true
	}
	return want == table.TypeFloat && inferred == table.TypeInteger
}
