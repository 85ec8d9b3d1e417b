// Package join enriches a base table with columns from other tables via
// hash joins on one or more key pairs. Right-side columns are renamed with
// the step's prefix so names never collide. Each executed step reports a
// quality summary so callers can surface weak joins to the user.
package join

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// keySep separates key parts inside a composite key. A control character
// keeps "a"+"bc" distinct from "ab"+"c".
const keySep = "\x1f"

var fold = cases.Fold()

// QualityReport summarizes how well one join step matched.
type QualityReport struct {
	RightRef         string  `json:"right"`
	RightPrefix      string  `json:"right_prefix"`
	MatchRate        float64 `json:"match_rate"`
	BlankKeyRate     float64 `json:"blank_key_rate"`
	DuplicateKeyRate float64 `json:"duplicate_key_rate"`
}

// ResolveFunc returns the named right-side table for a join step.
type ResolveFunc func(ref string) (*table.Table, error)

// Execute runs the join steps in order against base and returns the joined
// table together with one quality report per step.
func Execute(base *table.Table, steps []transform.JoinStep, resolve ResolveFunc) (*table.Table, []QualityReport, error) {
	out := base
	reports := make([]QualityReport, 0, len(steps))
	for i := range steps {
		next, rep, err := executeOne(out, &steps[i], resolve)
		if err != nil {
			return nil, nil, err
		}
		out = next
		reports = append(reports, rep)
	}
	return out, reports, nil
}

func executeOne(left *table.Table, step *transform.JoinStep, resolve ResolveFunc) (*table.Table, QualityReport, error) {
	right, err := resolve(string(step.Right))
	if err != nil {
		return nil, QualityReport{}, err
	}

	leftKeys := make([]int, len(step.Keys))
	rightKeys := make([]int, len(step.Keys))
	for i, kp := range step.Keys {
		col, ok := left.ColumnIndex(kp.Left)
		if !ok {
			return nil, QualityReport{}, &transform.JoinKeyNotFoundError{Ref: step.Left, Column: kp.Left, Side: "left"}
		}
		leftKeys[i] = col
		col, ok = right.ColumnIndex(kp.Right)
		if !ok {
			return nil, QualityReport{}, &transform.JoinKeyNotFoundError{Ref: step.Right, Column: kp.Right, Side: "right"}
		}
		rightKeys[i] = col
	}

	// Right-side columns that are not join keys carry over, renamed.
	rightKeySet := make(map[int]struct{}, len(rightKeys))
	for _, col := range rightKeys {
		rightKeySet[col] = struct{}{}
	}
	var carryCols []int
	outCols := append([]table.Column{}, left.Columns()...)
	for i, c := range right.Columns() {
		if _, isKey := rightKeySet[i]; isKey {
			continue
		}
		carryCols = append(carryCols, i)
		outCols = append(outCols, table.Column{Name: step.RightPrefix + "__" + c.Name, Type: c.Type})
	}
	out, err := table.New(outCols...)
	if err != nil {
		return nil, QualityReport{}, &transform.ValidationError{
			Field:   "joins",
			Message: fmt.Sprintf("prefix %q collides with an existing column: %v", step.RightPrefix, err),
		}
	}

	// Index right rows by composite key. Rows with any blank key part never
	// participate in matching.
	index := make(map[string][]int, right.NumRows())
	rightBlank := 0
	for i := 0; i < right.NumRows(); i++ {
		key, ok := rowKey(right.Row(i), rightKeys, step.CaseInsensitiveKeys)
		if !ok {
			rightBlank++
			continue
		}
		index[key] = append(index[key], i)
	}

	duplicated := 0
	for _, rows := range index {
		if len(rows) > 1 {
			duplicated += len(rows)
		}
	}

	matched := 0
	leftBlank := 0
	nullFill := make([]table.Value, len(carryCols))
	for i := 0; i < left.NumRows(); i++ {
		row := left.Row(i)
		key, keyed := rowKey(row, leftKeys, step.CaseInsensitiveKeys)
		if !keyed {
			leftBlank++
		}

		var hits []int
		if keyed {
			hits = index[key]
		}
		if len(hits) == 0 {
			if step.Type == transform.JoinInner {
				continue
			}
			if err := out.AppendRow(append(append([]table.Value{}, row...), nullFill...)); err != nil {
				return nil, QualityReport{}, err
			}
			continue
		}

		matched++
		for _, r := range hits {
			rightRow := right.Row(r)
			next := append([]table.Value{}, row...)
			for _, col := range carryCols {
				next = append(next, rightRow[col])
			}
			if err := out.AppendRow(next); err != nil {
				return nil, QualityReport{}, err
			}
		}
	}

	rep := QualityReport{
		RightRef:         string(step.Right),
		RightPrefix:      step.RightPrefix,
		MatchRate:        rate(matched, left.NumRows()),
		BlankKeyRate:     rate(leftBlank, left.NumRows()),
		DuplicateKeyRate: rate(duplicated, right.NumRows()),
	}
	return out, rep, nil
}

// rowKey builds the composite key for a row. It reports false when any key
// part is blank.
func rowKey(row []table.Value, keys []int, caseInsensitive bool) (string, bool) {
	parts := make([]string, len(keys))
	for i, col := range keys {
		v := row[col]
		if v.IsBlank() {
			return "", false
		}
		s := strings.TrimSpace(v.Render())
		if caseInsensitive {
			s = fold.String(s)
		}
		parts[i] = s
	}
	return strings.Join(parts, keySep), true
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
