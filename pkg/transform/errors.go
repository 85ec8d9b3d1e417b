package transform

import "fmt"

// ValidationError reports a bad configuration: an unknown column, a
// malformed filter, a sort on an absent column. It always names the
// offending field and is never silently corrected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Message
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// JoinKeyNotFoundError reports a join key column absent from its table's
// schema. It is raised before any row processing begins and aborts the
// whole transform.
type JoinKeyNotFoundError struct {
	Ref    DatasetRef
	Column string
	Side   string // "left" | "right"
}

func (e *JoinKeyNotFoundError) Error() string {
	return fmt.Sprintf("join key %q not found on %s side of join with %q", e.Column, e.Side, e.Ref)
}
