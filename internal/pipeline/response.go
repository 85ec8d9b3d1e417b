package pipeline

import (
	"errors"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// Envelope is the wire form of a run: either a success carrying one result
// page or an error carrying a message. Status is always present.
type Envelope struct {
	Status string `json:"status"`

	// Success fields.
	Rows   []map[string]any `json:"rows,omitempty"`
	Total  *int             `json:"total,omitempty"`
	Offset *int             `json:"offset,omitempty"`
	Limit  *int             `json:"limit,omitempty"`
	Meta   *Meta            `json:"meta,omitempty"`

	// Error fields.
	Message string `json:"message,omitempty"`
}

// Success wraps a result page in the response envelope. Rows are always a
// list, never null.
func Success(res *Result) Envelope {
	rows := res.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	return Envelope{
		Status: "ok",
		Rows:   rows,
		Total:  &res.Total,
		Offset: &res.Offset,
		Limit:  &res.Limit,
		Meta:   &res.Meta,
	}
}

// Failure wraps an error in the response envelope.
func Failure(err error) Envelope {
	return Envelope{Status: "error", Message: err.Error()}
}

// ErrorKind classifies a run error for transport mapping.
type ErrorKind int

const (
	// KindInternal is an unexpected failure.
	KindInternal ErrorKind = iota
	// KindInvalid is a rejected configuration or request.
	KindInvalid
	// KindNotFound is a missing dataset or config.
	KindNotFound
)

// Classify maps a run error onto its transport category.
func Classify(err error) ErrorKind {
	var nf *dataset.NotFoundError
	if errors.As(err, &nf) {
		return KindNotFound
	}
	var ve *transform.ValidationError
	var jk *transform.JoinKeyNotFoundError
	if errors.As(err, &ve) || errors.As(err, &jk) {
		return KindInvalid
	}
	return KindInternal
}
