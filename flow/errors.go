package flow

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates that an input could not be interpreted as a
// workflow graph at all. Structural problems in a well-formed graph are
// never reported as errors; they become findings in the Report.
var ErrMalformed = errors.New("malformed workflow graph")

// MalformedGraphError reports input that cannot be parsed or interpreted
// as a workflow graph. It wraps ErrMalformed for errors.Is compatibility.
//
// Examples: invalid JSON, a node without a name or type, a connection
// with a negative port index.
type MalformedGraphError struct {
	// Field names the document location that failed, when known
	// (e.g. "nodes[2].type").
	Field string

	// Msg is a deterministic description of the problem.
	Msg string

	// Err is the underlying cause, if any (e.g. a json decode error).
	Err error
}

// Error implements the error interface.
func (e *MalformedGraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformed.Error(), e.Field, e.Msg)
	}
	if e.Msg == "" {
		return ErrMalformed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMalformed.Error(), e.Msg)
}

// Unwrap returns ErrMalformed so callers can use errors.Is.
func (e *MalformedGraphError) Unwrap() error { return ErrMalformed }
