// Package storeerr produces stable, opaque error identifiers for storage
// operations so callers can switch on a code instead of parsing messages,
// and wraps the underlying driver error alongside one.
package storeerr

import (
	"fmt"
	"strings"
)

// ID builds a stable error id of the form "<SYSTEM>_<OP>_<STATUS>", e.g.
// ID("dsql", "insert", "failed") -> "DSQL_INSERT_FAILED".
func ID(system, op, status string) string {
	parts := []string{system, op, status}
	for i, p := range parts {
		parts[i] = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p), " ", "_"))
	}
	return strings.Join(parts, "_")
}

// Error wraps an underlying driver/database error with a stable id and
// contextual details, so callers can filter on ID without inspecting the
// wrapped error's text.
type Error struct {
	IDStr   string
	Table   string
	Details map[string]any
	Cause   error
}

// New constructs an Error carrying the given stable id and wraps cause.
func New(id string, cause error) *Error {
	return &Error{IDStr: id, Cause: cause}
}

// WithTable attaches the table name a failing operation was acting on.
func (e *Error) WithTable(table string) *Error {
	e.Table = table
	return e
}

// WithDetail attaches a single key/value pair of diagnostic context.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.IDStr)
	if e.Table != "" {
		fmt.Fprintf(&b, " (table=%s)", e.Table)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}
