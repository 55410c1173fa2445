// Package failure is the error taxonomy shared by the session engine and the
// portal clients. Every fatal error returned to a caller either is or wraps
// one of these, match them with errors.As and errors.Is.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError is a transport failure or a non-success HTTP status.
type NetworkError struct {
	Method string
	URL    string
	// Status is 0 when no response was received.
	Status int
	Cause  error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network: %s %s: %v", e.Method, e.URL, e.Cause)
	}
	return fmt.Sprintf("network: %s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ErrMissingSalt is returned when the password cipher is given an empty salt.
var ErrMissingSalt = errors.New("password encryption salt is missing")

// AuthParseError means the CAS login page lacked required hidden fields.
type AuthParseError struct {
	Portal  string
	Missing []string
}

func (e *AuthParseError) Error() string {
	return fmt.Sprintf(
		"%s: could not parse login page, missing %s",
		e.Portal, strings.Join(e.Missing, ", "),
	)
}

// AuthRejected means the credential submission did not land on the portal.
// Wrong credentials and a portal outage look the same from here.
type AuthRejected struct {
	Portal       string
	ExpectedHost string
	FinalURL     string
}

func (e *AuthRejected) Error() string {
	return fmt.Sprintf(
		"%s: login rejected (bad credentials or portal unreachable), landed on %q instead of %s",
		e.Portal, e.FinalURL, e.ExpectedHost,
	)
}

// PageMarkerMissing means an authenticated page lacks the marker text or
// element an extractor requires, usually because the session expired or the
// page layout changed.
type PageMarkerMissing struct {
	Operation string
	Marker    string
}

func (e *PageMarkerMissing) Error() string {
	return fmt.Sprintf("%s: page does not contain %q, the session may have expired", e.Operation, e.Marker)
}

// EmptyField describes a cell that was expected to carry a value but did not.
// It is never returned as an error, extractors default the field to "" and
// report it as a warning.
type EmptyField struct {
	Operation string
	Field     string
	Row       int
}

func (e EmptyField) Error() string {
	return fmt.Sprintf("%s: row %d has no value for %s", e.Operation, e.Row, e.Field)
}

// EmptyFields collects the EmptyField occurrences of one extraction. A nil
// collector records nothing.
type EmptyFields struct {
	Operation string
	Fields    []EmptyField
}

func NewEmptyFields(operation string) *EmptyFields {
	return &EmptyFields{Operation: operation}
}

// Check records value as missing when it is empty and returns it unchanged.
func (e *EmptyFields) Check(row int, field, value string) string {
	if e == nil || value != "" {
		return value
	}
	e.Fields = append(e.Fields, EmptyField{Operation: e.Operation, Field: field, Row: row})
	return value
}
