// Package resultshape classifies pipeline errors into the spec's fixed
// taxonomy, shapes HTTP error messages, decompresses and parses response
// bodies, and produces the final Result per ResultMode.
package resultshape

import (
	"errors"
	"net/http"
)

// HTTPError is raised for any non-2xx response the caller did not otherwise
// handle. It always carries the originating Response.
type HTTPError struct {
	Response  *http.Response
	ErrorData any
	Msg       string
}

func (e *HTTPError) Error() string { return e.Msg }

// StatusCode exposes the HTTP status so callers can dispatch without a type
// assertion into the concrete struct.
func (e *HTTPError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// ValidationError is raised when a schema validator reports issues (or
// throws). IssueCause identifies which validation point failed.
type ValidationError struct {
	IssueCause string
	Issues     []Issue
	Response   *http.Response
	Msg        string
}

// Issue is a single validator-reported problem.
type Issue struct {
	Message string
	Path    []any
}

func (e *ValidationError) Error() string { return e.Msg }

// StatusCode returns the originating response's status when the validation
// failure occurred on data/errorData (a response is available), else 0.
func (e *ValidationError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// AbortError represents a request aborted via a signal (user-supplied,
// internal dedupe controller, or otherwise).
type AbortError struct {
	Msg string
}

func (e *AbortError) Error() string { return e.Msg }

// TimeoutError represents a request that exceeded its configured timeout.
type TimeoutError struct {
	Msg string
}

func (e *TimeoutError) Error() string { return e.Msg }

// SyntaxError represents a response body that failed to parse.
type SyntaxError struct {
	Msg      string
	Original error
}

func (e *SyntaxError) Error() string { return e.Msg }
func (e *SyntaxError) Unwrap() error { return e.Original }

// GenericError is the catch-all variant for anything not otherwise
// classified, preserving the original error's name where known.
type GenericError struct {
	Name     string
	Msg      string
	Original error
}

func (e *GenericError) Error() string { return e.Msg }
func (e *GenericError) Unwrap() error { return e.Original }

// AbortErrorMessage is the stable text a cancel-strategy dedupe abort uses,
// matching the spec's getAbortErrorMessage contract.
const AbortErrorMessage = "Request aborted by duplicate"

// Classify maps a thrown error into the spec's fixed taxonomy. Errors
// already carrying one of the known variants (possibly wrapped) pass
// through unchanged; anything else becomes a GenericError.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr
	}
	var abortErr *AbortError
	if errors.As(err, &abortErr) {
		return abortErr
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr
	}
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr
	}
	var genErr *GenericError
	if errors.As(err, &genErr) {
		return genErr
	}
	return &GenericError{Name: "Error", Msg: err.Error(), Original: err}
}
