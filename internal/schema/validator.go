// Package schema applies Standard-Schema-shaped validators to request and
// response values, resolves route keys against a schema configuration, and
// formats validation issues.
package schema

import "context"

// Validator is the Go rendition of the Standard Schema vendor contract: a
// value goes in, and either a transformed value or a list of issues comes
// back.
type Validator interface {
	Validate(ctx context.Context, value any) (ValidationResult, error)
}

// ValidationResult is what a Validator produces for one value.
type ValidationResult struct {
	// Value is the (possibly transformed) value when validation succeeded.
	Value any
	// Issues is non-empty when validation failed.
	Issues []ValidationIssue
}

// ValidationIssue is a single reported problem, with a path of string keys
// or int indices identifying where in the value it occurred.
type ValidationIssue struct {
	Message string
	Path    []any
}

// ValidatorFunc adapts a plain "value in, transformed value out, or error"
// function to the Validator interface — the spec's "arbitrary function"
// validator form. A returned error is treated as a single issue with no path.
type ValidatorFunc func(value any) (any, error)

func (f ValidatorFunc) Validate(_ context.Context, value any) (ValidationResult, error) {
	out, err := f(value)
	if err != nil {
		return ValidationResult{Issues: []ValidationIssue{{Message: err.Error()}}}, nil
	}
	return ValidationResult{Value: out}, nil
}

// Failed reports whether r represents a failed validation.
func (r ValidationResult) Failed() bool { return len(r.Issues) > 0 }
