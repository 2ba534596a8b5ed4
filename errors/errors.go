// Package errors provides error handling for annogen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for user-facing diagnostics
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := parseFile(path); err != nil {
//	    return errors.Wrapf(err, "failed to parse %s", path)
//	}
//
//	// Categorize a diagnostic so callers can test it with errors.Is
//	return errors.Mark(errors.Newf("unbalanced '[' in %q", payload), errors.ErrGrammar)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions and panics
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Diagnostic categories. Every error reported by the generation pipeline is
// marked with exactly one of these so callers can classify it with Is.
var (
	// ErrGrammar indicates a malformed annotation payload. Only the offending
	// annotation is skipped.
	ErrGrammar = New("annotation grammar error")

	// ErrRuleValidation indicates a rule rejected its arguments or entity.
	// Only that rule on that entity is skipped.
	ErrRuleValidation = New("rule validation error")

	// ErrStructuralPrecondition indicates a missing required declaration
	// (e.g. the body marker). The whole file's generation unit is aborted.
	ErrStructuralPrecondition = New("structural precondition error")

	// ErrParseFailure indicates the frontend could not build a structural tree.
	ErrParseFailure = New("parse failure")

	// ErrIO indicates a generated artifact could not be read or written.
	ErrIO = New("i/o failure")

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = New("invalid configuration")

	// ErrPoolPaused is returned when waiting on a task pool that was never started.
	ErrPoolPaused = New("task pool is paused")
)

// Category returns the diagnostic category err is marked with, or nil.
func Category(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range []error{ErrGrammar, ErrRuleValidation, ErrStructuralPrecondition, ErrParseFailure, ErrIO, ErrInvalidConfig, ErrPoolPaused} {
		if Is(err, c) {
			return c
		}
	}
	return nil
}

// IsFatal reports whether err should flip a file's success flag.
// Grammar and rule validation errors are local and never fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsAny(err, ErrGrammar, ErrRuleValidation)
}
