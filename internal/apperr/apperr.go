// Package apperr holds the error kinds shared by the state machines.
package apperr

import (
	"strings"

	"github.com/go-faster/errors"
)

// ValidationError is a local guard failure. It never reaches a remote service.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation returns a *ValidationError with reason.
func Validation(reason string) error { return &ValidationError{Reason: reason} }

// IsValidation reports whether err is a guard failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Message renders err for display. It never returns an empty string.
func Message(err error, fallback string) string {
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
	}
	if fallback == "" {
		return "UnknownError"
	}
	return fallback
}
