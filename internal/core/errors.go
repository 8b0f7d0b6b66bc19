package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller input: an unknown tier, pathway,
// indicator or trait, or a batch the session cannot accept. It is never
// retried internally.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrExhaustedCatalog is returned when not a single unasked candidate
	// remains, even after broadening the query.
	ErrExhaustedCatalog = errors.New("question catalog exhausted")

	// ErrEmptyResponseSet is returned when scoring a session with no responses.
	ErrEmptyResponseSet = errors.New("empty response set")

	// ErrSessionCompleted is returned when advancing a completed session.
	ErrSessionCompleted = errors.New("session already completed")
)
