// Package errs defines the typed failures crossing the core's boundaries
// so HTTP handlers map them to status codes explicitly.
package errs

import "fmt"

// ValidationError marks client-supplied input that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError marks a lookup of an id the backing store does not hold.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IndexUnavailable wraps connectivity or protocol failures of the document index.
type IndexUnavailable struct {
	Err error
}

func (e *IndexUnavailable) Error() string {
	return fmt.Sprintf("document index unavailable: %v", e.Err)
}

func (e *IndexUnavailable) Unwrap() error { return e.Err }

// AnswerServiceError wraps failures of the generative answer service.
type AnswerServiceError struct {
	Err error
}

func (e *AnswerServiceError) Error() string {
	return fmt.Sprintf("answer service failed: %v", e.Err)
}

func (e *AnswerServiceError) Unwrap() error { return e.Err }
