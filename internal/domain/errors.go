package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by a search. Callers distinguish them with errors.Is;
// the wrapped detail is not stable and must not be parsed.
var (
	// ErrInvalidRequest signals malformed or unsafe input. Nothing has been sent
	// to a collaborator when this is returned.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingServiceFailure signals that the query vector could not be obtained.
	ErrEmbeddingServiceFailure = errors.New("embedding service failure")
	// ErrStoreQueryFailure signals that the store rejected or timed out on a compiled query.
	ErrStoreQueryFailure = errors.New("store query failure")
)

// FieldError is an InvalidRequest tied to a single request parameter.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRequest.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidRequest }

// NewFieldError creates an InvalidRequest error for the named parameter.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
