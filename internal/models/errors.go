package models

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Callers classify with errors.Is; wrapped detail is
// preserved for logs.
var (
	// ErrModelUnavailable means the importance classifier could not be
	// loaded or run. Signal-absent, never fatal to a request.
	ErrModelUnavailable = errors.New("importance model unavailable")

	// ErrIndexUnavailable means the semantic index is missing, stale for the
	// request corpus, or unreadable. Signal-absent.
	ErrIndexUnavailable = errors.New("semantic index unavailable")

	// ErrEmbeddingService means the query or corpus could not be embedded.
	// Signal-absent.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrLLMTimeout means a language-model call exceeded its budget.
	// Degrades the narrative only.
	ErrLLMTimeout = errors.New("llm call timed out")

	// ErrLLMError means a language-model call failed for any other reason.
	// Degrades the narrative only.
	ErrLLMError = errors.New("llm call failed")

	// ErrInvalidQuery rejects empty or malformed queries before any work.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyCorpus rejects requests with no log entries before any work.
	ErrEmptyCorpus = errors.New("empty corpus")
)

// IsSignalError reports whether err is one of the failures that degrade a
// single signal rather than the request: classifier, embedding, or index.
func IsSignalError(err error) bool {
	return errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrEmbeddingService)
}

// IsCallerError reports whether err is a request rejection the caller must
// fix, as opposed to a degradation the engine absorbs.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrEmptyCorpus)
}

// ValidationError represents a malformed model value.
type ValidationError struct {
	message string
}

// NewValidationError creates a validation error with printf formatting.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return e.message
}

// IsValidationError checks whether an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
