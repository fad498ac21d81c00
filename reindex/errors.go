package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrVectorCountMismatch is returned when the encoder returns a different
	// number of vectors than texts it was given.
	ErrVectorCountMismatch = errors.New("vector count mismatch")

	// ErrRepositoryRequired is returned when no document repository is provided.
	ErrRepositoryRequired = errors.New("document repository required")

	// ErrProviderRequired is returned when no embedding provider is provided.
	ErrProviderRequired = errors.New("embedding provider required")
)
