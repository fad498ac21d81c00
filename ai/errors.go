package ai

import "errors"

var (
	// ErrInvalidDimension is returned for a non-positive vector dimension.
	ErrInvalidDimension = errors.New("vector dimension must be positive")

	// ErrInvalidProbeTimeout is returned for a non-positive probe timeout.
	ErrInvalidProbeTimeout = errors.New("probe timeout must be positive")

	// ErrEmptyEmbedding is returned when an encoder produces no vector for an input.
	ErrEmptyEmbedding = errors.New("encoder returned no embedding")
)
