package notify

import "errors"

var (
	// ErrURLRequired is returned when a webhook sink is created without a URL.
	ErrURLRequired = errors.New("webhook url required")

	// ErrInvalidTimeout is returned for a non-positive delivery timeout.
	ErrInvalidTimeout = errors.New("webhook timeout must be positive")

	// ErrSinkClosed is returned when delivering through a closed sink.
	ErrSinkClosed = errors.New("webhook sink closed")
)
