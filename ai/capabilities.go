package ai

import (
	"context"
	"errors"
	"log/slog"
)

// Capabilities is the result of probing for the facilities a real embedding
// provider needs. A nil Encoder or Index means the facility is unavailable.
type Capabilities struct {
	// Arrays reports whether numeric vectors can be stored and read back intact.
	Arrays bool

	// Encoder is the text encoder, if one could be loaded.
	Encoder Encoder

	// Index is the similarity index, if one could be opened.
	Index Index

	// Err collects the reasons facilities were unavailable, for logging.
	Err error
}

// Complete reports whether all three facilities are present.
func (c Capabilities) Complete() bool {
	return c.Arrays && c.Encoder != nil && c.Index != nil
}

// Missing lists the names of absent facilities.
func (c Capabilities) Missing() []string {
	var missing []string
	if !c.Arrays {
		missing = append(missing, "arrays")
	}
	if c.Encoder == nil {
		missing = append(missing, "encoder")
	}
	if c.Index == nil {
		missing = append(missing, "index")
	}
	return missing
}

// release closes any facility that was acquired.
func (c Capabilities) release(logger *slog.Logger) {
	if c.Index != nil {
		if err := c.Index.Close(); err != nil {
			logger.Warn("error closing partially acquired index", "err", err)
		}
	}
	if closer, ok := c.Encoder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("error closing partially acquired encoder", "err", err)
		}
	}
}

// ProbeFunc discovers the facilities available to the process.
// It is called at most once per LazyProvider and must not panic.
type ProbeFunc func(ctx context.Context) Capabilities

// ErrNoProbe is recorded when a LazyProvider has no probe to run.
var ErrNoProbe = errors.New("no capability probe configured")
