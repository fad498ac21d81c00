package notify

import (
	"context"

	"github.com/poiesic/clausemark/core"
)

// Sink receives audit events. Notify must not block on delivery and never
// reports delivery failures to the caller.
type Sink interface {
	Notify(ctx context.Context, event core.AuditEvent)
	Close() error
}

// NopSink discards every event.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Notify(context.Context, core.AuditEvent) {}

func (NopSink) Close() error { return nil }
