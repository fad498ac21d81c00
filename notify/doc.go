// Package notify delivers audit results to external listeners.
//
// WebhookSink posts each event as JSON with a fresh event ID. Deliveries run
// on a bounded worker pool behind a token bucket limiter, each bounded by a
// five second timeout. Failures are logged and never reach the caller.
package notify
