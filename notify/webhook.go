package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/clausemark/core"
)

const (
	// DefaultTimeout bounds each delivery attempt.
	DefaultTimeout = 5 * time.Second

	// DefaultQueueSize is how many events may wait for a free worker.
	DefaultQueueSize = 64

	// bodyPreviewLen is how much of the response body a Delivery keeps.
	bodyPreviewLen = 100
)

// Payload is the JSON body posted for each event.
type Payload struct {
	EventID        string         `json:"event_id"`
	DocumentID     core.ID        `json:"document_id"`
	FindingsCount  int            `json:"findings_count"`
	SampleFindings []core.Finding `json:"sample_findings"`
}

// Delivery describes the outcome of one POST.
type Delivery struct {
	EventID    string
	StatusCode int
	Body       string
}

// WebhookSink posts audit events as JSON to a URL from a worker pool.
type WebhookSink struct {
	url     string
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	pool    *ants.Pool
	queue   chan core.AuditEvent
	done    chan struct{}
	mu      sync.RWMutex
	wg      sync.WaitGroup
	closed  bool
	logger  *slog.Logger
}

var _ Sink = (*WebhookSink)(nil)

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) WebhookOption {
	return func(s *WebhookSink) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTimeout sets the per-delivery timeout. Default is DefaultTimeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(s *WebhookSink) error {
		if d <= 0 {
			return ErrInvalidTimeout
		}
		s.timeout = d
		return nil
	}
}

// WithRateLimit caps deliveries per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64, burst int) WebhookOption {
	return func(s *WebhookSink) error {
		if perSecond <= 0 {
			s.limiter = nil
			return nil
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		return nil
	}
}

// WithHTTPClient sets the client used for delivery.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) error {
		if client != nil {
			s.client = client
		}
		return nil
	}
}

// WithPoolSize sets the number of concurrent deliveries. Default is 4.
func WithPoolSize(size int) WebhookOption {
	return func(s *WebhookSink) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithQueueSize sets how many events may wait for a free worker. Events
// arriving while the queue is full are dropped. Default is DefaultQueueSize.
func WithQueueSize(size int) WebhookOption {
	return func(s *WebhookSink) error {
		s.queue = make(chan core.AuditEvent, max(size, 1))
		return nil
	}
}

// NewWebhookSink creates a sink that posts to url.
func NewWebhookSink(url string, opts ...WebhookOption) (*WebhookSink, error) {
	if url == "" {
		return nil, ErrURLRequired
	}

	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}

	s := &WebhookSink{
		url:     url,
		client:  &http.Client{},
		timeout: DefaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		pool:    pool,
		queue:   make(chan core.AuditEvent, DefaultQueueSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "webhook"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}

	go s.dispatch()
	return s, nil
}

// dispatch hands queued events to the worker pool until the queue closes.
func (s *WebhookSink) dispatch() {
	defer close(s.done)
	for event := range s.queue {
		err := s.pool.Submit(func() {
			defer s.wg.Done()
			d, err := s.deliver(context.Background(), event)
			if err != nil {
				s.logger.Warn("webhook delivery failed", "document_id", event.DocumentID, "err", err)
				return
			}
			s.logger.Info("webhook delivered",
				"document_id", event.DocumentID,
				"event_id", d.EventID,
				"status", d.StatusCode,
				"body", d.Body)
		})
		if err != nil {
			s.wg.Done()
			s.logger.Warn("could not queue webhook delivery", "document_id", event.DocumentID, "err", err)
		}
	}
}

// Notify queues event for delivery and returns immediately. When the queue
// is full the event is dropped and logged.
func (s *WebhookSink) Notify(_ context.Context, event core.AuditEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("dropping audit event, sink closed", "document_id", event.DocumentID)
		return
	}

	s.wg.Add(1)
	select {
	case s.queue <- event:
	default:
		s.wg.Done()
		s.logger.Warn("dropping audit event, delivery queue full", "document_id", event.DocumentID)
	}
}

// Deliver posts event synchronously and reports the response status and
// the first 100 bytes of its body. Any HTTP status counts as delivered.
func (s *WebhookSink) Deliver(ctx context.Context, event core.AuditEvent) (*Delivery, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrSinkClosed
	}
	return s.deliver(ctx, event)
}

func (s *WebhookSink) deliver(ctx context.Context, event core.AuditEvent) (*Delivery, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	payload := Payload{
		EventID:        uuid.NewString(),
		DocumentID:     event.DocumentID,
		FindingsCount:  event.FindingsCount,
		SampleFindings: event.SampleFindings,
	}
	if payload.SampleFindings == nil {
		payload.SampleFindings = []core.Finding{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLen))
	return &Delivery{
		EventID:    payload.EventID,
		StatusCode: resp.StatusCode,
		Body:       string(preview),
	}, nil
}

// Close waits for queued deliveries and releases the worker pool.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	s.wg.Wait()
	s.pool.Release()
	return nil
}
