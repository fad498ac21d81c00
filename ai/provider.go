package ai

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds how long the capability probe may run.
const DefaultProbeTimeout = 30 * time.Second

// LazyProvider defers choosing between a real and a degraded embedding
// provider until first use. The first call to any method runs the probe once;
// every later call reuses that decision.
type LazyProvider struct {
	probe        ProbeFunc
	mockDim      int
	probeTimeout time.Duration
	logger       *slog.Logger

	once     sync.Once
	impl     EmbeddingProvider
	degraded bool
}

var _ EmbeddingProvider = (*LazyProvider)(nil)

// ProviderOption configures a LazyProvider.
type ProviderOption func(*LazyProvider) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *LazyProvider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithFallbackDimension sets the vector length used when degraded.
// Default is DefaultMockDimension.
func WithFallbackDimension(dim int) ProviderOption {
	return func(p *LazyProvider) error {
		if dim <= 0 {
			return ErrInvalidDimension
		}
		p.mockDim = dim
		return nil
	}
}

// WithInitTimeout bounds the capability probe run on first use.
// Default is DefaultProbeTimeout.
func WithInitTimeout(d time.Duration) ProviderOption {
	return func(p *LazyProvider) error {
		if d <= 0 {
			return ErrInvalidProbeTimeout
		}
		p.probeTimeout = d
		return nil
	}
}

// NewLazyProvider creates a provider that will run probe on first use.
// A nil probe always yields the degraded provider.
func NewLazyProvider(probe ProbeFunc, opts ...ProviderOption) (*LazyProvider, error) {
	p := &LazyProvider{
		probe:        probe,
		mockDim:      DefaultMockDimension,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default().With("component", "embedding-provider"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// init resolves the implementation exactly once. The probe ignores the
// caller's cancellation and is bounded by probeTimeout instead.
func (p *LazyProvider) init(ctx context.Context) EmbeddingProvider {
	p.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("capability probe panicked, embedding provider degraded", "panic", r)
				p.impl = NewNullProvider(p.mockDim)
				p.degraded = true
			}
		}()

		if p.probe == nil {
			p.logger.Info("embedding provider degraded", "reason", ErrNoProbe)
			p.impl = NewNullProvider(p.mockDim)
			p.degraded = true
			return
		}

		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.probeTimeout)
		defer cancel()

		caps := p.probe(probeCtx)
		if !caps.Complete() {
			caps.release(p.logger)
			p.logger.Info("embedding provider degraded", "missing", caps.Missing(), "err", caps.Err)
			p.impl = NewNullProvider(p.mockDim)
			p.degraded = true
			return
		}

		p.logger.Info("embedding provider ready", "dim", caps.Encoder.Dimension(), "vectors", caps.Index.Len())
		p.impl = &realProvider{encoder: caps.Encoder, index: caps.Index}
	})
	return p.impl
}

// Encode generates vectors for texts.
func (p *LazyProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return p.init(ctx).Encode(ctx, texts)
}

// Add stores vectors in the index.
func (p *LazyProvider) Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error {
	return p.init(ctx).Add(ctx, vectors, metadata)
}

// Search finds nearest neighbours for each query.
func (p *LazyProvider) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	return p.init(ctx).Search(ctx, queries, k)
}

// Dim returns the vector dimension, probing if necessary.
func (p *LazyProvider) Dim() int {
	return p.init(context.Background()).Dim()
}

// Degraded reports whether the NullProvider is in use, probing if necessary.
func (p *LazyProvider) Degraded() bool {
	p.init(context.Background())
	return p.degraded
}

// Close releases the underlying implementation. Close on a provider that was
// never used does not trigger the probe.
func (p *LazyProvider) Close() error {
	p.once.Do(func() {
		p.impl = NewNullProvider(p.mockDim)
		p.degraded = true
	})
	return p.impl.Close()
}

// realProvider pairs a loaded encoder with an open index.
type realProvider struct {
	encoder Encoder
	index   Index
}

func (r *realProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return r.encoder.EncodeTexts(ctx, texts)
}

func (r *realProvider) Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error {
	if len(vectors) == 0 {
		return nil
	}
	return r.index.Add(ctx, vectors, metadata)
}

func (r *realProvider) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	return r.index.Search(ctx, queries, max(k, 0))
}

func (r *realProvider) Dim() int {
	return r.encoder.Dimension()
}

func (r *realProvider) Close() error {
	return r.index.Close()
}
