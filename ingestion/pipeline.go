package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/audit"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/notify"
	"github.com/poiesic/clausemark/reindex"
	"github.com/poiesic/clausemark/storage"
)

// DefaultSampleSize is how many findings an audit event carries.
const DefaultSampleSize = 3

// Pipeline stores documents and then indexes and audits them in the background.
type Pipeline struct {
	repo        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	provider    ai.EmbeddingProvider
	auditor     *audit.Auditor
	sink        notify.Sink
	indexPool   *ants.Pool
	auditPool   *ants.Pool
	indexProc   processor
	auditProc   processor
	maxRetries  int
	retryDelay  time.Duration
	sampleSize  int
	pending     sync.WaitGroup
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for each background stage.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.indexPool != nil {
			p.indexPool.Release()
		}
		if p.auditPool != nil {
			p.auditPool.Release()
		}

		indexPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		auditPool, err := ants.NewPool(size)
		if err != nil {
			indexPool.Release()
			return err
		}

		p.indexPool = indexPool
		p.auditPool = auditPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithAuditor sets the auditor run on every stored document.
// Default uses the built-in rules.
func WithAuditor(auditor *audit.Auditor) Option {
	return func(p *Pipeline) error {
		if auditor != nil {
			p.auditor = auditor
		}
		return nil
	}
}

// WithSink sets where audit events go. Default discards them.
func WithSink(sink notify.Sink) Option {
	return func(p *Pipeline) error {
		if sink == nil {
			sink = notify.NopSink{}
		}
		p.sink = sink
		return nil
	}
}

// WithCheckpoints enables saving the indexer checkpoint after background indexing.
func WithCheckpoints(checkpoints storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpoints = checkpoints
		return nil
	}
}

// WithRetry sets how often encoding is attempted and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return reindex.ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithSampleSize sets how many findings accompany an audit event.
func WithSampleSize(n int) Option {
	return func(p *Pipeline) error {
		p.sampleSize = max(n, 0)
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repo storage.DocumentRepository, provider ai.EmbeddingProvider, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)

	indexPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	auditPool, err := ants.NewPool(poolSize)
	if err != nil {
		indexPool.Release()
		return nil, err
	}

	p := &Pipeline{
		repo:       repo,
		provider:   provider,
		auditor:    audit.NewAuditor(nil),
		sink:       notify.NopSink{},
		indexPool:  indexPool,
		auditPool:  auditPool,
		maxRetries: 3,
		retryDelay: time.Second,
		sampleSize: DefaultSampleSize,
		logger:     slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// processors are built after options so they see the final configuration
	batch := reindex.NewBatchProcessor(provider, p.maxRetries, p.retryDelay)
	p.indexProc = newIndexProcessor(batch, p.checkpoints, p.logger)
	p.auditProc = newAuditProcessor(p.auditor, p.sink, p.sampleSize, p.logger)

	return p, nil
}

// Result is the outcome of ingesting one document.
type Result struct {
	Document *core.Document
	// Duplicate is set when identical text was already stored; Document is
	// then the existing record and no background work is scheduled.
	Duplicate bool
}

// Ingest validates and stores docs, then schedules indexing and auditing.
// Errors during background processing are logged but do not fail ingestion.
func (p *Pipeline) Ingest(ctx context.Context, docs ...*core.Document) ([]Result, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}

	results := make([]Result, len(docs))
	fresh := make([]*core.Document, 0, len(docs))
	freshAt := make([]int, 0, len(docs))
	for i, doc := range docs {
		existing, err := p.repo.FindByContentHash(ctx, core.IDFromContent(doc.FullText))
		switch {
		case err == nil:
			results[i] = Result{Document: existing, Duplicate: true}
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
		fresh = append(fresh, doc)
		freshAt = append(freshAt, i)
	}

	if len(fresh) == 0 {
		return results, nil
	}

	added, err := p.repo.AddDocuments(ctx, fresh...)
	if err != nil {
		p.logger.Error("error storing documents", "documents", len(fresh), "err", err)
		return nil, err
	}
	for j, doc := range added {
		results[freshAt[j]] = Result{Document: doc}
	}

	p.schedule(ctx, added)
	return results, nil
}

// IngestPages builds a document from ordered page texts and ingests it.
func (p *Pipeline) IngestPages(ctx context.Context, filename string, pages []string, metadata map[string]string) (Result, error) {
	spans, full := core.BuildPages(pages)
	results, err := p.Ingest(ctx, &core.Document{
		Filename: filename,
		FullText: full,
		Pages:    spans,
		Metadata: metadata,
	})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

func (p *Pipeline) schedule(ctx context.Context, docs []*core.Document) {
	bg := context.WithoutCancel(ctx)
	p.submit(p.indexPool, "index", func() {
		if err := p.indexProc.process(bg, docs...); err != nil {
			p.logger.Error("error indexing documents", "err", err)
			return
		}
		if err := p.indexProc.checkpoint(bg); err != nil {
			p.logger.Error("error saving index checkpoint", "err", err)
		}
	})
	p.submit(p.auditPool, "audit", func() {
		if err := p.auditProc.process(bg, docs...); err != nil {
			p.logger.Error("error auditing documents", "err", err)
		}
	})
}

func (p *Pipeline) submit(pool *ants.Pool, stage string, task func()) {
	p.pending.Add(1)
	err := pool.Submit(func() {
		defer p.pending.Done()
		task()
	})
	if err != nil {
		p.pending.Done()
		p.logger.Error("could not schedule background work", "stage", stage, "err", err)
	}
}

// Wait blocks until all scheduled background work has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for background work and releases the worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.indexPool != nil {
		p.indexPool.Release()
	}
	if p.auditPool != nil {
		p.auditPool.Release()
	}
}
