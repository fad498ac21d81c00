// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clausemark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/ai/openai"
	"github.com/poiesic/clausemark/audit"
	"github.com/poiesic/clausemark/config"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/extract"
	"github.com/poiesic/clausemark/ingestion"
	"github.com/poiesic/clausemark/notify"
	"github.com/poiesic/clausemark/pdftext"
	"github.com/poiesic/clausemark/reindex"
	"github.com/poiesic/clausemark/search"
	"github.com/poiesic/clausemark/storage"
	"github.com/poiesic/clausemark/storage/badger"
	"github.com/poiesic/clausemark/storage/sqlite"
)

var _ ai.Index = (*badger.VectorIndex)(nil)

// System wires storage, the embedding provider and the engines together.
type System struct {
	backend     *badger.Backend
	docs        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	provider    *ai.LazyProvider
	auditor     *audit.Auditor
	retriever   *search.Retriever
	pipeline    *ingestion.Pipeline
	sink        notify.Sink
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	probe    ai.ProbeFunc
	sink     notify.Sink
	inMemory bool
	logger   *slog.Logger
}

// WithProbe replaces the default capability probe.
func WithProbe(probe ai.ProbeFunc) Option {
	return func(o *options) {
		o.probe = probe
	}
}

// WithSink replaces the sink built from the webhook configuration.
func WithSink(sink notify.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithInMemoryStorage keeps badger storage in memory. Ignored for sqlite.
func WithInMemoryStorage() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// DefaultProbe checks for the three embedding facilities: the vector codec,
// an OpenAI-compatible encoder, and the badger vector index at IndexPath.
// The index is sized from the encoder, so it is only opened when the
// encoder answered.
func DefaultProbe(cfg *ai.Config) ai.ProbeFunc {
	return func(ctx context.Context) ai.Capabilities {
		var (
			caps ai.Capabilities
			errs []error
		)

		if err := storage.ProbeVectorCodec(); err != nil {
			errs = append(errs, fmt.Errorf("arrays: %w", err))
		} else {
			caps.Arrays = true
		}

		encoder, err := openai.ProbeEncoder(ctx, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("encoder: %w", err))
		} else {
			caps.Encoder = encoder
			index, err := badger.OpenVectorIndexAt(cfg.IndexPath, encoder.Dimension())
			if err != nil {
				errs = append(errs, fmt.Errorf("index: %w", err))
			} else {
				caps.Index = index
			}
		}

		caps.Err = errors.Join(errs...)
		return caps
	}
}

// Open builds a System from cfg.
func Open(cfg *config.AppConfig, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &System{logger: logger.With("component", "clausemark")}
	if err := s.openStorage(cfg, o.inMemory); err != nil {
		return nil, err
	}

	aiCfg := cfg.AIConfig()
	probe := o.probe
	if probe == nil {
		probe = DefaultProbe(aiCfg)
	}
	provider, err := ai.NewLazyProvider(probe,
		ai.WithLogger(logger),
		ai.WithFallbackDimension(aiCfg.MockDimension),
		ai.WithInitTimeout(aiCfg.ProbeTimeout),
	)
	if err != nil {
		s.closeStorage()
		return nil, err
	}
	s.provider = provider

	rules := audit.DefaultRules()
	if cfg.Audit.RulesFile != "" {
		if rules, err = audit.LoadRules(cfg.Audit.RulesFile); err != nil {
			s.closeStorage()
			return nil, err
		}
	}
	s.auditor = audit.NewAuditor(audit.NewRuleSet(rules))

	s.sink = o.sink
	if s.sink == nil {
		if s.sink, err = newSink(cfg, logger); err != nil {
			s.closeStorage()
			return nil, err
		}
	}

	s.retriever, err = search.NewRetriever(s.docs, provider, search.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithAuditor(s.auditor),
		ingestion.WithSink(s.sink),
		ingestion.WithCheckpoints(s.checkpoints),
		ingestion.WithRetry(cfg.Ingestion.MaxRetries, cfg.RetryDelay()),
		ingestion.WithSampleSize(cfg.Ingestion.SampleSize),
	}
	if cfg.Ingestion.Workers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(cfg.Ingestion.Workers))
	}
	s.pipeline, err = ingestion.NewPipeline(s.docs, provider, pipelineOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *System) openStorage(cfg *config.AppConfig, inMemory bool) error {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := sqlite.NewStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		s.docs, s.checkpoints = store, store
		return nil
	default:
		backend, err := badger.OpenBackend(cfg.Storage.Path, inMemory)
		if err != nil {
			return err
		}
		docs, err := badger.NewDocumentRepository(backend)
		if err != nil {
			backend.Close()
			return err
		}
		s.backend = backend
		s.docs = docs
		s.checkpoints = badger.NewCheckpointRepository(backend)
		return nil
	}
}

func (s *System) closeStorage() {
	if err := s.docs.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
		}
	}
}

func newSink(cfg *config.AppConfig, logger *slog.Logger) (notify.Sink, error) {
	if cfg.Webhook.URL == "" {
		return notify.NopSink{}, nil
	}
	return notify.NewWebhookSink(cfg.Webhook.URL,
		notify.WithLogger(logger),
		notify.WithTimeout(cfg.WebhookTimeout()),
		notify.WithRateLimit(cfg.Webhook.RatePerSecond, cfg.Webhook.Burst),
		notify.WithPoolSize(cfg.Webhook.Workers),
	)
}

// Close stops background work and releases every resource.
func (s *System) Close() error {
	var errs []error
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing embedding provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := s.docs.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		errs = append(errs, err)
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ingest stores a document built from ordered page texts.
func (s *System) Ingest(ctx context.Context, filename string, pages []string, metadata map[string]string) (ingestion.Result, error) {
	return s.pipeline.IngestPages(ctx, filename, pages, metadata)
}

// IngestReader decodes r by filename extension and ingests it.
func (s *System) IngestReader(ctx context.Context, r io.Reader, filename string) (ingestion.Result, error) {
	pages, err := pdftext.Read(r, filename)
	if err != nil {
		return ingestion.Result{}, err
	}
	return s.Ingest(ctx, filename, pages, nil)
}

// IngestFile loads a PDF or text file from disk and ingests it.
func (s *System) IngestFile(ctx context.Context, path string) (ingestion.Result, error) {
	pages, err := pdftext.Load(path)
	if err != nil {
		return ingestion.Result{}, err
	}
	return s.Ingest(ctx, filepath.Base(path), pages, map[string]string{"source_path": path})
}

// Document returns a stored document.
func (s *System) Document(ctx context.Context, id core.ID) (*core.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// Audit runs the audit rules over a stored document.
func (s *System) Audit(ctx context.Context, id core.ID) ([]core.Finding, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.auditor.Run(doc.FullText), nil
}

// Extract resolves the contract fields of a stored document.
func (s *System) Extract(ctx context.Context, id core.ID) (*extract.Fields, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return extract.Extract(doc.FullText), nil
}

// Query answers question with up to k citations.
func (s *System) Query(ctx context.Context, question string, k int) (*core.QueryResponse, error) {
	return s.retriever.Query(ctx, question, k)
}

// Reindex encodes stored documents into the embedding index.
func (s *System) Reindex(ctx context.Context, cfg *reindex.Config, progress io.Writer) (int, error) {
	ix, err := reindex.NewIndexer(s.docs, s.checkpoints, s.provider, cfg, progress)
	if err != nil {
		return 0, err
	}
	return ix.Run(ctx)
}

// Wait blocks until background indexing and auditing have finished.
func (s *System) Wait() {
	s.pipeline.Wait()
}

// Documents returns the document repository.
func (s *System) Documents() storage.DocumentRepository {
	return s.docs
}

// Provider returns the embedding provider.
func (s *System) Provider() *ai.LazyProvider {
	return s.provider
}

// Auditor returns the configured auditor.
func (s *System) Auditor() *audit.Auditor {
	return s.auditor
}
