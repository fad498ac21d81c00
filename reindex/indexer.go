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

package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/storage"
)

// CheckpointName identifies the indexer's checkpoint record.
const CheckpointName = "indexer"

// Config holds configuration for an indexing run.
type Config struct {
	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each encode call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues after the last checkpointed document instead of
	// starting from the first one
	Resume bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Resume:         true,
	}
}

// Indexer rebuilds the embedding index from stored documents.
type Indexer struct {
	repo        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *DocumentIterator
	logger      *slog.Logger
}

// NewIndexer creates a new indexer. checkpoints may be nil, in which case
// every run starts from the first document and no progress is saved.
// progress: where to write progress output (typically os.Stderr)
func NewIndexer(repo storage.DocumentRepository, checkpoints storage.CheckpointRepository, provider ai.EmbeddingProvider, config *Config, progress io.Writer) (*Indexer, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Indexer{
		repo:        repo,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(provider, config.MaxRetries, config.RetryDelay),
		iterator:    NewDocumentIterator(repo, config.BatchSize),
		logger:      slog.Default().With("component", "indexer"),
	}, nil
}

// Run indexes every document after the checkpoint (or all of them when
// Resume is off) and returns the number of documents indexed.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	var after core.ID
	if ix.config.Resume && ix.checkpoints != nil {
		cp, err := ix.checkpoints.LoadCheckpoint(ctx, CheckpointName)
		if err != nil {
			return 0, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil {
			after = cp.LastID
		}
	}

	remaining, err := ix.repo.ListDocumentIDs(ctx, after, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	total := len(remaining)
	if total == 0 {
		fmt.Fprintf(ix.progress, "No documents to index\n")
		return 0, nil
	}

	fmt.Fprintf(ix.progress, "Indexing %d documents (batch size: %d)\n", total, ix.iterator.batchSize)
	tracker := NewProgressTracker(ix.progress, total, ix.config.ReportInterval)
	tracker.Start()

	indexed := 0
	err = ix.iterator.ForEach(ctx, after, func(docs []*core.Document) error {
		chunks, err := ix.processor.Process(ctx, docs)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		indexed += len(docs)
		tracker.Add(len(docs), chunks)

		if ix.checkpoints == nil {
			return nil
		}
		cp := &core.Checkpoint{ProcessorType: CheckpointName, LastID: docs[len(docs)-1].Id}
		if err := ix.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		ix.logger.Error("indexing stopped", "indexed", indexed, "err", err)
		return indexed, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(ix.progress, "Indexing complete. %d documents, %d pages in %v\n",
		indexed, tracker.Pages(), elapsed.Round(time.Millisecond))
	ix.logger.Info("indexing complete", "documents", indexed, "pages", tracker.Pages())

	return indexed, nil
}
