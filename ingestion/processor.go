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

package ingestion

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/clausemark/audit"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/notify"
	"github.com/poiesic/clausemark/reindex"
	"github.com/poiesic/clausemark/storage"
)

// processor is an internal interface for post-storage document work.
type processor interface {
	// process handles freshly stored documents.
	process(ctx context.Context, docs ...*core.Document) error

	// checkpoint saves the processor's progress, if it tracks any.
	checkpoint(ctx context.Context) error
}

// indexProcessor encodes document pages into the embedding index.
type indexProcessor struct {
	batch       *reindex.BatchProcessor
	checkpoints storage.CheckpointRepository
	mu          sync.Mutex
	lastID      core.ID
	logger      *slog.Logger
}

var _ processor = (*indexProcessor)(nil)

func newIndexProcessor(batch *reindex.BatchProcessor, checkpoints storage.CheckpointRepository, logger *slog.Logger) *indexProcessor {
	return &indexProcessor{
		batch:       batch,
		checkpoints: checkpoints,
		logger:      logger.With("processor", "index"),
	}
}

func (ip *indexProcessor) process(ctx context.Context, docs ...*core.Document) error {
	ip.logger.Debug("indexing documents", "documents", len(docs))
	chunks, err := ip.batch.Process(ctx, docs)
	if err != nil {
		return err
	}
	ip.logger.Info("indexed documents", "documents", len(docs), "chunks", chunks)

	ids := make([]core.ID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Id)
	}
	if len(ids) == 0 {
		return nil
	}
	ip.mu.Lock()
	ip.lastID = max(ip.lastID, slices.Max(ids))
	ip.mu.Unlock()
	return nil
}

// checkpoint advances the indexer checkpoint; it never moves it backwards.
func (ip *indexProcessor) checkpoint(ctx context.Context) error {
	if ip.checkpoints == nil {
		return nil
	}
	ip.mu.Lock()
	defer ip.mu.Unlock()

	current, err := ip.checkpoints.LoadCheckpoint(ctx, reindex.CheckpointName)
	if err != nil {
		return err
	}
	if current != nil && current.LastID >= ip.lastID {
		return nil
	}
	return ip.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: reindex.CheckpointName,
		LastID:        ip.lastID,
		UpdatedAt:     time.Now().UTC(),
	})
}

// auditProcessor audits documents and notifies the sink.
type auditProcessor struct {
	auditor    *audit.Auditor
	sink       notify.Sink
	sampleSize int
	logger     *slog.Logger
}

var _ processor = (*auditProcessor)(nil)

func newAuditProcessor(auditor *audit.Auditor, sink notify.Sink, sampleSize int, logger *slog.Logger) *auditProcessor {
	return &auditProcessor{
		auditor:    auditor,
		sink:       sink,
		sampleSize: sampleSize,
		logger:     logger.With("processor", "audit"),
	}
}

func (ap *auditProcessor) process(ctx context.Context, docs ...*core.Document) error {
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		findings := ap.auditor.Run(doc.FullText)
		ap.logger.Info("audited document", "document_id", doc.Id, "findings", len(findings))
		ap.sink.Notify(ctx, core.AuditEvent{
			DocumentID:     doc.Id,
			FindingsCount:  len(findings),
			SampleFindings: audit.Sample(findings, ap.sampleSize),
		})
	}
	return nil
}

func (ap *auditProcessor) checkpoint(context.Context) error {
	return nil
}
