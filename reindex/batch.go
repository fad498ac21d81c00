package reindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/core"
)

// Metadata keys stored alongside each indexed page vector.
const (
	MetaDocumentID = ai.MetaDocumentID
	MetaPage       = ai.MetaPage
	MetaStart      = "start"
	MetaEnd        = "end"
)

// BatchProcessor encodes document pages and adds them to an embedding provider.
type BatchProcessor struct {
	provider       ai.EmbeddingProvider
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each encode call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(provider ai.EmbeddingProvider, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		provider:       provider,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process encodes every page of docs and adds the normalized vectors to the
// provider with page metadata. A document without page spans is indexed as
// one chunk of its full text. Returns the number of chunks indexed.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.Document) (int, error) {
	var (
		texts    []string
		metadata []map[string]string
	)
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		texts, metadata = appendChunks(texts, metadata, doc)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = bp.provider.Encode(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to encode pages after %d attempts: %w", bp.maxRetries, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrVectorCountMismatch, len(texts), len(vectors))
	}

	for i := range vectors {
		vectors[i] = NormalizeVector(vectors[i])
	}

	if err := bp.provider.Add(ctx, vectors, metadata); err != nil {
		return 0, fmt.Errorf("failed to add vectors: %w", err)
	}
	return len(vectors), nil
}

func appendChunks(texts []string, metadata []map[string]string, doc *core.Document) ([]string, []map[string]string) {
	id := strconv.FormatUint(uint64(doc.Id), 10)
	if len(doc.Pages) == 0 {
		if doc.FullText == "" {
			return texts, metadata
		}
		return append(texts, doc.FullText), append(metadata, map[string]string{
			MetaDocumentID: id,
			MetaStart:      "0",
			MetaEnd:        strconv.Itoa(len(doc.FullText)),
		})
	}
	for _, p := range doc.Pages {
		texts = append(texts, p.Text)
		metadata = append(metadata, map[string]string{
			MetaDocumentID: id,
			MetaPage:       strconv.Itoa(p.Page),
			MetaStart:      strconv.Itoa(p.Start),
			MetaEnd:        strconv.Itoa(p.End),
		})
	}
	return texts, metadata
}
