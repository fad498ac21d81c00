package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/storage"
)

// Retriever answers questions with ranked citations over stored documents.
// It holds no per-query state and is safe for concurrent use.
type Retriever struct {
	source   storage.DocumentSource
	provider ai.EmbeddingProvider
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(source storage.DocumentSource, provider ai.EmbeddingProvider, opts ...Option) (*Retriever, error) {
	if source == nil {
		return nil, ErrDocumentSourceRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	r := &Retriever{
		source:   source,
		provider: provider,
		logger:   slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Query returns up to k citations for question.
// The only error it returns comes from the document source.
func (r *Retriever) Query(ctx context.Context, question string, k int) (*core.QueryResponse, error) {
	return r.QueryWithMonitor(ctx, question, k, nil)
}

// QueryWithMonitor is Query with callbacks at each stage.
func (r *Retriever) QueryWithMonitor(ctx context.Context, question string, k int, monitor QueryMonitor) (*core.QueryResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(question, k)

	distances, indices, err := r.vectorSearch(ctx, question, k)
	if err != nil {
		r.logger.Debug("vector search failed, using keyword ranking", "err", err)
	}
	monitor.AfterVectorSearch(distances, indices, err)

	tokens := tokenize(question)
	monitor.AfterTokenize(tokens)

	docs, err := r.source.Snapshot(ctx)
	if err != nil {
		r.logger.Error("error taking document snapshot", "err", err)
		return nil, fmt.Errorf("snapshot documents: %w", err)
	}
	monitor.AfterSnapshot(docs)

	results := r.rank(docs, tokens, k, monitor)
	monitor.Finish(results)

	return &core.QueryResponse{Results: results}, nil
}

// vectorSearch encodes the question and searches the provider index.
// Panics from the provider are converted to errors.
func (r *Retriever) vectorSearch(ctx context.Context, question string, k int) (distances [][]float32, indices [][]int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("vector search panicked: %v", p)
		}
	}()

	vectors, err := r.provider.Encode(ctx, []string{question})
	if err != nil {
		return nil, nil, err
	}
	return r.provider.Search(ctx, vectors, min(max(k, 0), MaxVectorNeighbors))
}

// rank scores docs against tokens and returns the top k.
func (r *Retriever) rank(docs []*core.Document, tokens []string, k int, monitor QueryMonitor) []core.RetrievalResult {
	results := []core.RetrievalResult{}
	if k <= 0 || len(tokens) == 0 {
		return results
	}

	matchers := newTermMatchers(tokens)
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		score, anchor := keywordScore(doc.FullText, matchers)
		if score == 0 {
			continue
		}
		monitor.DocumentScored(doc, score, anchor)
		results = append(results, citation(doc, anchor, score))
	}

	slices.SortStableFunc(results, func(a, b core.RetrievalResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func citation(doc *core.Document, anchor, score int) core.RetrievalResult {
	lo, hi := core.Window(doc.FullText, anchor, anchor, WindowBefore, WindowAfter)
	result := core.RetrievalResult{
		DocumentID: doc.Id,
		Start:      lo,
		End:        hi,
		Snippet:    doc.FullText[lo:hi],
		Score:      float64(score),
	}
	if i := doc.PageAt(anchor); i >= 0 {
		page := doc.Pages[i].Page
		result.Page = &page
	}
	return result
}
