package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clausemark/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Encoder implements ai.Encoder using OpenAI-compatible embedding APIs.
type Encoder struct {
	embedder embeddings.Embedder
	dim      int
	model    string
	logger   *slog.Logger
}

var _ ai.Encoder = (*Encoder)(nil)

// newEncoder is an internal constructor that returns the concrete type
// without contacting the service.
func newEncoder(config *ai.Config) (*Encoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Encoder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-encoder"),
	}, nil
}

// EncodeTexts generates vector embeddings for multiple text strings in a batch.
func (e *Encoder) EncodeTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmptyEmbedding, len(vectors), len(texts))
	}

	return vectors, nil
}

// Dimension returns the vector length learned when the encoder was probed.
func (e *Encoder) Dimension() int {
	return e.dim
}

// Model returns the embedding model identifier.
func (e *Encoder) Model() string {
	return e.model
}
