package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"

	"github.com/poiesic/clausemark/ai"
)

// MockEncoder is a test double for ai.Encoder.
// It allows custom behavior injection via function fields.
type MockEncoder struct {
	// EncodeTextsFunc is called by EncodeTexts if set.
	// If nil, uses default deterministic behavior.
	EncodeTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dim       int
	callCount atomic.Int64
}

var _ ai.Encoder = (*MockEncoder)(nil)

// NewMockEncoder creates a mock encoder producing dim-length vectors.
func NewMockEncoder(dim int) *MockEncoder {
	return &MockEncoder{dim: dim}
}

// EncodeTexts generates deterministic embeddings for multiple texts.
func (m *MockEncoder) EncodeTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EncodeTextsFunc != nil {
		return m.EncodeTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicVector(text, m.dim)
	}
	return embeddings, nil
}

// Dimension returns the configured vector length.
func (m *MockEncoder) Dimension() int {
	return m.dim
}

// CallCount returns the number of times EncodeTexts was called.
func (m *MockEncoder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockEncoder) Reset() {
	m.callCount.Store(0)
	m.EncodeTextsFunc = nil
}

// DeterministicVector creates a unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
