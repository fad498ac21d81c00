package ai

import (
	"context"
	"math"
)

// NullProvider is the degraded embedding provider used when any facility is
// missing. Encode yields zero vectors, Add records nothing, and Search reports
// no neighbours. None of its methods return an error.
type NullProvider struct {
	dim int
}

var _ EmbeddingProvider = (*NullProvider)(nil)

// NewNullProvider creates a NullProvider producing vectors of length dim.
// A non-positive dim falls back to DefaultMockDimension.
func NewNullProvider(dim int) *NullProvider {
	if dim <= 0 {
		dim = DefaultMockDimension
	}
	return &NullProvider{dim: dim}
}

// Encode returns one all-zero vector per text.
func (p *NullProvider) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, p.dim)
	}
	return out, nil
}

// Add discards the vectors.
func (p *NullProvider) Add(_ context.Context, _ [][]float32, _ []map[string]string) error {
	return nil
}

// Search returns +Inf distances and NoNeighbor indices for every query.
// Negative k is treated as zero.
func (p *NullProvider) Search(_ context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	k = max(k, 0)
	distances := make([][]float32, len(queries))
	indices := make([][]int64, len(queries))
	for i := range queries {
		distances[i] = make([]float32, k)
		indices[i] = make([]int64, k)
		for j := range k {
			distances[i][j] = float32(math.Inf(1))
			indices[i][j] = NoNeighbor
		}
	}
	return distances, indices, nil
}

// Dim returns the configured dimension.
func (p *NullProvider) Dim() int {
	return p.dim
}

// Close is a no-op.
func (p *NullProvider) Close() error {
	return nil
}
