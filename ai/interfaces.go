package ai

import "context"

// Encoder turns text into fixed-dimension vectors.
// Implementations must be thread-safe for concurrent use.
type Encoder interface {
	// EncodeTexts generates one vector per input text, in input order.
	EncodeTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of every vector this encoder produces.
	Dimension() int
}

// Index stores vectors and answers k-nearest-neighbour queries.
// Implementations must be thread-safe for concurrent use.
type Index interface {
	// Add appends vectors with optional per-vector metadata.
	// metadata may be shorter than vectors, including nil. A vector whose
	// EntryKey matches a stored one replaces it in place.
	Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error

	// Search returns distances and indices shaped (len(queries), k).
	// Rows are padded with +Inf and NoNeighbor when fewer than k vectors exist.
	Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error)

	// Len returns the number of stored vectors.
	Len() int

	// Close releases resources held by the index.
	Close() error
}

// EmbeddingProvider is the single embedding surface used by ingestion and
// retrieval. Whether it is backed by a real encoder and index or by the
// degraded NullProvider is invisible to callers except through Degraded.
type EmbeddingProvider interface {
	// Encode generates one vector of length Dim per input text.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Add stores vectors in the provider's index.
	Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error

	// Search finds the k nearest stored vectors for each query.
	// Both returned matrices have shape (len(queries), k).
	Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error)

	// Dim returns the vector dimension.
	Dim() int

	// Close releases resources held by the provider.
	Close() error
}
