package mock

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/poiesic/clausemark/ai"
)

// MockIndex is an in-memory ai.Index with injectable behavior.
type MockIndex struct {
	// AddFunc is called by Add if set.
	AddFunc func(ctx context.Context, vectors [][]float32, metadata []map[string]string) error

	// SearchFunc is called by Search if set.
	SearchFunc func(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error)

	mu        sync.RWMutex
	vectors   [][]float32
	metadata  []map[string]string
	positions map[string]int
	closed    atomic.Bool
}

var _ ai.Index = (*MockIndex)(nil)

// NewMockIndex creates an empty in-memory index.
func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

// Add stores vectors in memory, replacing entries with the same ai.EntryKey.
func (m *MockIndex) Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, vectors, metadata)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positions == nil {
		m.positions = make(map[string]int)
	}
	for i, v := range vectors {
		var meta map[string]string
		if i < len(metadata) {
			meta = metadata[i]
		}
		key, ok := ai.EntryKey(meta)
		if pos, found := m.positions[key]; ok && found {
			m.vectors[pos] = slices.Clone(v)
			m.metadata[pos] = meta
			continue
		}
		if ok {
			m.positions[key] = len(m.vectors)
		}
		m.vectors = append(m.vectors, slices.Clone(v))
		m.metadata = append(m.metadata, meta)
	}
	return nil
}

// Search performs an exact squared-L2 scan.
func (m *MockIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, queries, k)
	}
	k = max(k, 0)
	m.mu.RLock()
	defer m.mu.RUnlock()

	distances := make([][]float32, len(queries))
	indices := make([][]int64, len(queries))
	for qi, q := range queries {
		order := make([]int, len(m.vectors))
		dist := make([]float32, len(m.vectors))
		for i, v := range m.vectors {
			order[i] = i
			for j := range min(len(q), len(v)) {
				d := q[j] - v[j]
				dist[i] += d * d
			}
		}
		slices.SortStableFunc(order, func(a, b int) int {
			switch {
			case dist[a] < dist[b]:
				return -1
			case dist[a] > dist[b]:
				return 1
			}
			return 0
		})
		distances[qi] = make([]float32, k)
		indices[qi] = make([]int64, k)
		for j := range k {
			if j < len(order) {
				distances[qi][j] = dist[order[j]]
				indices[qi][j] = int64(order[j])
				continue
			}
			distances[qi][j] = float32(math.Inf(1))
			indices[qi][j] = ai.NoNeighbor
		}
	}
	return distances, indices, nil
}

// Len returns the number of stored vectors.
func (m *MockIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Metadata returns the metadata stored at position i.
func (m *MockIndex) Metadata(i int) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[i]
}

// Close marks the index closed.
func (m *MockIndex) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MockIndex) Closed() bool {
	return m.closed.Load()
}
