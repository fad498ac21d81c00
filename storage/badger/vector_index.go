package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/storage"
)

// vectorBatchSize bounds the number of entries written per transaction.
const vectorBatchSize = 1000

// VectorIndex is an exact (flat) nearest-neighbour index using squared L2
// distance. Vectors are held in memory for search and persisted to BadgerDB
// under their insertion position, which is the index value returned by Search.
// A vector whose ai.EntryKey matches a stored one overwrites it at the same
// position, so re-encoding a document page never grows the index.
type VectorIndex struct {
	backend *Backend
	owned   bool
	logger  *slog.Logger

	mu        sync.RWMutex
	dim       int
	vectors   [][]float32
	metadata  []map[string]string
	positions map[string]int64
}

// OpenVectorIndex loads the vector index stored in backend.
// The stored dimension, if any, must equal dim.
func OpenVectorIndex(backend *Backend, dim int) (*VectorIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", storage.ErrDimensionMismatch, dim)
	}
	idx := &VectorIndex{
		backend:   backend,
		logger:    slog.Default().With("component", "vector-index"),
		dim:       dim,
		positions: make(map[string]int64),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// OpenVectorIndexAt opens (or creates) a BadgerDB directory at path dedicated
// to the vector index. Closing the index closes the directory.
func OpenVectorIndexAt(path string, dim int) (*VectorIndex, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	idx, err := OpenVectorIndex(backend, dim)
	if err != nil {
		backend.Close()
		return nil, err
	}
	idx.owned = true
	return idx, nil
}

func (x *VectorIndex) load() error {
	return x.backend.Update(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(vectorDimKey))
		switch {
		case err == badger.ErrKeyNotFound:
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(x.dim))
			if err := tx.Set([]byte(vectorDimKey), buf); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			var stored int
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return storage.ErrTruncatedData
				}
				stored = int(binary.BigEndian.Uint64(val))
				return nil
			}); err != nil {
				return err
			}
			if stored != x.dim {
				return fmt.Errorf("%w: index holds %d-d vectors, want %d", storage.ErrDimensionMismatch, stored, x.dim)
			}
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				vec, meta, err := storage.UnmarshalVectorEntry(val)
				if err != nil {
					return err
				}
				if key, ok := ai.EntryKey(meta); ok {
					x.positions[key] = int64(len(x.vectors))
				}
				x.vectors = append(x.vectors, vec)
				x.metadata = append(x.metadata, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		x.logger.Debug("vector index loaded", "vectors", len(x.vectors), "dim", x.dim)
		return nil
	})
}

// Dim returns the dimension of vectors in the index.
func (x *VectorIndex) Dim() int {
	return x.dim
}

// Len returns the number of vectors in the index.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add appends vectors to the index. metadata may be shorter than vectors
// (including nil); missing entries are stored empty. Vectors for a page that
// is already indexed replace the stored vector.
func (x *VectorIndex) Add(ctx context.Context, vectors [][]float32, metadata []map[string]string) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", storage.ErrDimensionMismatch, i, len(v), x.dim)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for done := 0; done < len(vectors); done += vectorBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(done+vectorBatchSize, len(vectors))

		next := int64(len(x.vectors))
		pending := make(map[string]int64)
		positions := make([]int64, end-done)
		for i := done; i < end; i++ {
			key, ok := ai.EntryKey(metaAt(metadata, i))
			if !ok {
				positions[i-done] = next
				next++
				continue
			}
			pos, found := x.positions[key]
			if !found {
				pos, found = pending[key]
			}
			if !found {
				pos = next
				next++
				pending[key] = pos
			}
			positions[i-done] = pos
		}

		err := x.backend.Update(func(tx *badger.Txn) error {
			for i := done; i < end; i++ {
				key := makeVectorKey(positions[i-done])
				if err := tx.Set(key, storage.MarshalVectorEntry(vectors[i], metaAt(metadata, i))); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		for i := done; i < end; i++ {
			pos := positions[i-done]
			vec, meta := slices.Clone(vectors[i]), metaAt(metadata, i)
			if pos < int64(len(x.vectors)) {
				x.vectors[pos] = vec
				x.metadata[pos] = meta
				continue
			}
			x.vectors = append(x.vectors, vec)
			x.metadata = append(x.metadata, meta)
		}
		maps.Copy(x.positions, pending)
	}
	return nil
}

func metaAt(metadata []map[string]string, i int) map[string]string {
	if i < len(metadata) {
		return metadata[i]
	}
	return nil
}

// Search returns, for each query, the k nearest stored vectors by squared L2
// distance in ascending order. Rows are padded with +Inf distances and -1
// indices when the index holds fewer than k vectors.
func (x *VectorIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	k = max(k, 0)
	for i, q := range queries {
		if len(q) != x.dim {
			return nil, nil, fmt.Errorf("%w: query %d has %d values, want %d", storage.ErrDimensionMismatch, i, len(q), x.dim)
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type neighbour struct {
		dist float32
		pos  int64
	}

	distances := make([][]float32, len(queries))
	indices := make([][]int64, len(queries))
	for qi, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		all := make([]neighbour, len(x.vectors))
		for pos, v := range x.vectors {
			all[pos] = neighbour{dist: squaredL2(q, v), pos: int64(pos)}
		}
		slices.SortStableFunc(all, func(a, b neighbour) int {
			switch {
			case a.dist < b.dist:
				return -1
			case a.dist > b.dist:
				return 1
			}
			return 0
		})

		distances[qi] = make([]float32, k)
		indices[qi] = make([]int64, k)
		for j := range k {
			if j < len(all) {
				distances[qi][j] = all[j].dist
				indices[qi][j] = all[j].pos
				continue
			}
			distances[qi][j] = float32(math.Inf(1))
			indices[qi][j] = -1
		}
	}
	return distances, indices, nil
}

// Metadata returns the metadata stored with the vector at pos.
func (x *VectorIndex) Metadata(pos int64) (map[string]string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if pos < 0 || pos >= int64(len(x.metadata)) {
		return nil, false
	}
	return x.metadata[pos], true
}

// Close closes the underlying backend if the index opened it.
func (x *VectorIndex) Close() error {
	if x.owned {
		return x.backend.Close()
	}
	return nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
