package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/clausemark/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec:"
	documentHashPrefix = "dochash:"
	documentIDSeq      = "docrecseq"
	vectorPrefix       = "vecidx:"
	vectorDimKey       = "vecidxdim"
)

// makeUint64Key appends v to prefix in BigEndian order so that
// lexicographic key order matches numeric order.
func makeUint64Key(prefix string, v uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], v)
	return buf
}

// makeDocumentKey generates a key for a document by ID.
// Format: prefix + BigEndian(id)
func makeDocumentKey(id core.ID) []byte {
	return makeUint64Key(documentPrefix, uint64(id))
}

// documentIDFromKey recovers the ID from a document key.
func documentIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(documentPrefix):]))
}

// makeDocumentHashKey generates a key for the content hash index.
// Format: prefix + BigEndian(hash)
func makeDocumentHashKey(hash core.ID) []byte {
	return makeUint64Key(documentHashPrefix, uint64(hash))
}

// makeVectorKey generates a key for the vector stored at position pos.
func makeVectorKey(pos int64) []byte {
	return makeUint64Key(vectorPrefix, uint64(pos))
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
