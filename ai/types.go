package ai

const (
	// DefaultMockDimension is the vector length produced by NullProvider
	// when no dimension is configured.
	DefaultMockDimension = 32

	// NoNeighbor is the index reported for an empty search slot.
	NoNeighbor int64 = -1
)

// Metadata keys identifying the document region a vector was encoded from.
const (
	MetaDocumentID = "document_id"
	MetaPage       = "page"
)

// EntryKey identifies the document page a vector belongs to. Indexes replace
// a stored vector whose metadata has the same key instead of appending.
// ok is false when metadata carries no document ID.
func EntryKey(metadata map[string]string) (key string, ok bool) {
	id, ok := metadata[MetaDocumentID]
	if !ok {
		return "", false
	}
	return id + "/" + metadata[MetaPage], true
}
