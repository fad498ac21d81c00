package storage

import (
	"context"

	"github.com/poiesic/clausemark/core"
)

// DocumentSource supplies a read-consistent snapshot of every stored document.
// Retrieval takes one snapshot per query.
type DocumentSource interface {
	// Snapshot returns all documents as of a single point in time, ordered by ID.
	Snapshot(ctx context.Context) ([]*core.Document, error)
}

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	DocumentSource

	// AddDocuments adds one or more documents to storage.
	// Always generates new IDs from the sequence.
	// Sets InsertedAt and ContentHash.
	// Returns the documents with generated fields populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocumentIDs returns up to limit document IDs greater than afterID,
	// in ascending order. A limit <= 0 returns all of them.
	ListDocumentIDs(ctx context.Context, afterID core.ID, limit int) ([]core.ID, error)

	// FindByContentHash returns the document whose text hashes to hash.
	// Returns ErrNotFound if none exists.
	FindByContentHash(ctx context.Context, hash core.ID) (*core.Document, error)

	// Close releases resources held by the repository.
	Close() error
}

// CheckpointRepository persists progress markers for resumable processors.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)
}
