package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/storage"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func newDoc(name string, pageTexts ...string) *core.Document {
	pages, full := core.BuildPages(pageTexts)
	return &core.Document{Filename: name, FullText: full, Pages: pages}
}

func TestNewStore_Migrations(t *testing.T) {
	dir := t.TempDir()

	store1, err := NewStore(dir)
	require.NoError(t, err)
	var version int
	require.NoError(t, store1.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store1.Close())

	// reopening must not re-run applied migrations
	store2, err := NewStore(dir)
	require.NoError(t, err)
	defer store2.Close()
	var count int
	require.NoError(t, store2.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStore_AddAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newDoc("msa.pdf", "This Agreement is between Alpha Inc and Beta LLC.\n", "Governed by the laws of Delaware.\n")
	doc.Metadata = map[string]string{"source": "test"}

	added, err := store.AddDocuments(ctx, doc)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id)

	got, err := store.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, doc.FullText, got.FullText)
	assert.Equal(t, doc.Pages, got.Pages)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.Equal(t, core.IDFromContent(doc.FullText), got.ContentHash)
	assert.NoError(t, core.ValidateDocument(got))
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetDocument(context.Background(), 77)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SnapshotAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	added, err := store.AddDocuments(ctx, newDoc("a", "alpha"), newDoc("b", "beta"), newDoc("c", "gamma"))
	require.NoError(t, err)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, "alpha", snapshot[0].FullText)
	assert.Equal(t, "gamma", snapshot[2].FullText)

	ids, err := store.ListDocumentIDs(ctx, added[0].Id, 0)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{added[1].Id, added[2].Id}, ids)

	ids, err = store.ListDocumentIDs(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{added[0].Id}, ids)
}

func TestStore_DeleteAndHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	added, err := store.AddDocuments(ctx, newDoc("a", "hash me"))
	require.NoError(t, err)

	found, err := store.FindByContentHash(ctx, core.IDFromContent("hash me"))
	require.NoError(t, err)
	assert.Equal(t, added[0].Id, found.Id)

	require.NoError(t, store.DeleteDocuments(ctx, added[0].Id))
	assert.ErrorIs(t, store.DeleteDocuments(ctx, added[0].Id), storage.ErrNotFound)

	_, err = store.FindByContentHash(ctx, core.IDFromContent("hash me"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Checkpoints(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	cp, err := store.LoadCheckpoint(ctx, "indexer")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, store.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: "indexer", LastID: 5}))
	require.NoError(t, store.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: "indexer", LastID: 9}))

	cp, err = store.LoadCheckpoint(ctx, "indexer")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, core.ID(9), cp.LastID)
}
