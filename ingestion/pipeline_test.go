package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/clausemark/ai/mock"
	"github.com/poiesic/clausemark/audit"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/reindex"
	"github.com/poiesic/clausemark/storage"
	"github.com/poiesic/clausemark/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures audit events.
type recordingSink struct {
	mu     sync.Mutex
	events []core.AuditEvent
}

func (s *recordingSink) Notify(_ context.Context, event core.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) snapshot() []core.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AuditEvent(nil), s.events...)
}

func setupTestDB(t *testing.T) (storage.DocumentRepository, storage.CheckpointRepository) {
	t.Helper()
	docRepo, cpRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		backend.Close()
	})
	return docRepo, cpRepo
}

func riskyDocument() *core.Document {
	pages, full := core.BuildPages([]string{
		"This agreement will automatically renew each year.\n",
		"The supplier accepts unlimited liability for party.\n",
	})
	return &core.Document{Filename: "msa.pdf", FullText: full, Pages: pages}
}

func TestNewPipeline(t *testing.T) {
	repo, _ := setupTestDB(t)
	provider := mock.NewMockProvider(4)

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(repo, provider)
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p)
	})

	t.Run("with options", func(t *testing.T) {
		p, err := NewPipeline(repo, provider,
			WithPoolSize(2),
			WithLogger(slog.Default()),
			WithAuditor(audit.NewAuditor(nil)),
			WithSink(nil),
			WithSampleSize(1),
		)
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p)
	})

	t.Run("invalid retry", func(t *testing.T) {
		_, err := NewPipeline(repo, provider, WithRetry(0, time.Millisecond))
		assert.ErrorIs(t, err, reindex.ErrInvalidMaxAttempts)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewPipeline(nil, provider)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewPipeline(repo, nil)
		assert.Equal(t, ErrProviderRequired, err)
	})
}

func TestIngest_StoresIndexesAndAudits(t *testing.T) {
	repo, checkpoints := setupTestDB(t)
	provider := mock.NewMockProvider(4)
	sink := &recordingSink{}
	ctx := context.Background()

	p, err := NewPipeline(repo, provider, WithSink(sink), WithCheckpoints(checkpoints), WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	results, err := p.Ingest(ctx, riskyDocument())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Duplicate)

	doc := results[0].Document
	assert.NotZero(t, doc.Id)
	assert.Equal(t, core.IDFromContent(doc.FullText), doc.ContentHash)

	p.Wait()

	stored, err := repo.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, doc.FullText, stored.FullText)

	index := provider.GetMockIndex()
	require.Equal(t, 2, index.Len(), "one vector per page")
	assert.Equal(t, "2", index.Metadata(1)[reindex.MetaPage])

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, doc.Id, events[0].DocumentID)
	assert.Equal(t, 2, events[0].FindingsCount)
	require.Len(t, events[0].SampleFindings, 2)
	assert.Equal(t, "unlimited_liability", events[0].SampleFindings[0].RuleID, "most severe first")

	cp, err := checkpoints.LoadCheckpoint(ctx, reindex.CheckpointName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, doc.Id, cp.LastID)
}

func TestIngest_Duplicate(t *testing.T) {
	repo, _ := setupTestDB(t)
	provider := mock.NewMockProvider(4)
	sink := &recordingSink{}
	ctx := context.Background()

	p, err := NewPipeline(repo, provider, WithSink(sink))
	require.NoError(t, err)
	defer p.Release()

	first, err := p.Ingest(ctx, riskyDocument())
	require.NoError(t, err)
	p.Wait()

	second, err := p.Ingest(ctx, riskyDocument())
	require.NoError(t, err)
	p.Wait()

	assert.True(t, second[0].Duplicate)
	assert.Equal(t, first[0].Document.Id, second[0].Document.Id)
	assert.Len(t, sink.snapshot(), 1, "duplicates are not audited again")
}

func TestIngest_Validation(t *testing.T) {
	repo, _ := setupTestDB(t)
	p, err := NewPipeline(repo, mock.NewMockProvider(4))
	require.NoError(t, err)
	defer p.Release()
	ctx := context.Background()

	_, err = p.Ingest(ctx)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = p.Ingest(ctx, &core.Document{Filename: "empty.txt"})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	bad := riskyDocument()
	bad.Pages[1].Start++
	_, err = p.Ingest(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	ids, err := repo.ListDocumentIDs(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing stored when validation fails")
}

func TestIngest_IndexFailureDoesNotFailIngest(t *testing.T) {
	repo, _ := setupTestDB(t)
	provider := mock.NewMockProvider(4)
	provider.EncodeFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("encoder offline")
	}
	sink := &recordingSink{}

	p, err := NewPipeline(repo, provider, WithSink(sink), WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	defer p.Release()

	results, err := p.Ingest(context.Background(), riskyDocument())
	require.NoError(t, err)
	require.Len(t, results, 1)
	p.Wait()

	assert.Zero(t, provider.GetMockIndex().Len())
	assert.Len(t, sink.snapshot(), 1, "audit still runs")
}

func TestIngestPages(t *testing.T) {
	repo, _ := setupTestDB(t)
	p, err := NewPipeline(repo, mock.NewMockProvider(4))
	require.NoError(t, err)
	defer p.Release()

	res, err := p.IngestPages(context.Background(), "nda.txt", []string{"Page one. ", "", "Page three."}, map[string]string{"source": "test"})
	require.NoError(t, err)
	p.Wait()

	doc := res.Document
	assert.Equal(t, "Page one. Page three.", doc.FullText)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 3, doc.Pages[1].Page)
	assert.Equal(t, "test", doc.Metadata["source"])
}
