package clausemark

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/clausemark/ai"
	"github.com/poiesic/clausemark/ai/mock"
	"github.com/poiesic/clausemark/config"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/reindex"
	"github.com/poiesic/clausemark/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractText = "This Agreement is between Alpha Inc and Beta LLC. Effective Date: January 1, 2024. " +
	"The term is for a period of 2 years. This agreement will automatically renew and includes unlimited liability for party."

func degradedProbe(context.Context) ai.Capabilities {
	return ai.Capabilities{Arrays: true}
}

func openTestSystem(t *testing.T, cfg *config.AppConfig, opts ...Option) *System {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
		cfg.Storage.Path = ""
	}
	sys, err := Open(cfg, append([]Option{WithInMemoryStorage()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { sys.Close() })
	return sys
}

func TestOpen_EndToEnd(t *testing.T) {
	sys := openTestSystem(t, nil, WithProbe(degradedProbe))
	ctx := context.Background()

	res, err := sys.Ingest(ctx, "msa.txt", []string{contractText}, nil)
	require.NoError(t, err)
	sys.Wait()
	id := res.Document.Id

	findings, err := sys.Audit(ctx, id)
	require.NoError(t, err)
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "auto_renewal_short_notice")
	assert.Contains(t, ids, "unlimited_liability")

	fields, err := sys.Extract(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, fields.Parties)
	assert.Equal(t, []string{"Alpha Inc", "Beta LLC"}, fields.Parties.Value)
	assert.True(t, fields.AutoRenewal)

	resp, err := sys.Query(ctx, "Does the contract automatically renew?", 3)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, id, resp.Results[0].DocumentID)
	require.NotNil(t, resp.Results[0].Page)
	assert.Equal(t, 1, *resp.Results[0].Page)

	assert.True(t, sys.Provider().Degraded())
}

func TestOpen_RealProviderIndexesPages(t *testing.T) {
	sys := openTestSystem(t, nil, WithProbe(mock.CompleteProbe(8)))
	ctx := context.Background()

	_, err := sys.Ingest(ctx, "msa.txt", []string{"Page one text.\n", "Page two text.\n"}, nil)
	require.NoError(t, err)
	sys.Wait()

	assert.False(t, sys.Provider().Degraded())
	distances, indices, err := sys.Provider().Search(ctx, [][]float32{make([]float32, 8)}, 3)
	require.NoError(t, err)
	require.Len(t, indices[0], 3)
	assert.NotEqual(t, ai.NoNeighbor, indices[0][0])
	assert.NotEqual(t, ai.NoNeighbor, indices[0][1])
	assert.Equal(t, ai.NoNeighbor, indices[0][2])
	assert.Len(t, distances[0], 3)

	n, err := sys.Reindex(ctx, &reindex.Config{BatchSize: 10, ReportInterval: 10, MaxRetries: 1, Resume: true}, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "checkpoint already covers ingested documents")
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.Path = t.TempDir()

	sys, err := Open(cfg, WithProbe(degradedProbe))
	require.NoError(t, err)
	defer sys.Close()
	ctx := context.Background()

	res, err := sys.Ingest(ctx, "nda.txt", []string{"Confidential information does not apply to public data."}, nil)
	require.NoError(t, err)
	sys.Wait()

	doc, err := sys.Document(ctx, res.Document.Id)
	require.NoError(t, err)
	assert.Equal(t, res.Document.FullText, doc.FullText)

	findings, err := sys.Audit(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "confidentiality_exclusion", findings[0].RuleID)
}

func TestOpen_RulesFile(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("rules:\n  - id: penalty\n    description: Penalty clause\n    severity: low\n    pattern: penalt(y|ies)\n"), 0o644))

	cfg := config.Default()
	cfg.Storage.Path = ""
	cfg.Audit.RulesFile = rulesPath
	sys := openTestSystem(t, cfg, WithProbe(degradedProbe))

	res, err := sys.Ingest(context.Background(), "a.txt", []string{"Late penalties apply. Unlimited liability."}, nil)
	require.NoError(t, err)
	findings, err := sys.Audit(context.Background(), res.Document.Id)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "penalty", findings[0].RuleID)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "unknown"
	_, err := Open(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSystem_IngestFile(t *testing.T) {
	sys := openTestSystem(t, nil, WithProbe(degradedProbe))
	path := filepath.Join(t.TempDir(), "contract.txt")
	require.NoError(t, os.WriteFile(path, []byte("First page.\fSecond page."), 0o644))

	res, err := sys.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "contract.txt", res.Document.Filename)
	assert.Len(t, res.Document.Pages, 2)
	assert.Equal(t, path, res.Document.Metadata["source_path"])

	_, err = sys.IngestReader(context.Background(), strings.NewReader("x"), "x.bin")
	assert.Error(t, err)
}

func TestSystem_MissingDocument(t *testing.T) {
	sys := openTestSystem(t, nil, WithProbe(degradedProbe))
	_, err := sys.Audit(context.Background(), core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = sys.Extract(context.Background(), core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
