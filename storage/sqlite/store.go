package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/storage"
	"github.com/poiesic/clausemark/storage/sqlite/migrations"
)

// DatabaseFile is the file name created inside the data directory.
const DatabaseFile = "clausemark.db"

// Store is a SQLite-backed document and checkpoint repository.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ storage.DocumentRepository   = (*Store)(nil)
	_ storage.CheckpointRepository = (*Store)(nil)
)

// pageRecord is the JSON form of a page span.
type pageRecord struct {
	Page  int    `json:"page"`
	Text  string `json:"text"`
	Start int    `json:"start_char"`
	End   int    `json:"end_char"`
}

// NewStore opens (creating if needed) the database in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL mode for concurrent readers during ingestion
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// AddDocuments inserts documents in one transaction and assigns their IDs.
func (s *Store) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, doc := range docs {
		doc.InsertedAt = time.Now().UTC()
		doc.ContentHash = core.IDFromContent(doc.FullText)

		pagesJSON, metaJSON, err := encodeColumns(doc)
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (filename, full_text, pages, metadata, content_hash, inserted_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, doc.Filename, doc.FullText, pagesJSON, metaJSON, int64(doc.ContentHash), doc.InsertedAt.UnixMicro())
		if err != nil {
			return nil, fmt.Errorf("inserting document: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading document id: %w", err)
		}
		doc.Id = core.ID(id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing documents: %w", err)
	}
	return docs, nil
}

// DeleteDocuments removes documents by ID.
func (s *Store) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", int64(id))
		if err != nil {
			return fmt.Errorf("deleting document %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrNotFound
		}
	}
	return tx.Commit()
}

const selectDocument = `SELECT id, filename, full_text, pages, metadata, content_hash, inserted_at FROM documents`

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx, selectDocument+" WHERE id = ?", int64(id))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return doc, err
}

// GetDocuments retrieves the documents that exist among ids, in argument order.
func (s *Store) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	for _, id := range ids {
		doc, err := s.GetDocument(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, nil
}

// Snapshot returns all documents ordered by ID from one read transaction.
func (s *Store) Snapshot(ctx context.Context) ([]*core.Document, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	rows, err := tx.QueryContext(ctx, selectDocument+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var result []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

// ListDocumentIDs returns up to limit IDs greater than afterID in ascending order.
func (s *Store) ListDocumentIDs(ctx context.Context, afterID core.ID, limit int) ([]core.ID, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM documents WHERE id > ? ORDER BY id LIMIT ?", int64(afterID), limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var ids []core.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, core.ID(id))
	}
	return ids, rows.Err()
}

// FindByContentHash returns the most recently inserted document with the given hash.
func (s *Store) FindByContentHash(ctx context.Context, hash core.ID) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx, selectDocument+" WHERE content_hash = ? ORDER BY id DESC LIMIT 1", int64(hash))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return doc, err
}

// SaveCheckpoint upserts a processor checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	checkpoint.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (processor_type, last_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(processor_type) DO UPDATE SET last_id = excluded.last_id, updated_at = excluded.updated_at
	`, checkpoint.ProcessorType, int64(checkpoint.LastID), checkpoint.UpdatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns nil, nil when no checkpoint exists.
func (s *Store) LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error) {
	var (
		lastID    int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT last_id, updated_at FROM checkpoints WHERE processor_type = ?", processorType,
	).Scan(&lastID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return &core.Checkpoint{
		ProcessorType: processorType,
		LastID:        core.ID(lastID),
		UpdatedAt:     time.UnixMicro(updatedAt).UTC(),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*core.Document, error) {
	var (
		id         int64
		doc        core.Document
		pagesJSON  string
		metaJSON   string
		hash       int64
		insertedAt int64
	)
	if err := row.Scan(&id, &doc.Filename, &doc.FullText, &pagesJSON, &metaJSON, &hash, &insertedAt); err != nil {
		return nil, err
	}
	doc.Id = core.ID(id)
	doc.ContentHash = core.ID(hash)
	doc.InsertedAt = time.UnixMicro(insertedAt).UTC()

	var pages []pageRecord
	if err := json.Unmarshal([]byte(pagesJSON), &pages); err != nil {
		return nil, fmt.Errorf("%w: pages: %w", storage.ErrSerializationFailed, err)
	}
	for _, p := range pages {
		doc.Pages = append(doc.Pages, core.PageSpan{Page: p.Page, Text: p.Text, Start: p.Start, End: p.End})
	}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", storage.ErrSerializationFailed, err)
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}
	return &doc, nil
}

func encodeColumns(doc *core.Document) (string, string, error) {
	pages := make([]pageRecord, len(doc.Pages))
	for i, p := range doc.Pages {
		pages[i] = pageRecord{Page: p.Page, Text: p.Text, Start: p.Start, End: p.End}
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return "", "", fmt.Errorf("%w: pages: %w", storage.ErrSerializationFailed, err)
	}
	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", "", fmt.Errorf("%w: metadata: %w", storage.ErrSerializationFailed, err)
	}
	return string(pagesJSON), string(metaJSON), nil
}
