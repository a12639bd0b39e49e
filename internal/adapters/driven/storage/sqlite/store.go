// Package sqlite provides the durable document store. Document records
// and fragments survive restarts so the in-memory keyword index can be
// rebuilt from the corpus on startup.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/finsync-labs/finsync-server/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store inside dataDir.
// If dataDir is empty, defaults to ~/.finsync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".finsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	// WAL mode for better concurrency between upload and query paths
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

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
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
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
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveRecord stores or updates a document record.
func (s *Store) SaveRecord(ctx context.Context, record *domain.DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, status, fragment_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			status = excluded.status,
			fragment_count = excluded.fragment_count,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, record.ID, record.Filename, string(record.Status), record.FragmentCount,
		record.Error, record.CreatedAt, record.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document record: %w", err)
	}
	return nil
}

// GetRecord retrieves a document record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, status, fragment_count, error, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanRecord(row)
}

// ListRecords returns all document records, newest first.
func (s *Store) ListRecords(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, status, fragment_count, error, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord
	for rows.Next() {
		var record domain.DocumentRecord
		var status string
		if err := rows.Scan(&record.ID, &record.Filename, &status, &record.FragmentCount,
			&record.Error, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document record: %w", err)
		}
		record.Status = domain.DocumentStatus(status)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return records, nil
}

// SaveFragments stores fragments for a document atomically.
func (s *Store) SaveFragments(ctx context.Context, fragments []domain.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (id, document_id, text, page, ordinal, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			text = excluded.text,
			page = excluded.page,
			ordinal = excluded.ordinal,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, fragment := range fragments {
		embeddingBlob := float32SliceToBytes(fragment.Embedding)
		if _, err := stmt.ExecContext(ctx, fragment.ID, fragment.DocumentID,
			fragment.Text, fragment.Page, fragment.Ordinal, embeddingBlob); err != nil {
			return fmt.Errorf("saving fragment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetFragment retrieves a fragment by ID.
func (s *Store) GetFragment(ctx context.Context, id string) (*domain.Fragment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, text, page, ordinal, embedding
		FROM fragments WHERE id = ?
	`, id)

	var fragment domain.Fragment
	var embeddingBlob []byte
	if err := row.Scan(&fragment.ID, &fragment.DocumentID, &fragment.Text,
		&fragment.Page, &fragment.Ordinal, &embeddingBlob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning fragment: %w", err)
	}
	fragment.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &fragment, nil
}

// ListFragments returns every fragment ordered by document and ordinal.
func (s *Store) ListFragments(ctx context.Context) ([]domain.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, text, page, ordinal, embedding
		FROM fragments ORDER BY document_id, ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var fragments []domain.Fragment
	for rows.Next() {
		var fragment domain.Fragment
		var embeddingBlob []byte
		if err := rows.Scan(&fragment.ID, &fragment.DocumentID, &fragment.Text,
			&fragment.Page, &fragment.Ordinal, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		fragment.Embedding = bytesToFloat32Slice(embeddingBlob)
		fragments = append(fragments, fragment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	return fragments, nil
}

// scanRecord scans a single document record row.
func scanRecord(row *sql.Row) (*domain.DocumentRecord, error) {
	var record domain.DocumentRecord
	var status string
	if err := row.Scan(&record.ID, &record.Filename, &status, &record.FragmentCount,
		&record.Error, &record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document record: %w", err)
	}
	record.Status = domain.DocumentStatus(status)
	return &record, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
