// Package sqlite persists ingestion records in a local SQLite database.
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

	"github.com/terasky-int/sow-dataset/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Store is the SQLite-backed ingestion tracker storage.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements the interface.
var _ driven.IngestionStore = (*Store)(nil)

// NewStore opens (or creates) the tracker database under dataDir.
// If dataDir is empty, defaults to ~/.sowdata/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sowdata", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tracker.db")

	// WAL mode for concurrent ingestion workers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
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

// Get retrieves the ingestion record for a path.
func (s *Store) Get(ctx context.Context, path string) (*domain.IngestionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, fingerprint, collection, chunk_ids, ingested_at
		FROM ingestion_records WHERE path = ?
	`, path)

	var rec domain.IngestionRecord
	var chunkIDs string
	var ingestedAt sql.NullTime
	if err := row.Scan(&rec.Path, &rec.Fingerprint, &rec.Collection, &chunkIDs, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkIDs), &rec.ChunkIDs); err != nil {
		return nil, fmt.Errorf("%w: chunk ids of %s: %w", domain.ErrTrackerCorrupt, path, err)
	}
	if ingestedAt.Valid {
		rec.IngestedAt = ingestedAt.Time
	}

	return &rec, nil
}

// Save stores or replaces the record for a path.
func (s *Store) Save(ctx context.Context, rec domain.IngestionRecord) error {
	chunkIDs, err := json.Marshal(rec.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshalling chunk ids: %w", err)
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingestion_records (path, fingerprint, collection, chunk_ids, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			collection = excluded.collection,
			chunk_ids = excluded.chunk_ids,
			ingested_at = excluded.ingested_at
	`, rec.Path, rec.Fingerprint, rec.Collection, string(chunkIDs), rec.IngestedAt)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// Delete removes the record for a path.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ingestion_records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// List returns all ingestion records ordered by path.
func (s *Store) List(ctx context.Context) ([]domain.IngestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, fingerprint, collection, chunk_ids, ingested_at
		FROM ingestion_records ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []domain.IngestionRecord
	for rows.Next() {
		var rec domain.IngestionRecord
		var chunkIDs string
		var ingestedAt sql.NullTime
		if err := rows.Scan(&rec.Path, &rec.Fingerprint, &rec.Collection, &chunkIDs, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(chunkIDs), &rec.ChunkIDs); err != nil {
			return nil, fmt.Errorf("%w: chunk ids of %s: %w", domain.ErrTrackerCorrupt, rec.Path, err)
		}
		if ingestedAt.Valid {
			rec.IngestedAt = ingestedAt.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
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
