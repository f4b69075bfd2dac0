// Package sqlite provides a SQLite-backed document collection store.
//
// It stands in for the hosted document database the browser build talks to,
// so self-hosted deployments and tests run against the same DocumentStore
// surface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/latchkey.house/internal/storage"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for document collections.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a document store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AddDocument appends a new record to a collection and returns its id.
func (s *Store) AddDocument(ctx context.Context, collection string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return "", fmt.Errorf("collection is required")
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	docID := id.String()

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO documents (collection, doc_id, payload_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		collection,
		docID,
		payload,
		time.Now().UTC().UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return docID, nil
}

// GetDocument loads a record by collection and id.
func (s *Store) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	collection = strings.TrimSpace(collection)
	id = strings.TrimSpace(id)
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT payload_json FROM documents WHERE collection = ? AND doc_id = ?`,
		collection,
		id,
	)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return payload, nil
}

// SetDocument upserts a record by collection and id.
func (s *Store) SetDocument(ctx context.Context, collection, id string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	collection = strings.TrimSpace(collection)
	id = strings.TrimSpace(id)
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO documents (collection, doc_id, payload_json, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, doc_id)
		 DO UPDATE SET payload_json = excluded.payload_json`,
		collection,
		id,
		payload,
		time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

// IncrementField atomically adjusts one numeric field of a record.
//
// The adjustment runs as a single UPDATE so concurrent sessions do not race a
// read-modify-write cycle. A missing field counts from zero; a missing
// document returns ErrNotFound.
func (s *Store) IncrementField(ctx context.Context, collection, id, field string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	collection = strings.TrimSpace(collection)
	id = strings.TrimSpace(id)
	field = strings.TrimSpace(field)
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if field == "" {
		return fmt.Errorf("field is required")
	}

	path := "$." + field
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE documents
		 SET payload_json = json_set(payload_json, ?, COALESCE(json_extract(payload_json, ?), 0) + ?)
		 WHERE collection = ? AND doc_id = ?`,
		path,
		path,
		delta,
		collection,
		id,
	)
	if err != nil {
		return fmt.Errorf("increment field: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment field rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) runMigrations() error {
	_, err := s.sqlDB.Exec(
		`CREATE TABLE IF NOT EXISTS documents (
			collection   TEXT NOT NULL,
			doc_id       TEXT NOT NULL,
			payload_json BLOB NOT NULL,
			created_at   INTEGER NOT NULL,
			PRIMARY KEY (collection, doc_id)
		)`,
	)
	return err
}
