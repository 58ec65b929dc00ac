// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"invoicer/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using a single SQLite key-value table.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Handles in other processes wait for the write lock instead of failing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetJSON reads and decodes the value stored under key.
func (s *SQLiteStore) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", key, errors.Join(storage.ErrUnavailable, err))
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, &storage.MalformedError{Key: key, Err: err}
	}
	return true, nil
}

// SetJSON encodes v and upserts it under key.
func (s *SQLiteStore) SetJSON(ctx context.Context, key string, v any) error {
	return s.SetJSONBatch(ctx, map[string]any{key: v})
}

// SetJSONBatch writes all values in one transaction.
func (s *SQLiteStore) SetJSONBatch(ctx context.Context, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", key, err)
		}
		encoded[key] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, value := range encoded {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		if err != nil {
			return fmt.Errorf("failed to write %q: %w", key, errors.Join(storage.ErrUnavailable, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	return nil
}

// IncrementCounter bumps the counter under key inside one BEGIN IMMEDIATE
// transaction, so handles in other processes cannot read the old value
// between the read and the write.
func (s *SQLiteStore) IncrementCounter(ctx context.Context, key string) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", errors.Join(storage.ErrUnavailable, err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var (
		raw  string
		last int64
	)
	err = conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, fmt.Errorf("failed to read %q: %w", key, errors.Join(storage.ErrUnavailable, err))
	default:
		if err := json.Unmarshal([]byte(raw), &last); err != nil {
			return 0, &storage.MalformedError{Key: key, Err: err}
		}
	}
	if last < 0 {
		last = 0
	}
	next := last + 1

	_, err = conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, strconv.FormatInt(next, 10), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to write %q: %w", key, errors.Join(storage.ErrUnavailable, err))
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	committed = true
	return next, nil
}

// Delete removes key if present.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, errors.Join(storage.ErrUnavailable, err))
	}
	return nil
}

// Clear removes every key the core owns.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	defer tx.Rollback()

	for _, key := range storage.AllKeys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to clear %q: %w", key, errors.Join(storage.ErrUnavailable, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", errors.Join(storage.ErrUnavailable, err))
	}
	return nil
}
