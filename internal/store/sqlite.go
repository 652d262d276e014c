package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteBlob stores blobs in a single kv table. A Put is one upsert
// inside sqlite's own transaction, which gives the atomic-swap
// guarantee the snapshot contract needs.
type SQLiteBlob struct {
	DB *sql.DB
}

func NewSQLiteBlob(db *sql.DB) *SQLiteBlob {
	return &SQLiteBlob{DB: db}
}

func (s *SQLiteBlob) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteBlob) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
		  value = excluded.value,
		  updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBlob) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBlob) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
