package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardstock/internal/cards"
	"cardstock/pkg/models"
)

// Blob is the durable key-value contract the pipeline depends on: each
// Put replaces the whole value atomically, so readers never observe a
// torn snapshot.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

const (
	keySnapshot   = "snapshot"
	keyIndex      = "reference_index"
	keyCheckpoint = "backfill_checkpoint"
)

// Store wraps a Blob backend with typed accessors for the three blobs
// the system persists.
type Store struct {
	Blob Blob
}

func New(blob Blob) *Store {
	return &Store{Blob: blob}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Blob.Ping(ctx)
}

// SaveSnapshot replaces the persisted snapshot in a single atomic swap.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.Blob.Put(ctx, keySnapshot, b); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or ErrNotFound when no
// build has completed yet.
func (s *Store) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	b, err := s.Blob.Get(ctx, keySnapshot)
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveIndex caches the reference index (pair-list encoded, see
// cards.Index).
func (s *Store) SaveIndex(ctx context.Context, idx *cards.Index) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := s.Blob.Put(ctx, keyIndex, b); err != nil {
		return fmt.Errorf("put index: %w", err)
	}
	return nil
}

func (s *Store) LoadIndex(ctx context.Context) (*cards.Index, error) {
	b, err := s.Blob.Get(ctx, keyIndex)
	if err != nil {
		return nil, err
	}
	var idx cards.Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	return &idx, nil
}

// SaveCheckpoint persists the backfill resume state, stamping it.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := s.Blob.Put(ctx, keyCheckpoint, b); err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the saved checkpoint, or a zero checkpoint
// when none exists (a fresh walk).
func (s *Store) LoadCheckpoint(ctx context.Context) (*models.Checkpoint, error) {
	b, err := s.Blob.Get(ctx, keyCheckpoint)
	if errors.Is(err, ErrNotFound) {
		return &models.Checkpoint{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// ClearCheckpoint removes the resume state after a completed walk.
func (s *Store) ClearCheckpoint(ctx context.Context) error {
	return s.Blob.Delete(ctx, keyCheckpoint)
}
