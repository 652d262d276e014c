package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardstock/internal/cards"
	"cardstock/pkg/database"
	"cardstock/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return New(NewSQLiteBlob(db))
}

func TestBlobGetMissingKey(t *testing.T) {
	s := testStore(t)
	_, err := s.Blob.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobPutReplacesWholeValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Blob.Put(ctx, "k", []byte("first, much longer value")))
	require.NoError(t, s.Blob.Put(ctx, "k", []byte("second")))

	got, err := s.Blob.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestBlobDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Blob.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Blob.Delete(ctx, "k"))
	_, err := s.Blob.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, s.Blob.Delete(ctx, "k"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := &models.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Cards: []models.CanonicalCard{{
			ID:      "1-2",
			Name:    "Lightning Bolt",
			SetCode: "clu",
			Matched: true,
			Store:   models.Listing{ProductID: 1, VariantID: 2, InStock: true},
		}},
	}
	snap.Recount()
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, "Lightning Bolt", got.Cards[0].Name)
	assert.Equal(t, snap.Stats, got.Stats)
}

func TestIndexRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	idx := cards.BuildIndex([]models.ReferenceCard{{
		ID: "bolt-clu", Name: "Lightning Bolt", Set: "clu",
		CollectorNumber: "141", ReleasedAt: "2024-02-23",
		Games: []string{"paper"},
	}})
	require.NoError(t, s.SaveIndex(ctx, idx))

	got, err := s.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx.Size(), got.Size())

	ref := got.Match(models.ParsedIdentity{CardName: "Lightning Bolt", SetCode: "clu", CollectorNumber: "141"})
	require.NotNil(t, ref)
	assert.Equal(t, "bolt-clu", ref.ID)
}

func TestCheckpointLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// no checkpoint yet means a fresh walk, not an error
	cp, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp.Cursor)
	assert.Zero(t, cp.Offset)

	cp.Cursor = "page-3"
	cp.Offset = 7
	cp.Stats.Updated = 12
	require.NoError(t, s.SaveCheckpoint(ctx, cp))
	assert.False(t, cp.UpdatedAt.IsZero(), "save stamps the checkpoint")

	got, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "page-3", got.Cursor)
	assert.Equal(t, 7, got.Offset)
	assert.Equal(t, 12, got.Stats.Updated)

	require.NoError(t, s.ClearCheckpoint(ctx))
	cleared, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleared.Cursor)
	assert.Zero(t, cleared.Offset)
}
