package builder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cardstock/internal/cards"
	"cardstock/internal/store"
	"cardstock/pkg/models"
)

// ReferenceSource is the slice of the Scryfall client index loading
// needs.
type ReferenceSource interface {
	BulkCards(ctx context.Context) ([]models.ReferenceCard, error)
}

// EnsureIndex returns a usable match index: the cached one when fresh,
// otherwise a wholesale rebuild from a new bulk download. The cache is
// never patched in place — a stale index is replaced entirely, and kept
// as a fallback only when the refresh download itself fails.
func EnsureIndex(ctx context.Context, st *store.Store, refs ReferenceSource, ttl time.Duration) (*cards.Index, error) {
	cached, err := st.LoadIndex(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load cached index: %w", err)
	}
	if cached != nil && !cached.Stale(ttl) {
		log.Printf("[builder] using cached reference index (%d printings, built %s)",
			cached.Size(), cached.BuiltAt.Format(time.RFC3339))
		return cached, nil
	}

	log.Printf("[builder] reference index missing or stale, downloading bulk data")
	bulk, err := refs.BulkCards(ctx)
	if err != nil {
		if cached != nil {
			log.Printf("[builder] bulk download failed, falling back to stale index: %v", err)
			return cached, nil
		}
		return nil, fmt.Errorf("bulk download: %w", err)
	}

	idx := cards.BuildIndex(bulk)
	if err := st.SaveIndex(ctx, idx); err != nil {
		// Not fatal: the index works for this invocation, only the
		// cache write was lost.
		log.Printf("[builder] caching index failed: %v", err)
	}
	log.Printf("[builder] reference index built: %d printings", idx.Size())
	return idx, nil
}
