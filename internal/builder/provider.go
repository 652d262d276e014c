package builder

import (
	"context"
	"sync"
	"time"

	"cardstock/internal/cards"
	"cardstock/internal/store"
)

// IndexProvider hands out the current reference index to long-lived
// callers (the webhook path). The index is refreshed wholesale once
// stale; a served copy is never patched.
type IndexProvider struct {
	Store *store.Store
	Refs  ReferenceSource
	TTL   time.Duration

	mu  sync.Mutex
	idx *cards.Index
}

func NewIndexProvider(st *store.Store, refs ReferenceSource, ttl time.Duration) *IndexProvider {
	return &IndexProvider{Store: st, Refs: refs, TTL: ttl}
}

func (p *IndexProvider) Get(ctx context.Context) (*cards.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.idx != nil && !p.idx.Stale(p.TTL) {
		return p.idx, nil
	}
	idx, err := EnsureIndex(ctx, p.Store, p.Refs, p.TTL)
	if err != nil {
		if p.idx != nil {
			// stale beats nothing
			return p.idx, nil
		}
		return nil, err
	}
	p.idx = idx
	return idx, nil
}
