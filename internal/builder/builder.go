package builder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cardstock/internal/cards"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/pkg/models"
)

// CatalogSource is the slice of the Shopify client the builder needs;
// tests substitute a fake.
type CatalogSource interface {
	Products(ctx context.Context, pageInfo string) ([]models.Product, string, error)
}

// Builder performs a full catalog rebuild: fetch every product page,
// transform every variant, persist the result as one atomic snapshot.
type Builder struct {
	Catalog     CatalogSource
	Store       *store.Store
	Index       *cards.Index
	GameTag     string // products must carry this tag (or ProductType) to be included
	ProductType string
	StoreURL    string

	// RetryBackoff is the fixed delay before retrying a rate-limited
	// page. The same page is retried, never skipped.
	RetryBackoff time.Duration
}

func New(catalog CatalogSource, st *store.Store, idx *cards.Index, gameTag string) *Builder {
	return &Builder{
		Catalog:      catalog,
		Store:        st,
		Index:        idx,
		GameTag:      gameTag,
		RetryBackoff: 2 * time.Second,
	}
}

// Run builds and persists a fresh snapshot. A hard failure on the very
// first page aborts the run; a failure on a later page keeps everything
// accumulated so far. The returned snapshot is the one persisted.
func (b *Builder) Run(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Stats: models.NewSnapshotStats()}

	cursor := ""
	pages := 0
	for {
		products, next, err := b.Catalog.Products(ctx, cursor)
		if errors.Is(err, shopify.ErrRateLimited) {
			log.Printf("[builder] rate limited on page %d, retrying in %s", pages+1, b.RetryBackoff)
			if err := sleep(ctx, b.RetryBackoff); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			if pages == 0 {
				return nil, fmt.Errorf("first catalog page: %w", err)
			}
			// Keep what we have rather than discarding a mostly-complete run.
			log.Printf("[builder] page %d failed, keeping %d cards accumulated so far: %v",
				pages+1, len(snap.Cards), err)
			break
		}
		pages++

		for _, p := range products {
			if !b.inDomain(p) {
				continue
			}
			b.addProduct(snap, p)
		}

		if next == "" {
			break
		}
		cursor = next
	}

	cards.SortCards(snap.Cards)
	snap.GeneratedAt = time.Now().UTC()

	if err := b.Store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	log.Printf("[builder] snapshot built: %d products, %d cards (%d matched, %d unmatched)",
		snap.Stats.Products, snap.Stats.Variants, snap.Stats.Matched, snap.Stats.Unmatched)
	return snap, nil
}

func (b *Builder) inDomain(p models.Product) bool {
	if b.GameTag != "" && p.HasTag(b.GameTag) {
		return true
	}
	return b.ProductType != "" && p.ProductType == b.ProductType
}

// addProduct parses the title once, then classifies/matches/transforms
// every variant independently. The match is recomputed per variant even
// though it only depends on the title; rarity and finish never change
// the match, so the redundancy is harmless.
func (b *Builder) addProduct(snap *models.Snapshot, p models.Product) {
	identity := cards.ParseTitle(p.Title)
	snap.Stats.Products++

	for _, v := range p.Variants {
		cls := cards.ClassifyVariant(v)
		ref := b.Index.Match(identity)
		card := cards.Merge(p, v, identity, cls, ref, b.StoreURL)

		snap.Cards = append(snap.Cards, card)
		snap.Stats.Variants++
		if card.Matched {
			snap.Stats.Matched++
		} else {
			snap.Stats.Unmatched++
		}
		if card.Store.InStock {
			snap.Stats.InStock++
		} else {
			snap.Stats.OutOfStock++
		}
		snap.Stats.ByCondition[cls.Condition]++
		snap.Stats.ByFinish[cls.Finish]++
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
