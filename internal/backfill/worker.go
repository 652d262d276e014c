package backfill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cardstock/internal/cards"
	"cardstock/internal/scryfall"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/pkg/models"
)

// Metafield written back to the upstream catalog once a listing is
// resolved.
const (
	MetafieldNamespace = "cardstock"
	MetafieldKey       = "scryfall_id"
	metafieldType      = "single_line_text_field"
)

// CatalogSource is the slice of the Shopify client the worker needs.
type CatalogSource interface {
	Products(ctx context.Context, pageInfo string) ([]models.Product, string, error)
	HasMetafield(ctx context.Context, productID int64, namespace, key string) (bool, error)
	SetMetafields(ctx context.Context, batch []shopify.MetafieldUpdate) error
}

// ReferenceSource is the on-demand lookup side of the Scryfall client.
// The worker deliberately bypasses the cached index: it may run with a
// stale local copy, and the point of the backfill is authoritative
// resolution.
type ReferenceSource interface {
	CardBySetNumber(ctx context.Context, set, number string) (*models.ReferenceCard, error)
	CardByName(ctx context.Context, name, set string) (*models.ReferenceCard, error)
}

// Worker walks the upstream catalog enriching listings that lack a
// reference metafield. Progress is checkpointed after every page, on
// budget exhaustion and on error, so any invocation resumes exactly
// where the last one stopped.
type Worker struct {
	Catalog     CatalogSource
	Refs        ReferenceSource
	Store       *store.Store
	GameTag     string
	ProductType string

	Budget    int           // max reference lookups per invocation
	MinDelay  time.Duration // minimum spacing between reference lookups
	BatchSize int           // metafield updates per upstream write

	lastLookup time.Time
}

func New(catalog CatalogSource, refs ReferenceSource, st *store.Store, gameTag string) *Worker {
	return &Worker{
		Catalog:   catalog,
		Refs:      refs,
		Store:     st,
		GameTag:   gameTag,
		Budget:    100,
		MinDelay:  150 * time.Millisecond,
		BatchSize: 10,
	}
}

// Run resumes the walk from the saved checkpoint. done reports whether
// the catalog was exhausted (the checkpoint is then cleared); when
// false, the returned checkpoint is the resumption point for the next
// invocation.
func (w *Worker) Run(ctx context.Context) (cp *models.Checkpoint, done bool, err error) {
	cp, err = w.Store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp.Cursor != "" || cp.Offset > 0 {
		log.Printf("[backfill] resuming at cursor=%q offset=%d (%d lookups so far)",
			cp.Cursor, cp.Offset, cp.Stats.Lookups)
	}

	lookups := 0
	var batch []shopify.MetafieldUpdate

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Catalog.SetMetafields(ctx, batch); err != nil {
			return fmt.Errorf("write metafields: %w", err)
		}
		cp.Stats.Updated += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		products, next, err := w.Catalog.Products(ctx, cp.Cursor)
		if errors.Is(err, shopify.ErrRateLimited) {
			if err := sleep(ctx, 2*time.Second); err != nil {
				_ = w.Store.SaveCheckpoint(ctx, cp)
				return cp, false, err
			}
			continue
		}
		if err != nil {
			_ = flush()
			_ = w.Store.SaveCheckpoint(ctx, cp)
			return cp, false, fmt.Errorf("catalog page: %w", err)
		}

		for i := cp.Offset; i < len(products); i++ {
			p := products[i]
			cp.Stats.Scanned++

			needsLookup, identity := w.candidate(ctx, cp, p)
			if !needsLookup {
				cp.Offset = i + 1
				continue
			}
			cp.Stats.Missing++

			// Budget is enforced before every lookup, not at page
			// boundaries: invocations have hard time limits.
			if lookups >= w.Budget {
				cp.Offset = i
				if err := flush(); err != nil {
					_ = w.Store.SaveCheckpoint(ctx, cp)
					return cp, false, err
				}
				if err := w.Store.SaveCheckpoint(ctx, cp); err != nil {
					return cp, false, err
				}
				log.Printf("[backfill] lookup budget (%d) spent, checkpointed", w.Budget)
				return cp, false, nil
			}

			if err := w.throttle(ctx); err != nil {
				_ = w.Store.SaveCheckpoint(ctx, cp)
				return cp, false, err
			}
			ref, err := w.lookup(ctx, identity)
			lookups++
			cp.Stats.Lookups++

			switch {
			case errors.Is(err, scryfall.ErrRateLimited):
				// Inconclusive, not a miss: the next pass retries it.
				cp.Stats.Skipped++
			case errors.Is(err, scryfall.ErrNotFound), ref == nil && err == nil:
				cp.Stats.NoMatch++
			case err != nil:
				cp.Stats.Skipped++
				log.Printf("[backfill] lookup for product %d inconclusive: %v", p.ID, err)
			default:
				cp.Stats.Matched++
				batch = append(batch, shopify.MetafieldUpdate{
					ProductID: p.ID,
					Namespace: MetafieldNamespace,
					Key:       MetafieldKey,
					Type:      metafieldType,
					Value:     ref.ID,
				})
				if len(batch) >= w.BatchSize {
					if err := flush(); err != nil {
						cp.Offset = i + 1
						_ = w.Store.SaveCheckpoint(ctx, cp)
						return cp, false, err
					}
				}
			}
			cp.Offset = i + 1
		}

		cp.Stats.Pages++
		cp.Cursor = next
		cp.Offset = 0

		if err := flush(); err != nil {
			_ = w.Store.SaveCheckpoint(ctx, cp)
			return cp, false, err
		}
		if err := w.Store.SaveCheckpoint(ctx, cp); err != nil {
			return cp, false, err
		}

		if next == "" {
			break
		}
	}

	log.Printf("[backfill] walk complete: %d scanned, %d matched, %d updated",
		cp.Stats.Scanned, cp.Stats.Matched, cp.Stats.Updated)
	if err := w.Store.ClearCheckpoint(ctx); err != nil {
		return cp, true, fmt.Errorf("clear checkpoint: %w", err)
	}
	return cp, true, nil
}

// candidate decides whether a product needs a reference lookup: in
// domain, parseable name, and no reference metafield yet. Metafield
// probe failures are treated as "already has one" so a flaky upstream
// never causes duplicate writes.
func (w *Worker) candidate(ctx context.Context, cp *models.Checkpoint, p models.Product) (bool, models.ParsedIdentity) {
	var id models.ParsedIdentity
	if !w.inDomain(p) {
		return false, id
	}
	id = cards.ParseTitle(p.Title)
	if id.CardName == "" {
		return false, id
	}

	has, err := w.Catalog.HasMetafield(ctx, p.ID, MetafieldNamespace, MetafieldKey)
	if err != nil {
		cp.Stats.Skipped++
		return false, id
	}
	return !has, id
}

// lookup resolves directly against the reference API: (set, number)
// across the remapped candidate sets with a name guard, then exact name
// per candidate set, then exact name alone.
func (w *Worker) lookup(ctx context.Context, id models.ParsedIdentity) (*models.ReferenceCard, error) {
	name := cards.NormalizeName(id.CardName)
	sets := cards.RemapSets(id.SetCode)

	if id.CollectorNumber != "" {
		for _, set := range sets {
			ref, err := w.Refs.CardBySetNumber(ctx, set, id.CollectorNumber)
			if errors.Is(err, scryfall.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if cards.NormalizeName(ref.Name) == name {
				return ref, nil
			}
		}
	}

	for _, set := range sets {
		ref, err := w.Refs.CardByName(ctx, id.CardName, set)
		if errors.Is(err, scryfall.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ref, nil
	}

	ref, err := w.Refs.CardByName(ctx, id.CardName, "")
	if errors.Is(err, scryfall.ErrNotFound) {
		return nil, nil
	}
	return ref, err
}

func (w *Worker) inDomain(p models.Product) bool {
	if w.GameTag != "" && p.HasTag(w.GameTag) {
		return true
	}
	return w.ProductType != "" && p.ProductType == w.ProductType
}

func (w *Worker) throttle(ctx context.Context) error {
	if w.lastLookup.IsZero() {
		w.lastLookup = time.Now()
		return nil
	}
	if wait := w.MinDelay - time.Since(w.lastLookup); wait > 0 {
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	w.lastLookup = time.Now()
	return nil
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
