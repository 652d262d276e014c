package updater

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cardstock/internal/cards"
	"cardstock/internal/events"
	"cardstock/internal/store"
	"cardstock/pkg/models"
)

// Webhook topics the updater understands.
const (
	TopicCreate = "products/create"
	TopicUpdate = "products/update"
	TopicDelete = "products/delete"
)

// IndexSource yields the current match index. The webhook path runs in
// a long-lived process, so the index arrives through a provider that
// refreshes it wholesale on expiry.
type IndexSource interface {
	Get(ctx context.Context) (*cards.Index, error)
}

// StaticIndex wraps an already-built index as an IndexSource.
type StaticIndex struct{ Index *cards.Index }

func (s StaticIndex) Get(context.Context) (*cards.Index, error) { return s.Index, nil }

// Updater applies single-product webhook deltas to the persisted
// snapshot. Create/update is remove-then-reinsert, so applying the same
// delta twice lands on the same state.
type Updater struct {
	Store       *store.Store
	Indexes     IndexSource
	GameTag     string
	ProductType string
	StoreURL    string
	Hub         *events.Hub // optional
}

func New(st *store.Store, indexes IndexSource, gameTag string) *Updater {
	return &Updater{Store: st, Indexes: indexes, GameTag: gameTag}
}

// Apply mutates the snapshot for one delta. It returns false (and no
// error) when the delta is out of domain and was deliberately skipped:
// unknown topics, and create/update for products not tagged as ours.
// Deletes are never skipped on tags — by delete time the tags are
// usually already gone.
func (u *Updater) Apply(ctx context.Context, topic string, p models.Product) (bool, error) {
	if p.ID == 0 {
		return false, fmt.Errorf("product id required")
	}

	switch topic {
	case TopicDelete:
		return true, u.applyDelete(ctx, p.ID)
	case TopicCreate, TopicUpdate:
		if !u.inDomain(p) {
			return false, nil
		}
		return true, u.applyUpsert(ctx, p)
	default:
		return false, nil
	}
}

func (u *Updater) applyDelete(ctx context.Context, productID int64) error {
	snap, err := u.loadSnapshot(ctx)
	if err != nil {
		return err
	}

	removed := removeProduct(snap, productID)
	if removed == 0 {
		// Nothing to do, but saving keeps the operation idempotent and
		// refreshes the stats timestamp semantics either way.
		return nil
	}
	snap.Recount()

	if err := u.Store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	log.Printf("[updater] product %d deleted, removed %d cards", productID, removed)
	u.broadcast(events.TypeProductDeleted, productID, len(snap.Cards))
	return nil
}

func (u *Updater) applyUpsert(ctx context.Context, p models.Product) error {
	snap, err := u.loadSnapshot(ctx)
	if err != nil {
		return err
	}

	idx, err := u.Indexes.Get(ctx)
	if err != nil {
		return fmt.Errorf("match index: %w", err)
	}

	removeProduct(snap, p.ID)

	identity := cards.ParseTitle(p.Title)
	for _, v := range p.Variants {
		cls := cards.ClassifyVariant(v)
		ref := idx.Match(identity)
		snap.Cards = append(snap.Cards, cards.Merge(p, v, identity, cls, ref, u.StoreURL))
	}

	cards.SortCards(snap.Cards)
	snap.Recount()

	if err := u.Store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	log.Printf("[updater] product %d upserted with %d variants", p.ID, len(p.Variants))
	u.broadcast(events.TypeProductUpdated, p.ID, len(snap.Cards))
	return nil
}

// loadSnapshot treats a missing snapshot as empty: a webhook may land
// before the first full rebuild has ever run.
func (u *Updater) loadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, err := u.Store.LoadSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &models.Snapshot{
			GeneratedAt: time.Now().UTC(),
			Stats:       models.NewSnapshotStats(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (u *Updater) inDomain(p models.Product) bool {
	if u.GameTag != "" && p.HasTag(u.GameTag) {
		return true
	}
	return u.ProductType != "" && strings.EqualFold(p.ProductType, u.ProductType)
}

func (u *Updater) broadcast(evType string, productID int64, total int) {
	if u.Hub == nil {
		return
	}
	u.Hub.Broadcast(events.CatalogEvent{Type: evType, ProductID: productID, Cards: total})
}

func removeProduct(snap *models.Snapshot, productID int64) int {
	kept := snap.Cards[:0]
	removed := 0
	for _, c := range snap.Cards {
		if c.Store.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	snap.Cards = kept
	return removed
}
