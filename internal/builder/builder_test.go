package builder

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardstock/internal/cards"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/pkg/database"
	"cardstock/pkg/models"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return store.New(store.NewSQLiteBlob(db))
}

func testIndex() *cards.Index {
	return cards.BuildIndex([]models.ReferenceCard{
		{
			ID: "bolt-clu", Name: "Lightning Bolt", Set: "clu",
			CollectorNumber: "141", ReleasedAt: "2024-02-23",
			Games: []string{"paper"},
		},
		{
			ID: "duress-m21", Name: "Duress", Set: "m21",
			CollectorNumber: "96", ReleasedAt: "2020-07-03",
			Games: []string{"paper"},
		},
	})
}

func mtgProduct(id int64, title string) models.Product {
	return models.Product{
		ID:    id,
		Title: title,
		Tags:  "mtg, singles",
		Variants: []models.Variant{{
			ID: id * 10, Price: "1.00", InventoryQuantity: 1, Available: true,
		}},
	}
}

// fakeCatalog serves scripted pages and can inject one-shot errors.
type fakeCatalog struct {
	pages     [][]models.Product
	errAt     map[int]error // call number (1-based) -> error returned once
	callCount int
	page      int
}

func (f *fakeCatalog) Products(ctx context.Context, pageInfo string) ([]models.Product, string, error) {
	f.callCount++
	if err, ok := f.errAt[f.callCount]; ok {
		delete(f.errAt, f.callCount)
		return nil, "", err
	}
	if f.page >= len(f.pages) {
		return nil, "", nil
	}
	products := f.pages[f.page]
	f.page++
	next := ""
	if f.page < len(f.pages) {
		next = "cursor-" + strconv.Itoa(f.page)
	}
	return products, next, nil
}

func TestRunMultiPage(t *testing.T) {
	catalog := &fakeCatalog{pages: [][]models.Product{
		{mtgProduct(1, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]")},
		{mtgProduct(2, "Duress - Core Set 2021 (Common) [M21-96]")},
		{mtgProduct(3, "Mystery Booster Pack")},
	}}
	st := testStore(t)

	b := New(catalog, st, testIndex(), "mtg")
	snap, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Stats.Products)
	assert.Equal(t, 3, snap.Stats.Variants)
	assert.Equal(t, 2, snap.Stats.Matched)
	assert.Equal(t, 1, snap.Stats.Unmatched)
	assert.Equal(t, 3, snap.Stats.InStock)

	// sorted by name
	require.Len(t, snap.Cards, 3)
	assert.Equal(t, "Duress", snap.Cards[0].Name)
	assert.Equal(t, "Lightning Bolt", snap.Cards[1].Name)
	assert.Equal(t, "Mystery Booster Pack", snap.Cards[2].Name)

	// the run persisted the same snapshot it returned
	saved, err := st.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Stats, saved.Stats)
	assert.False(t, saved.GeneratedAt.IsZero())
}

func TestRunSkipsProductsOutsideDomain(t *testing.T) {
	sleeve := models.Product{
		ID: 9, Title: "Dragon Shield Sleeves", Tags: "accessories",
		Variants: []models.Variant{{ID: 90, Price: "9.99", Available: true, InventoryQuantity: 4}},
	}
	catalog := &fakeCatalog{pages: [][]models.Product{
		{mtgProduct(1, "Duress - Core Set 2021 (Common) [M21-96]"), sleeve},
	}}

	b := New(catalog, testStore(t), testIndex(), "mtg")
	snap, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Cards, 1)
	assert.Equal(t, "Duress", snap.Cards[0].Name)
}

func TestRunProductTypeFallback(t *testing.T) {
	untagged := models.Product{
		ID: 4, Title: "Duress - Core Set 2021 (Common) [M21-96]",
		ProductType: "MTG Single",
		Variants:    []models.Variant{{ID: 40, Price: "0.25", Available: true, InventoryQuantity: 8}},
	}
	catalog := &fakeCatalog{pages: [][]models.Product{{untagged}}}

	b := New(catalog, testStore(t), testIndex(), "mtg")
	b.ProductType = "MTG Single"
	snap, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Cards, 1)
}

func TestRunRetriesRateLimitedPage(t *testing.T) {
	catalog := &fakeCatalog{
		pages: [][]models.Product{
			{mtgProduct(1, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]")},
			{mtgProduct(2, "Duress - Core Set 2021 (Common) [M21-96]")},
		},
		errAt: map[int]error{2: shopify.ErrRateLimited},
	}

	b := New(catalog, testStore(t), testIndex(), "mtg")
	b.RetryBackoff = time.Millisecond
	snap, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Stats.Products, "rate-limited page is retried, not skipped")
	assert.Equal(t, 3, catalog.callCount)
}

func TestRunFirstPageFailureAborts(t *testing.T) {
	boom := errors.New("upstream down")
	catalog := &fakeCatalog{
		pages: [][]models.Product{{mtgProduct(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		errAt: map[int]error{1: boom},
	}
	st := testStore(t)

	b := New(catalog, st, testIndex(), "mtg")
	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// nothing persisted
	_, err = st.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunLaterPageFailureKeepsPartial(t *testing.T) {
	catalog := &fakeCatalog{
		pages: [][]models.Product{
			{mtgProduct(1, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]")},
			{mtgProduct(2, "Duress - Core Set 2021 (Common) [M21-96]")},
		},
		errAt: map[int]error{2: errors.New("timeout")},
	}
	st := testStore(t)

	b := New(catalog, st, testIndex(), "mtg")
	snap, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.Products, "first page kept despite second failing")

	saved, err := st.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved.Cards, 1)
}

func TestRunCancelledDuringBackoff(t *testing.T) {
	catalog := &fakeCatalog{
		pages: [][]models.Product{{mtgProduct(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		errAt: map[int]error{1: shopify.ErrRateLimited},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(catalog, testStore(t), testIndex(), "mtg")
	b.RetryBackoff = time.Hour
	_, err := b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
