package backfill

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardstock/internal/scryfall"
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

type fakeShop struct {
	pages    [][]models.Product
	tagged   map[int64]bool // productID -> already has the metafield
	probeErr map[int64]error

	writes [][]shopify.MetafieldUpdate
}

func (f *fakeShop) Products(ctx context.Context, pageInfo string) ([]models.Product, string, error) {
	idx := 0
	if pageInfo != "" {
		idx = int(pageInfo[len(pageInfo)-1] - '0')
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = "page-" + string(rune('0'+idx+1))
	}
	return f.pages[idx], next, nil
}

func (f *fakeShop) HasMetafield(ctx context.Context, productID int64, namespace, key string) (bool, error) {
	if err := f.probeErr[productID]; err != nil {
		return false, err
	}
	return f.tagged[productID], nil
}

func (f *fakeShop) SetMetafields(ctx context.Context, batch []shopify.MetafieldUpdate) error {
	cp := make([]shopify.MetafieldUpdate, len(batch))
	copy(cp, batch)
	f.writes = append(f.writes, cp)
	for _, u := range cp {
		f.tagged[u.ProductID] = true
	}
	return nil
}

func (f *fakeShop) written() []shopify.MetafieldUpdate {
	var all []shopify.MetafieldUpdate
	for _, b := range f.writes {
		all = append(all, b...)
	}
	return all
}

type fakeRefs struct {
	bySetNumber map[string]*models.ReferenceCard // "set|number"
	byName      map[string]*models.ReferenceCard // "name|set", set may be ""
	failures    map[string]error                 // same keys, one-shot

	calls int
}

func (f *fakeRefs) CardBySetNumber(ctx context.Context, set, number string) (*models.ReferenceCard, error) {
	f.calls++
	key := set + "|" + number
	if err, ok := f.failures[key]; ok {
		delete(f.failures, key)
		return nil, err
	}
	if ref, ok := f.bySetNumber[key]; ok {
		return ref, nil
	}
	return nil, scryfall.ErrNotFound
}

func (f *fakeRefs) CardByName(ctx context.Context, name, set string) (*models.ReferenceCard, error) {
	f.calls++
	key := name + "|" + set
	if err, ok := f.failures[key]; ok {
		delete(f.failures, key)
		return nil, err
	}
	if ref, ok := f.byName[key]; ok {
		return ref, nil
	}
	return nil, scryfall.ErrNotFound
}

func single(id int64, title string) models.Product {
	return models.Product{ID: id, Title: title, Tags: "mtg"}
}

func duress() *models.ReferenceCard {
	return &models.ReferenceCard{ID: "sf-duress", Name: "Duress", Set: "m21", CollectorNumber: "96"}
}

func bolt() *models.ReferenceCard {
	return &models.ReferenceCard{ID: "sf-bolt", Name: "Lightning Bolt", Set: "clu", CollectorNumber: "141"}
}

func testWorker(t *testing.T, shop *fakeShop, refs *fakeRefs) (*Worker, *store.Store) {
	t.Helper()
	st := testStore(t)
	w := New(shop, refs, st, "mtg")
	w.MinDelay = 0
	return w, st
}

func TestRunEnrichesMissingListings(t *testing.T) {
	shop := &fakeShop{
		pages: [][]models.Product{{
			single(1, "Duress - Core Set 2021 (Common) [M21-96]"),
			single(2, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]"),
		}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		bySetNumber: map[string]*models.ReferenceCard{
			"m21|96":  duress(),
			"clu|141": bolt(),
		},
	}
	w, st := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, cp.Stats.Scanned)
	assert.Equal(t, 2, cp.Stats.Matched)
	assert.Equal(t, 2, cp.Stats.Updated)

	written := shop.written()
	require.Len(t, written, 2)
	assert.Equal(t, MetafieldNamespace, written[0].Namespace)
	assert.Equal(t, MetafieldKey, written[0].Key)
	assert.Equal(t, "sf-duress", written[0].Value)

	// completion clears the checkpoint
	fresh, err := st.LoadCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh.Cursor)
	assert.Zero(t, fresh.Stats.Scanned)
}

func TestRunSkipsAlreadyEnriched(t *testing.T) {
	shop := &fakeShop{
		pages:  [][]models.Product{{single(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		tagged: map[int64]bool{1: true},
	}
	refs := &fakeRefs{}
	w, _ := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, refs.calls, "no lookup for listings that already carry the metafield")
	assert.Zero(t, cp.Stats.Missing)
}

func TestRunSkipsOutOfDomain(t *testing.T) {
	shop := &fakeShop{
		pages: [][]models.Product{{
			{ID: 9, Title: "Dragon Shield Sleeves", Tags: "accessories"},
		}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{}
	w, _ := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, cp.Stats.Scanned)
	assert.Zero(t, refs.calls)
}

func TestRunBudgetExhaustionResumesMidPage(t *testing.T) {
	shop := &fakeShop{
		pages: [][]models.Product{{
			single(1, "Duress - Core Set 2021 (Common) [M21-96]"),
			single(2, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]"),
			single(3, "Opt - Ixalan (Common) [XLN-65]"),
		}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		bySetNumber: map[string]*models.ReferenceCard{
			"m21|96":  duress(),
			"clu|141": bolt(),
			"xln|65":  {ID: "sf-opt", Name: "Opt", Set: "xln", CollectorNumber: "65"},
		},
	}
	w, st := testWorker(t, shop, refs)
	w.Budget = 2

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, done, "budget spent before the page was finished")
	assert.Equal(t, 2, cp.Stats.Lookups)
	assert.Equal(t, 2, cp.Offset, "resume point is the third product")
	assert.Len(t, shop.written(), 2, "pending batch is flushed before checkpointing")

	// a fresh invocation picks up exactly where the last one stopped
	w2 := New(shop, refs, st, "mtg")
	w2.MinDelay = 0
	w2.Budget = 2
	cp2, done2, err := w2.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done2)
	assert.Equal(t, 3, cp2.Stats.Matched)
	assert.Len(t, shop.written(), 3)

	// products enriched by the first run are not looked up again
	assert.Equal(t, 3, cp2.Stats.Lookups, "cumulative lookups across both invocations")
}

func TestRunRateLimitedLookupIsInconclusive(t *testing.T) {
	shop := &fakeShop{
		pages:  [][]models.Product{{single(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		failures: map[string]error{"m21|96": scryfall.ErrRateLimited},
	}
	w, _ := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, cp.Stats.Skipped, "429 is inconclusive, not a definitive miss")
	assert.Zero(t, cp.Stats.NoMatch)
	assert.Empty(t, shop.written())
}

func TestRunNoMatchIsTerminal(t *testing.T) {
	shop := &fakeShop{
		pages:  [][]models.Product{{single(1, "Totally Custom Proxy - Kitchen Table (Rare) [KTC-1]")}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{}
	w, _ := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, cp.Stats.NoMatch)
	assert.Empty(t, shop.written())
}

func TestRunProbeFailureNeverDoubleWrites(t *testing.T) {
	shop := &fakeShop{
		pages:    [][]models.Product{{single(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		tagged:   map[int64]bool{},
		probeErr: map[int64]error{1: context.DeadlineExceeded},
	}
	refs := &fakeRefs{
		bySetNumber: map[string]*models.ReferenceCard{"m21|96": duress()},
	}
	w, _ := testWorker(t, shop, refs)

	cp, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, shop.written(), "an unprobeable listing is treated as already enriched")
	assert.Equal(t, 1, cp.Stats.Skipped)
}

func TestRunBatchFlushAtSize(t *testing.T) {
	var products []models.Product
	refs := &fakeRefs{bySetNumber: map[string]*models.ReferenceCard{}}
	for i := int64(1); i <= 5; i++ {
		num := string(rune('0' + i))
		products = append(products, single(i, "Duress - Core Set 2021 (Common) [M21-9"+num+"]"))
		refs.bySetNumber["m21|9"+num] = &models.ReferenceCard{ID: "sf-" + num, Name: "Duress", Set: "m21"}
	}
	shop := &fakeShop{pages: [][]models.Product{products}, tagged: map[int64]bool{}}

	w, _ := testWorker(t, shop, refs)
	w.BatchSize = 2

	_, done, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	require.Len(t, shop.writes, 3, "two full batches plus the final partial flush")
	assert.Len(t, shop.writes[0], 2)
	assert.Len(t, shop.writes[1], 2)
	assert.Len(t, shop.writes[2], 1)
}

func TestLookupFallsBackToName(t *testing.T) {
	// collector number points at nothing; exact name in the set resolves
	shop := &fakeShop{
		pages:  [][]models.Product{{single(1, "Duress - Core Set 2021 (Common) [M21-999]")}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		byName: map[string]*models.ReferenceCard{"Duress|m21": duress()},
	}
	w, _ := testWorker(t, shop, refs)

	cp, _, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Stats.Matched)
	require.Len(t, shop.written(), 1)
	assert.Equal(t, "sf-duress", shop.written()[0].Value)
}

func TestLookupNameGuardRejectsWrongCard(t *testing.T) {
	// the (set, number) slot exists but holds a different card; the name
	// guard forces the fallback chain instead of writing the wrong id
	shop := &fakeShop{
		pages:  [][]models.Product{{single(1, "Duress - Core Set 2021 (Common) [M21-96]")}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		bySetNumber: map[string]*models.ReferenceCard{
			"m21|96": {ID: "sf-wrong", Name: "Cultivate", Set: "m21", CollectorNumber: "96"},
		},
		byName: map[string]*models.ReferenceCard{"Duress|": duress()},
	}
	w, _ := testWorker(t, shop, refs)

	cp, _, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Stats.Matched)
	require.Len(t, shop.written(), 1)
	assert.Equal(t, "sf-duress", shop.written()[0].Value)
}

func TestThrottleSpacesLookups(t *testing.T) {
	shop := &fakeShop{
		pages: [][]models.Product{{
			single(1, "Duress - Core Set 2021 (Common) [M21-96]"),
			single(2, "Lightning Bolt - Ravnica: Clue Edition (Uncommon) [CLU-141]"),
		}},
		tagged: map[int64]bool{},
	}
	refs := &fakeRefs{
		bySetNumber: map[string]*models.ReferenceCard{
			"m21|96":  duress(),
			"clu|141": bolt(),
		},
	}
	w, _ := testWorker(t, shop, refs)
	w.MinDelay = 30 * time.Millisecond

	start := time.Now()
	_, _, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond,
		"second lookup waits out the minimum spacing")
}
