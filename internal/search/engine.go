package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"cardstock/internal/store"
	"cardstock/pkg/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Filters compose with AND; within the multi-value dimensions a record
// matches if any selected value matches.
type Filters struct {
	Text       string   // substring across name / type line / oracle text
	Set        string   // exact set code
	Rarity     string   // exact
	Finish     string   // exact
	Condition  string   // exact
	Colors     []string // any-match against color identity; "colorless" = empty identity
	Types      []string // any-match against type-line tokens
	Keywords   []string // any-match exact
	ManaValues []string // buckets "0".."6" and "7+"
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
}

type Query struct {
	Filters       Filters
	Sort          string // name (default), price, set, mana, rarity
	Dir           string // asc (default), desc
	Page          int    // 1-indexed
	PageSize      int
	Dedupe        bool
	IncludeFacets bool
}

type Result struct {
	Total   int
	HasMore bool
	Cards   []models.CanonicalCard
	Facets  map[string][]FacetValue
}

// Engine answers read-only queries over the persisted snapshot. It
// never mutates the snapshot.
type Engine struct {
	Store *store.Store
}

func NewEngine(st *store.Store) *Engine {
	return &Engine{Store: st}
}

// Query loads the snapshot, filters, optionally computes cross-filtered
// facets, sorts and paginates.
func (e *Engine) Query(ctx context.Context, q Query) (*Result, error) {
	snap, err := e.Store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return Run(snap, q), nil
}

// Run executes a query against an already-loaded snapshot.
func Run(snap *models.Snapshot, q Query) *Result {
	base := snap.Cards
	if q.Dedupe {
		base = dedupe(base)
	}

	res := &Result{}
	if q.IncludeFacets {
		// Facets see the deduplicated set before the final filter pass,
		// each dimension ignoring its own active filter (and price).
		res.Facets = computeFacets(base, q.Filters)
	}

	filtered := make([]models.CanonicalCard, 0, len(base))
	for _, c := range base {
		if matches(c, q.Filters, "", true) {
			filtered = append(filtered, c)
		}
	}

	sortCards(filtered, q.Sort, q.Dir)

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	res.Total = len(filtered)
	start := (page - 1) * size
	if start < len(filtered) {
		end := start + size
		if end > len(filtered) {
			end = len(filtered)
		}
		res.Cards = filtered[start:end]
	} else {
		res.Cards = []models.CanonicalCard{}
	}
	res.HasMore = page*size < len(filtered)
	return res
}

// dedupe collapses all variants of one product to a representative,
// preferring in-stock over out-of-stock, then the lowest price. Input
// order is preserved otherwise.
func dedupe(cs []models.CanonicalCard) []models.CanonicalCard {
	pos := make(map[int64]int, len(cs))
	out := make([]models.CanonicalCard, 0, len(cs))
	for _, c := range cs {
		i, seen := pos[c.Store.ProductID]
		if !seen {
			pos[c.Store.ProductID] = len(out)
			out = append(out, c)
			continue
		}
		if betterRepresentative(c, out[i]) {
			out[i] = c
		}
	}
	return out
}

func betterRepresentative(candidate, current models.CanonicalCard) bool {
	if candidate.Store.InStock != current.Store.InStock {
		return candidate.Store.InStock
	}
	return candidate.Store.Price < current.Store.Price
}

// matches applies every active filter except the dimension named by
// skip; price filters apply only when withPrice is set. skip=="" with
// withPrice is the full filter pass.
func matches(c models.CanonicalCard, f Filters, skip string, withPrice bool) bool {
	if skip != dimSet && f.Set != "" && !strings.EqualFold(c.SetCode, f.Set) {
		return false
	}
	if skip != dimRarity && f.Rarity != "" && !strings.EqualFold(c.Rarity, f.Rarity) {
		return false
	}
	if skip != dimFinish && f.Finish != "" && !strings.EqualFold(c.Store.Finish, f.Finish) {
		return false
	}
	if skip != dimCondition && f.Condition != "" && !strings.EqualFold(c.Store.Condition, f.Condition) {
		return false
	}
	if skip != dimColors && len(f.Colors) > 0 && !matchesColors(c, f.Colors) {
		return false
	}
	if skip != dimTypes && len(f.Types) > 0 && !matchesAny(typeTokens(c.TypeLine), f.Types) {
		return false
	}
	if skip != dimKeywords && len(f.Keywords) > 0 && !matchesAny(lowerAll(c.Keywords), f.Keywords) {
		return false
	}
	if skip != dimMana && len(f.ManaValues) > 0 && !containsFold(f.ManaValues, manaBucket(c)) {
		return false
	}
	if f.Text != "" && !matchesText(c, f.Text) {
		return false
	}
	if f.InStock && !c.Store.InStock {
		return false
	}
	if withPrice {
		if f.MinPrice != nil && c.Store.Price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && c.Store.Price > *f.MaxPrice {
			return false
		}
	}
	return true
}

func matchesText(c models.CanonicalCard, text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(strings.ToLower(c.Name), t) ||
		strings.Contains(strings.ToLower(c.TypeLine), t) ||
		strings.Contains(strings.ToLower(c.OracleText), t)
}

func matchesColors(c models.CanonicalCard, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(w)
		if w == "colorless" || w == "c" {
			if len(c.ColorIdentity) == 0 {
				return true
			}
			continue
		}
		for _, have := range c.ColorIdentity {
			if strings.EqualFold(have, w) {
				return true
			}
		}
	}
	return false
}

func matchesAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// typeTokens splits a type line into filterable tokens:
// "Legendary Creature — Vampire Cleric" yields legendary, creature,
// vampire, cleric.
func typeTokens(typeLine string) []string {
	if typeLine == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(typeLine))
	out := fields[:0]
	for _, f := range fields {
		if f == "—" || f == "-" || f == "//" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// manaBucket floors the mana value into the 0–6 buckets, with "7+" as
// the overflow.
func manaBucket(c models.CanonicalCard) string {
	mv := int(math.Floor(c.ManaValue))
	if mv >= 7 {
		return "7+"
	}
	if mv < 0 {
		mv = 0
	}
	return fmt.Sprint(mv)
}

var rarityRank = map[string]int{
	"common":   0,
	"uncommon": 1,
	"rare":     2,
	"mythic":   3,
}

func rankOfRarity(r string) int {
	if n, ok := rarityRank[strings.ToLower(r)]; ok {
		return n
	}
	return len(rarityRank)
}

func sortCards(cs []models.CanonicalCard, key, dir string) {
	desc := strings.EqualFold(dir, "desc")

	var less func(a, b models.CanonicalCard) bool
	switch key {
	case "price":
		less = func(a, b models.CanonicalCard) bool { return a.Store.Price < b.Store.Price }
	case "set":
		less = func(a, b models.CanonicalCard) bool { return a.SetCode < b.SetCode }
	case "mana":
		less = func(a, b models.CanonicalCard) bool { return a.ManaValue < b.ManaValue }
	case "rarity":
		less = func(a, b models.CanonicalCard) bool { return rankOfRarity(a.Rarity) < rankOfRarity(b.Rarity) }
	default: // name
		less = func(a, b models.CanonicalCard) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(cs, func(i, j int) bool {
		if desc {
			return less(cs[j], cs[i])
		}
		return less(cs[i], cs[j])
	})
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

func containsFold(ss []string, want string) bool {
	for _, s := range ss {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
