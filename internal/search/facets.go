package search

import (
	"sort"
	"strings"

	"cardstock/pkg/models"
)

// Facet dimension names, also the keys of Result.Facets.
const (
	dimSet       = "set"
	dimRarity    = "rarity"
	dimFinish    = "finish"
	dimCondition = "condition"
	dimColors    = "colors"
	dimTypes     = "types"
	dimKeywords  = "keywords"
	dimMana      = "mana_value"
)

var facetDims = []string{
	dimSet, dimRarity, dimFinish, dimCondition,
	dimColors, dimTypes, dimKeywords, dimMana,
}

// FacetValue is one selectable value of a dimension with the number of
// results selecting it would yield given the rest of the selection.
type FacetValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// computeFacets tallies each dimension over the records that pass every
// active filter except that dimension's own filter and except the price
// range. That way the dimension currently being chosen is not collapsed
// by its own selection.
func computeFacets(base []models.CanonicalCard, f Filters) map[string][]FacetValue {
	out := make(map[string][]FacetValue, len(facetDims))
	for _, dim := range facetDims {
		counts := make(map[string]int)
		labels := make(map[string]string)
		for _, c := range base {
			if !matches(c, f, dim, false) {
				continue
			}
			tally(dim, c, counts, labels)
		}
		out[dim] = orderFacet(dim, counts, labels)
	}
	return out
}

func tally(dim string, c models.CanonicalCard, counts map[string]int, labels map[string]string) {
	switch dim {
	case dimSet:
		if c.SetCode == "" {
			return
		}
		counts[c.SetCode]++
		if labels[c.SetCode] == "" {
			labels[c.SetCode] = c.SetName
		}
	case dimRarity:
		if c.Rarity == "" {
			return
		}
		counts[strings.ToLower(c.Rarity)]++
	case dimFinish:
		counts[c.Store.Finish]++
	case dimCondition:
		counts[c.Store.Condition]++
	case dimColors:
		if len(c.ColorIdentity) == 0 {
			counts["colorless"]++
			return
		}
		for _, col := range c.ColorIdentity {
			counts[strings.ToUpper(col)]++
		}
	case dimTypes:
		for _, t := range typeTokens(c.TypeLine) {
			counts[t]++
		}
	case dimKeywords:
		for _, k := range c.Keywords {
			counts[strings.ToLower(k)]++
		}
	case dimMana:
		counts[manaBucket(c)]++
	}
}

var colorLabels = map[string]string{
	"W": "White", "U": "Blue", "B": "Black", "R": "Red", "G": "Green",
	"colorless": "Colorless",
}

func orderFacet(dim string, counts map[string]int, labels map[string]string) []FacetValue {
	out := make([]FacetValue, 0, len(counts))
	for v, n := range counts {
		out = append(out, FacetValue{Value: v, Label: facetLabel(dim, v, labels), Count: n})
	}

	switch dim {
	case dimRarity:
		// Fixed rank, not alphabetical: common < uncommon < rare < mythic.
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := rankOfRarity(out[i].Value), rankOfRarity(out[j].Value)
			if ri != rj {
				return ri < rj
			}
			return out[i].Value < out[j].Value
		})
	case dimMana:
		sort.SliceStable(out, func(i, j int) bool {
			return manaBucketRank(out[i].Value) < manaBucketRank(out[j].Value)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	}
	return out
}

func facetLabel(dim, value string, labels map[string]string) string {
	switch dim {
	case dimSet:
		if l := labels[value]; l != "" {
			return l
		}
		return strings.ToUpper(value)
	case dimColors:
		if l, ok := colorLabels[value]; ok {
			return l
		}
		return value
	case dimMana:
		return value
	default:
		return titleCase(value)
	}
}

func manaBucketRank(v string) int {
	if v == "7+" {
		return 7
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 8
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
