package cards

import (
	"strings"

	"cardstock/pkg/models"
)

// setRemap translates store-specific promo and variant set codes to the
// base set code the reference data files them under. Applied before any
// lookup, unless the code is a declared multi-set code.
var setRemap = map[string]string{
	"babp":  "pbook", // buy-a-box promos
	"mh3e":  "mh3",   // extended-art variants tagged separately upstream
	"blbe":  "blb",
	"otje":  "otj",
	"prel":  "pre",   // prerelease stamps
	"promo": "pprm",
}

// multiSetCodes are store codes that legitimately span more than one
// reference set, listed in lookup priority order. A bonus-sheet release
// is the usual case: the store files everything under one code while
// the reference splits it across the bonus set and the host set.
var multiSetCodes = map[string][]string{
	"wot": {"wot", "woe"},
	"big": {"big", "otj"},
	"spg": {"spg", "plst"},
}

// RemapSets returns the reference set codes to try for a store set
// code, in priority order. Multi-set codes expand to their candidate
// list; everything else remaps (or passes through) to a single code.
func RemapSets(code string) []string {
	code = strings.ToLower(code)
	if code == "" {
		return nil
	}
	if candidates, ok := multiSetCodes[code]; ok {
		return candidates
	}
	if mapped, ok := setRemap[code]; ok {
		return []string{mapped}
	}
	return []string{code}
}

// Match resolves a parsed identity against the index. Tiers, first hit
// wins:
//
//  1. (remapped set, collector number) exact
//  2. (remapped set, number with leading zeros stripped)
//  3. (name, remapped set)
//  4. name alone — most recent printing under that name; may be a
//     different printing than the one sold, accepted for coverage
//
// Returns nil when the card name is empty or nothing resolves. Never
// fails.
func (idx *Index) Match(id models.ParsedIdentity) *models.ReferenceCard {
	name := NormalizeName(id.CardName)
	if name == "" {
		return nil
	}

	set := strings.ToLower(id.SetCode)
	num := strings.ToLower(id.CollectorNumber)

	if candidates, ok := multiSetCodes[set]; ok {
		return idx.matchMultiSet(name, num, candidates)
	}

	if mapped, ok := setRemap[set]; ok {
		set = mapped
	}

	if set != "" && num != "" {
		if ref, ok := idx.bySetNumber[setNumberKey(set, num)]; ok {
			return ref
		}
		if stripped := strings.TrimLeft(num, "0"); stripped != "" && stripped != num {
			if ref, ok := idx.bySetNumber[setNumberKey(set, stripped)]; ok {
				return ref
			}
		}
	}

	if set != "" {
		if ref, ok := idx.byNameSet[nameSetKey(name, set)]; ok {
			return ref
		}
	}

	if ref, ok := idx.byName[name]; ok {
		return ref
	}
	return nil
}

// matchMultiSet tries each candidate set in declared priority order.
// The (set, number) tier additionally requires a name match: collector
// numbers collide across the underlying sets, so a number hit with the
// wrong name is a different card.
func (idx *Index) matchMultiSet(name, num string, candidates []string) *models.ReferenceCard {
	if num != "" {
		for _, set := range candidates {
			if ref, ok := idx.bySetNumber[setNumberKey(set, num)]; ok {
				if NormalizeName(ref.Name) == name {
					return ref
				}
			}
		}
	}
	for _, set := range candidates {
		if ref, ok := idx.byNameSet[nameSetKey(name, set)]; ok {
			return ref
		}
	}
	return nil
}
