package cards

import (
	"regexp"
	"strings"

	"cardstock/pkg/models"
)

// Listing titles look like:
//
//	Qarsi Revenant - Buy a Box Promos (Rare) [BABP-426]
//
// with every token after the card name optional. Parsing is best-effort:
// whatever is missing stays empty and the listing still flows through the
// pipeline as unmatched.
var (
	reBracketTag = regexp.MustCompile(`\[([A-Za-z0-9]+)-(\d+[A-Za-z]?)\]\s*$`)
	reRarityTag  = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	reVersionTag = regexp.MustCompile(`\s*\(V\.\s*\d+\)$`)
)

// ParseTitle extracts a structured identity from a free-text product
// title. It never fails; missing tokens leave fields empty.
func ParseTitle(title string) models.ParsedIdentity {
	var id models.ParsedIdentity

	rest := strings.TrimSpace(title)

	// Trailing [CODE-NUMBER] tag.
	if m := reBracketTag.FindStringSubmatch(rest); m != nil {
		id.SetCode = strings.ToLower(m[1])
		id.CollectorNumber = strings.ToLower(m[2])
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	// Trailing (Rarity) tag.
	if m := reRarityTag.FindStringSubmatch(rest); m != nil {
		id.Rarity = normalizeRarity(m[1])
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}

	// "Card Name - Set Name"; no separator means the whole string is the
	// card name.
	if i := strings.Index(rest, " - "); i >= 0 {
		id.CardName = strings.TrimSpace(rest[:i])
		id.SetName = strings.TrimSpace(rest[i+len(" - "):])
	} else {
		id.CardName = rest
	}

	// Some listings carry a (V.1), (V.2), ... suffix to distinguish
	// alternate prints of the same name.
	id.CardName = strings.TrimSpace(reVersionTag.ReplaceAllString(id.CardName, ""))

	return id
}

func normalizeRarity(raw string) string {
	r := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(r, "mythic"):
		return "mythic"
	case r == "rare" || r == "uncommon" || r == "common":
		return r
	case strings.Contains(r, "special") || strings.Contains(r, "bonus"):
		return "special"
	default:
		return r
	}
}
