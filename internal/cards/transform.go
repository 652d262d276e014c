package cards

import (
	"strconv"
	"strings"

	"cardstock/pkg/models"
)

// Merge combines one product variant with its parsed identity,
// classification and (possibly nil) reference record into a canonical
// card. Display fields prefer parsed > reference > raw title; gameplay
// fields come solely from the reference.
func Merge(p models.Product, v models.Variant, id models.ParsedIdentity, cls models.Classification, ref *models.ReferenceCard, storeURL string) models.CanonicalCard {
	price := parsePrice(v.Price)

	card := models.CanonicalCard{
		ID:              models.CardID(p.ID, v.ID),
		Name:            firstNonEmpty(id.CardName, refName(ref), p.Title),
		SetCode:         strings.ToLower(firstNonEmpty(id.SetCode, refField(ref, func(r *models.ReferenceCard) string { return r.Set }))),
		SetName:         firstNonEmpty(id.SetName, refField(ref, func(r *models.ReferenceCard) string { return r.SetName })),
		CollectorNumber: firstNonEmpty(id.CollectorNumber, refField(ref, func(r *models.ReferenceCard) string { return r.CollectorNumber })),
		Rarity:          strings.ToLower(firstNonEmpty(id.Rarity, refField(ref, func(r *models.ReferenceCard) string { return r.Rarity }))),
		Matched:         ref != nil,
		Store: models.Listing{
			ProductID:      p.ID,
			VariantID:      v.ID,
			Price:          price,
			CompareAtPrice: parsePricePtr(v.CompareAtPrice),
			Quantity:       v.InventoryQuantity,
			InStock:        v.Available && v.InventoryQuantity > 0,
			Condition:      cls.Condition,
			Finish:         cls.Finish,
			Language:       cls.Language,
			SKU:            v.SKU,
			URL:            productURL(storeURL, p.Handle),
		},
	}

	if ref != nil {
		card.TypeLine = ref.TypeLine
		card.OracleText = ref.OracleText
		card.ManaCost = ref.ManaCost
		card.ManaValue = ref.CMC
		card.Colors = ref.Colors
		card.ColorIdentity = ref.ColorIdentity
		card.Keywords = ref.Keywords
		card.Legalities = ref.Legalities
		card.ImageURIs = ref.ImageURIs
		card.ReleasedAt = ref.ReleasedAt
		card.ScryfallID = ref.ID
		card.OracleID = ref.OracleID
	}

	// Per-finish projection: only the slot matching this listing's
	// finish carries a price.
	if price > 0 {
		switch cls.Finish {
		case "foil":
			card.Prices.USDFoil = &price
		case "etched":
			card.Prices.USDEtched = &price
		default:
			card.Prices.USD = &price
		}
	}

	return card
}

func refName(ref *models.ReferenceCard) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func refField(ref *models.ReferenceCard, get func(*models.ReferenceCard) string) string {
	if ref == nil {
		return ""
	}
	return get(ref)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parsePricePtr(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f := parsePrice(s)
	if f == 0 {
		return nil
	}
	return &f
}

func productURL(storeURL, handle string) string {
	if storeURL == "" || handle == "" {
		return ""
	}
	return strings.TrimRight(storeURL, "/") + "/products/" + handle
}
