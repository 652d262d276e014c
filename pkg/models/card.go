package models

import "fmt"

// CanonicalCard is the merged store+reference record for one sellable
// variant. Display fields prefer parsed identity over reference over
// the raw title; gameplay fields come solely from the reference and are
// zero-valued when the listing is unmatched.
type CanonicalCard struct {
	ID              string            `json:"id"` // "<productID>-<variantID>", stable across rebuilds
	Name            string            `json:"name"`
	SetCode         string            `json:"set"`
	SetName         string            `json:"set_name"`
	CollectorNumber string            `json:"collector_number"`
	Rarity          string            `json:"rarity"`
	TypeLine        string            `json:"type_line,omitempty"`
	OracleText      string            `json:"oracle_text,omitempty"`
	ManaCost        string            `json:"mana_cost,omitempty"`
	ManaValue       float64           `json:"mana_value"`
	Colors          []string          `json:"colors,omitempty"`
	ColorIdentity   []string          `json:"color_identity,omitempty"`
	Keywords        []string          `json:"keywords,omitempty"`
	Legalities      map[string]string `json:"legalities,omitempty"`
	ImageURIs       map[string]string `json:"image_uris,omitempty"`
	ReleasedAt      string            `json:"released_at,omitempty"`
	ScryfallID      string            `json:"scryfall_id,omitempty"`
	OracleID        string            `json:"oracle_id,omitempty"`
	Matched         bool              `json:"matched"`

	Prices Prices  `json:"prices"`
	Store  Listing `json:"store"`
}

// Prices is the per-finish price projection: only the slot matching the
// listing's finish is populated.
type Prices struct {
	USD       *float64 `json:"usd"`
	USDFoil   *float64 `json:"usd_foil"`
	USDEtched *float64 `json:"usd_etched"`
}

// Listing is the store-extension block: everything that belongs to the
// merchant's listing rather than to the card itself.
type Listing struct {
	ProductID      int64    `json:"product_id"`
	VariantID      int64    `json:"variant_id"`
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compare_at_price,omitempty"`
	Quantity       int      `json:"quantity"`
	InStock        bool     `json:"in_stock"`
	Condition      string   `json:"condition"`
	Finish         string   `json:"finish"`
	Language       string   `json:"language"`
	SKU            string   `json:"sku,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// CardID builds the deterministic upsert key for a product/variant pair.
func CardID(productID, variantID int64) string {
	return fmt.Sprintf("%d-%d", productID, variantID)
}
