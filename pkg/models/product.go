package models

// Product is a raw product as the Shopify API returns it. Only the
// fields the pipeline reads are mapped; everything else is dropped at
// decode time.
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Tags        string    `json:"tags"` // comma-separated, as Shopify sends it
	ProductType string    `json:"product_type"`
	Variants    []Variant `json:"variants"`
}

// Variant is one sellable variation of a Product (condition/finish/
// language combinations in practice).
type Variant struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title"`
	Price             string   `json:"price"`
	CompareAtPrice    string   `json:"compare_at_price"`
	InventoryQuantity int      `json:"inventory_quantity"`
	Available         bool     `json:"available"`
	SKU               string   `json:"sku"`
	InventoryItemID   int64    `json:"inventory_item_id"`
	Options           []string `json:"options"`
	Option1           string   `json:"option1"`
	Option2           string   `json:"option2"`
	Option3           string   `json:"option3"`
}

// OptionValues returns the variant's option strings in declared order.
// Shopify sends either an "options" array (storefront API) or
// option1..option3 (admin API); we accept both.
func (v Variant) OptionValues() []string {
	if len(v.Options) > 0 {
		return v.Options
	}
	out := make([]string, 0, 3)
	for _, o := range []string{v.Option1, v.Option2, v.Option3} {
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// HasTag reports whether the product's comma-separated tag list
// contains tag (case-insensitive, trimmed).
func (p Product) HasTag(tag string) bool {
	return hasCSVToken(p.Tags, tag)
}
