package models

// ReferenceCard is one printing from the Scryfall bulk data set. Field
// names follow Scryfall's JSON so the bulk download decodes directly
// into this type.
type ReferenceCard struct {
	ID              string            `json:"id"`
	OracleID        string            `json:"oracle_id"`
	Name            string            `json:"name"`
	Set             string            `json:"set"`
	SetName         string            `json:"set_name"`
	CollectorNumber string            `json:"collector_number"`
	Rarity          string            `json:"rarity"`
	TypeLine        string            `json:"type_line"`
	OracleText      string            `json:"oracle_text"`
	ManaCost        string            `json:"mana_cost"`
	CMC             float64           `json:"cmc"`
	Colors          []string          `json:"colors"`
	ColorIdentity   []string          `json:"color_identity"`
	Keywords        []string          `json:"keywords"`
	Legalities      map[string]string `json:"legalities"`
	ImageURIs       map[string]string `json:"image_uris"`
	ReleasedAt      string            `json:"released_at"` // YYYY-MM-DD
	Games           []string          `json:"games"`
	Digital         bool              `json:"digital"`
	Lang            string            `json:"lang"`
}

// IsPaper reports whether this printing exists as a physical card.
// Digital-only entries are excluded from the match index.
func (r ReferenceCard) IsPaper() bool {
	if r.Digital {
		return false
	}
	for _, g := range r.Games {
		if g == "paper" {
			return true
		}
	}
	return false
}
