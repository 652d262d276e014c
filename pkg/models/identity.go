package models

import "strings"

// ParsedIdentity is what the title parser could extract from a free-text
// product title. Empty string means the token was absent; the parser
// never fails outright.
type ParsedIdentity struct {
	CardName        string `json:"card_name"`
	SetName         string `json:"set_name"`
	SetCode         string `json:"set_code"`
	CollectorNumber string `json:"collector_number"`
	Rarity          string `json:"rarity"`
}

// Classification is the condition/finish/language read off a variant's
// option strings. Defaults are NM / nonfoil / en.
type Classification struct {
	Condition string `json:"condition"` // NM, LP, MP, HP, DMG
	Finish    string `json:"finish"`    // nonfoil, foil, etched
	Language  string `json:"language"`  // ISO-ish code: en, ja, de, ...
}

// DefaultClassification is the starting point before any option string
// is inspected.
func DefaultClassification() Classification {
	return Classification{Condition: "NM", Finish: "nonfoil", Language: "en"}
}

func hasCSVToken(csv, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return false
	}
	for _, t := range strings.Split(csv, ",") {
		if strings.ToLower(strings.TrimSpace(t)) == want {
			return true
		}
	}
	return false
}
