package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cardstock/pkg/models"
)

func variantWithOptions(opts ...string) models.Variant {
	return models.Variant{Options: opts}
}

func TestClassifyDefaults(t *testing.T) {
	got := ClassifyVariant(variantWithOptions())
	assert.Equal(t, models.Classification{Condition: "NM", Finish: "nonfoil", Language: "en"}, got)
}

func TestClassifyFoilNearMintJapanese(t *testing.T) {
	got := ClassifyVariant(variantWithOptions("Foil", "Near Mint", "Japanese"))
	assert.Equal(t, "foil", got.Finish)
	assert.Equal(t, "NM", got.Condition)
	assert.Equal(t, "ja", got.Language)
}

func TestClassifyNonFoilStaysNonfoil(t *testing.T) {
	got := ClassifyVariant(variantWithOptions("Non-Foil", "NM"))
	assert.Equal(t, "nonfoil", got.Finish)
}

func TestClassifyEtchedOverridesFoil(t *testing.T) {
	got := ClassifyVariant(variantWithOptions("Etched Foil"))
	assert.Equal(t, "etched", got.Finish)
}

func TestClassifyConditionCodes(t *testing.T) {
	cases := map[string]string{
		"NM":                "NM",
		"LP":                "LP",
		"MP":                "MP",
		"HP":                "HP",
		"DMG":               "DMG",
		"Lightly Played":    "LP",
		"Moderately Played": "MP",
		"Heavily Played":    "HP",
		"Damaged":           "DMG",
	}
	for opt, want := range cases {
		got := ClassifyVariant(variantWithOptions(opt))
		assert.Equal(t, want, got.Condition, "option %q", opt)
	}
}

func TestClassifyLaterOptionWins(t *testing.T) {
	// Two condition-bearing options: the later one overwrites.
	got := ClassifyVariant(variantWithOptions("Near Mint", "Heavily Played"))
	assert.Equal(t, "HP", got.Condition)
}

func TestClassifyFinishFallbackFromTitle(t *testing.T) {
	v := models.Variant{Title: "Foil / Near Mint", Options: []string{"Near Mint"}}
	got := ClassifyVariant(v)
	assert.Equal(t, "foil", got.Finish)
}

func TestClassifyOption123Fields(t *testing.T) {
	v := models.Variant{Option1: "Lightly Played", Option2: "Foil", Option3: "German"}
	got := ClassifyVariant(v)
	assert.Equal(t, models.Classification{Condition: "LP", Finish: "foil", Language: "de"}, got)
}

func TestClassifyLanguages(t *testing.T) {
	cases := map[string]string{
		"English":             "en",
		"Japanese":            "ja",
		"Chinese Simplified":  "zhs",
		"Chinese Traditional": "zht",
		"Korean":              "ko",
		"Phyrexian":           "ph",
	}
	for opt, want := range cases {
		got := ClassifyVariant(variantWithOptions(opt))
		assert.Equal(t, want, got.Language, "option %q", opt)
	}
}
