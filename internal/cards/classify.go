package cards

import (
	"strings"

	"cardstock/pkg/models"
)

// conditionRules are checked in priority order per option string: the
// first rule whose phrase or code matches wins for that option. Across
// options, a later matching option overwrites an earlier one — stores
// routinely put the authoritative condition in the last option slot, so
// the last word wins on purpose.
var conditionRules = []struct {
	Code   string
	Phrase string
}{
	{"NM", "near mint"},
	{"LP", "lightly played"},
	{"MP", "moderately played"},
	{"HP", "heavily played"},
	{"DMG", "damaged"},
}

// languageNames maps spelled-out option values to the codes the
// reference data uses.
var languageNames = map[string]string{
	"english":             "en",
	"japanese":            "ja",
	"german":              "de",
	"french":              "fr",
	"italian":             "it",
	"spanish":             "es",
	"portuguese":          "pt",
	"russian":             "ru",
	"korean":              "ko",
	"chinese":             "zhs",
	"chinese simplified":  "zhs",
	"chinese traditional": "zht",
	"phyrexian":           "ph",
}

// ClassifyVariant reads condition, finish and language off a variant's
// option strings. Defaults are NM/nonfoil/en. When no option mentions a
// finish, the variant title is consulted as a fallback (older listings
// encode "Foil" there instead of in an option).
func ClassifyVariant(v models.Variant) models.Classification {
	cls := models.DefaultClassification()

	finishSet := false
	for _, opt := range v.OptionValues() {
		o := strings.ToLower(strings.TrimSpace(opt))
		if o == "" {
			continue
		}
		if f, ok := finishOf(o); ok {
			cls.Finish = f
			finishSet = true
		}
		if c, ok := conditionOf(o); ok {
			cls.Condition = c
		}
		if l, ok := languageOf(o); ok {
			cls.Language = l
		}
	}

	if !finishSet {
		if f, ok := finishOf(strings.ToLower(v.Title)); ok {
			cls.Finish = f
		}
	}

	return cls
}

func finishOf(o string) (string, bool) {
	// "etched" beats plain "foil": "Etched Foil" is etched.
	if strings.Contains(o, "etched") {
		return "etched", true
	}
	if strings.Contains(o, "foil") && !strings.Contains(o, "non") {
		return "foil", true
	}
	return "", false
}

func conditionOf(o string) (string, bool) {
	for _, rule := range conditionRules {
		if strings.Contains(o, rule.Phrase) || hasWord(o, strings.ToLower(rule.Code)) {
			return rule.Code, true
		}
	}
	return "", false
}

func languageOf(o string) (string, bool) {
	// Longest name first so "chinese traditional" is not read as "chinese".
	if l, ok := languageNames[o]; ok {
		return l, true
	}
	for name, code := range languageNames {
		if strings.Contains(name, " ") && strings.Contains(o, name) {
			return code, true
		}
	}
	for name, code := range languageNames {
		if hasWord(o, name) {
			return code, true
		}
	}
	return "", false
}

func hasWord(s, w string) bool {
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, "()[],.") == w {
			return true
		}
	}
	return false
}
