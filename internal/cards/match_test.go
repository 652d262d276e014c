package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardstock/pkg/models"
)

func paperCard(id, name, set, number, released string) models.ReferenceCard {
	return models.ReferenceCard{
		ID:              id,
		Name:            name,
		Set:             set,
		CollectorNumber: number,
		ReleasedAt:      released,
		Games:           []string{"paper"},
	}
}

func testIndex() *Index {
	return BuildIndex([]models.ReferenceCard{
		paperCard("qr-1", "Qarsi Revenant", "pbook", "426", "2025-02-14"),
		paperCard("bolt-lea", "Lightning Bolt", "lea", "161", "1993-08-05"),
		paperCard("bolt-clu", "Lightning Bolt", "clu", "141", "2024-02-23"),
		paperCard("sev-7", "Seventh Sentinel", "mh3", "7", "2024-06-14"),
		paperCard("wot-talion", "Talion's Messenger", "wot", "28", "2023-09-08"),
		paperCard("woe-collide", "Stroke of Midnight", "woe", "28", "2023-09-08"),
		{
			ID: "digital-only", Name: "Arena Exclusive", Set: "ana",
			CollectorNumber: "1", Games: []string{"arena"},
		},
	})
}

func TestMatchSetNumberExact(t *testing.T) {
	idx := testIndex()
	ref := idx.Match(models.ParsedIdentity{CardName: "Lightning Bolt", SetCode: "lea", CollectorNumber: "161"})
	require.NotNil(t, ref)
	assert.Equal(t, "bolt-lea", ref.ID)
}

func TestMatchLeadingZerosStripped(t *testing.T) {
	idx := testIndex()
	ref := idx.Match(models.ParsedIdentity{CardName: "Seventh Sentinel", SetCode: "mh3", CollectorNumber: "007"})
	require.NotNil(t, ref)
	assert.Equal(t, "sev-7", ref.ID)
}

func TestMatchSetRemap(t *testing.T) {
	idx := testIndex()
	// store files buy-a-box promos under babp; reference uses pbook
	ref := idx.Match(models.ParsedIdentity{CardName: "Qarsi Revenant", SetCode: "babp", CollectorNumber: "426"})
	require.NotNil(t, ref)
	assert.Equal(t, "qr-1", ref.ID)
}

func TestMatchNameSetFallback(t *testing.T) {
	idx := testIndex()
	// wrong collector number, name+set still resolves
	ref := idx.Match(models.ParsedIdentity{CardName: "Lightning Bolt", SetCode: "lea", CollectorNumber: "999"})
	require.NotNil(t, ref)
	assert.Equal(t, "bolt-lea", ref.ID)
}

func TestMatchNameOnlyPrefersLatestRelease(t *testing.T) {
	idx := testIndex()
	ref := idx.Match(models.ParsedIdentity{CardName: "Lightning Bolt"})
	require.NotNil(t, ref)
	assert.Equal(t, "bolt-clu", ref.ID)
}

func TestMatchMultiSetNameGuard(t *testing.T) {
	idx := testIndex()
	// wot spans {wot, woe}; number 28 exists in both, the name decides
	ref := idx.Match(models.ParsedIdentity{CardName: "Stroke of Midnight", SetCode: "wot", CollectorNumber: "28"})
	require.NotNil(t, ref)
	assert.Equal(t, "woe-collide", ref.ID)
}

func TestMatchEmptyNameReturnsNil(t *testing.T) {
	idx := testIndex()
	assert.Nil(t, idx.Match(models.ParsedIdentity{SetCode: "lea", CollectorNumber: "161"}))
}

func TestMatchUnknownReturnsNil(t *testing.T) {
	idx := testIndex()
	assert.Nil(t, idx.Match(models.ParsedIdentity{CardName: "No Such Card"}))
}

func TestMatchSkipsDigitalOnly(t *testing.T) {
	idx := testIndex()
	assert.Nil(t, idx.Match(models.ParsedIdentity{CardName: "Arena Exclusive", SetCode: "ana", CollectorNumber: "1"}))
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Lightning Bolt":       "lightning bolt",
		"Lim-Dûl's Vault":      "limduls vault",
		"Jötun Grunt":          "jotun grunt",
		"Borrowing 100,000 Arrows": "borrowing 100000 arrows",
		"  Trimmed  ":          "trimmed",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "input %q", in)
	}
}

func TestRemapSets(t *testing.T) {
	assert.Equal(t, []string{"pbook"}, RemapSets("babp"))
	assert.Equal(t, []string{"wot", "woe"}, RemapSets("WOT"))
	assert.Equal(t, []string{"mh3"}, RemapSets("mh3"))
	assert.Nil(t, RemapSets(""))
}
