package cards

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardstock/pkg/models"
)

func TestIndexSerializationRoundTrip(t *testing.T) {
	idx := testIndex()

	b, err := json.Marshal(idx)
	require.NoError(t, err)

	// pair-list layout, not a JSON object per map
	var raw struct {
		SetNumber []json.RawMessage `json:"by_set_number"`
		Name      []json.RawMessage `json:"by_name"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.NotEmpty(t, raw.SetNumber)
	assert.NotEmpty(t, raw.Name)

	var restored Index
	require.NoError(t, json.Unmarshal(b, &restored))
	assert.Equal(t, idx.Size(), restored.Size())
	assert.WithinDuration(t, idx.BuiltAt, restored.BuiltAt, time.Second)

	ref := restored.Match(models.ParsedIdentity{CardName: "Qarsi Revenant", SetCode: "babp", CollectorNumber: "426"})
	require.NotNil(t, ref)
	assert.Equal(t, "qr-1", ref.ID)
}

func TestIndexStale(t *testing.T) {
	idx := testIndex()
	assert.False(t, idx.Stale(time.Hour))

	idx.BuiltAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, idx.Stale(time.Hour))
}

func TestBuildIndexNameCollisionKeepsLatest(t *testing.T) {
	idx := BuildIndex([]models.ReferenceCard{
		paperCard("old", "Duress", "usg", "132", "1998-10-12"),
		paperCard("new", "Duress", "m21", "96", "2020-07-03"),
	})
	ref := idx.Match(models.ParsedIdentity{CardName: "Duress"})
	require.NotNil(t, ref)
	assert.Equal(t, "new", ref.ID)
}
