package cards

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cardstock/pkg/models"
)

// Index is the in-memory lookup structure the matcher resolves against.
// It is built wholesale from a reference bulk download, cached in the
// blob store, and refreshed wholesale when stale — never patched.
type Index struct {
	BuiltAt time.Time

	bySetNumber map[string]*models.ReferenceCard
	byNameSet   map[string]*models.ReferenceCard
	byName      map[string]*models.ReferenceCard // most recent release wins
}

// BuildIndex indexes the given reference cards by (set, collector
// number), (normalized name, set) and normalized name alone. Non-paper
// entries are skipped. On a name collision the most recently released
// printing is kept.
func BuildIndex(refs []models.ReferenceCard) *Index {
	idx := &Index{
		BuiltAt:     time.Now().UTC(),
		bySetNumber: make(map[string]*models.ReferenceCard, len(refs)),
		byNameSet:   make(map[string]*models.ReferenceCard, len(refs)),
		byName:      make(map[string]*models.ReferenceCard),
	}
	for i := range refs {
		ref := &refs[i]
		if !ref.IsPaper() {
			continue
		}
		idx.add(ref)
	}
	return idx
}

func (idx *Index) add(ref *models.ReferenceCard) {
	set := strings.ToLower(ref.Set)
	num := strings.ToLower(ref.CollectorNumber)
	name := NormalizeName(ref.Name)

	idx.bySetNumber[setNumberKey(set, num)] = ref
	if name != "" {
		idx.byNameSet[nameSetKey(name, set)] = ref
		if prev, ok := idx.byName[name]; !ok || ref.ReleasedAt > prev.ReleasedAt {
			idx.byName[name] = ref
		}
	}
}

// Size returns the number of indexed printings.
func (idx *Index) Size() int { return len(idx.bySetNumber) }

// Stale reports whether the index should be rebuilt from a fresh bulk
// download.
func (idx *Index) Stale(ttl time.Duration) bool {
	return time.Since(idx.BuiltAt) > ttl
}

func setNumberKey(set, num string) string { return set + "|" + num }
func nameSetKey(name, set string) string  { return name + "|" + set }

// NormalizeName lowers, NFD-decomposes, strips diacritics, drops
// everything outside [a-z0-9 ] and trims. Both sides of every name
// comparison in the matcher go through this.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// refPair is one entry of a serialized index map. Maps are persisted as
// explicit key/value pair lists so the on-disk layout is stable and
// independent of any map encoding.
type refPair struct {
	Key  string               `json:"k"`
	Card models.ReferenceCard `json:"v"`
}

type indexBlob struct {
	BuiltAt   time.Time `json:"built_at"`
	SetNumber []refPair `json:"by_set_number"`
	NameSet   []refPair `json:"by_name_set"`
	Name      []refPair `json:"by_name"`
}

// MarshalJSON serializes the index as key/value pair lists.
func (idx *Index) MarshalJSON() ([]byte, error) {
	blob := indexBlob{
		BuiltAt:   idx.BuiltAt,
		SetNumber: pairsOf(idx.bySetNumber),
		NameSet:   pairsOf(idx.byNameSet),
		Name:      pairsOf(idx.byName),
	}
	return json.Marshal(blob)
}

// UnmarshalJSON restores an index from its pair-list form.
func (idx *Index) UnmarshalJSON(data []byte) error {
	var blob indexBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	idx.BuiltAt = blob.BuiltAt
	idx.bySetNumber = mapOf(blob.SetNumber)
	idx.byNameSet = mapOf(blob.NameSet)
	idx.byName = mapOf(blob.Name)
	return nil
}

func pairsOf(m map[string]*models.ReferenceCard) []refPair {
	out := make([]refPair, 0, len(m))
	for k, v := range m {
		out = append(out, refPair{Key: k, Card: *v})
	}
	return out
}

func mapOf(pairs []refPair) map[string]*models.ReferenceCard {
	m := make(map[string]*models.ReferenceCard, len(pairs))
	for i := range pairs {
		m[pairs[i].Key] = &pairs[i].Card
	}
	return m
}
