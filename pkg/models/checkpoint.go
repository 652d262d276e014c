package models

import "time"

// Checkpoint is the backfill worker's resume state. Cursor/Offset
// together identify the exact position in the upstream catalog walk;
// callers treat them as opaque. Persisted after every page, on budget
// exhaustion and on error; cleared when the walk completes.
type Checkpoint struct {
	Cursor    string        `json:"cursor"` // upstream page token, "" = start
	Offset    int           `json:"offset"` // products already processed within that page
	Stats     BackfillStats `json:"stats"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BackfillStats accumulate across invocations until the checkpoint is
// cleared.
type BackfillStats struct {
	Pages   int `json:"pages"`
	Scanned int `json:"scanned"`
	Missing int `json:"missing"`
	Lookups int `json:"lookups"`
	Matched int `json:"matched"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"` // inconclusive probes (rate limited), retried next pass
	NoMatch int `json:"no_match"`
}
