package models

import "time"

// Snapshot is the complete persisted catalog at a point in time. Cards
// are sorted by (name, set, numeric collector number) and the whole
// blob is written in a single atomic swap; readers never see a torn
// state.
type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       SnapshotStats   `json:"stats"`
	Cards       []CanonicalCard `json:"cards"`
}

// SnapshotStats are the aggregate counters accumulated during a build
// and kept current by the incremental updater.
type SnapshotStats struct {
	Products    int            `json:"products"`
	Variants    int            `json:"variants"`
	Matched     int            `json:"matched"`
	Unmatched   int            `json:"unmatched"`
	InStock     int            `json:"in_stock"`
	OutOfStock  int            `json:"out_of_stock"`
	ByCondition map[string]int `json:"by_condition"`
	ByFinish    map[string]int `json:"by_finish"`
}

// NewSnapshotStats returns zeroed stats with allocated histograms.
func NewSnapshotStats() SnapshotStats {
	return SnapshotStats{
		ByCondition: make(map[string]int),
		ByFinish:    make(map[string]int),
	}
}

// Recount rebuilds every counter from the card list. The updater uses
// it after remove+reinsert so the stats never drift from the records.
func (s *Snapshot) Recount() {
	stats := NewSnapshotStats()
	products := make(map[int64]struct{})
	for _, c := range s.Cards {
		products[c.Store.ProductID] = struct{}{}
		stats.Variants++
		if c.Matched {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		if c.Store.InStock {
			stats.InStock++
		} else {
			stats.OutOfStock++
		}
		stats.ByCondition[c.Store.Condition]++
		stats.ByFinish[c.Store.Finish]++
	}
	stats.Products = len(products)
	s.Stats = stats
}
