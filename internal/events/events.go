package events

import "time"

// Event types broadcast to connected clients.
const (
	TypeSnapshotRebuilt = "snapshot.rebuilt"
	TypeProductUpdated  = "product.updated"
	TypeProductDeleted  = "product.deleted"
)

// CatalogEvent is the wire form pushed to websocket and TCP
// subscribers whenever the persisted snapshot changes.
type CatalogEvent struct {
	Type      string    `json:"type"`
	ProductID int64     `json:"product_id,omitempty"`
	Cards     int       `json:"cards"` // records now in the snapshot
	At        time.Time `json:"at"`
}
