package sync

import "time"

const (
	EventCollectionAdd    = "collection.add"
	EventCollectionUpdate = "collection.update"
	EventCollectionDelete = "collection.delete"
)

// CollectionEvent describes one mutation of a user's collection.
type CollectionEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	ItemID string    `json:"item_id"`
	Title  string    `json:"title,omitempty"`
	At     time.Time `json:"at"`
}
