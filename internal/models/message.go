package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the millisecond ISO-8601 form used for every timestamp on the wire.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is a schemaless record inside a database collection.
type Document struct {
	ID           string         `db:"id"`
	DatabaseID   string         `db:"database_id"`
	CollectionID string         `db:"collection_id"`
	Data         map[string]any `db:"-"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// MarshalJSON flattens Data next to the $-prefixed system attributes.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+5)
	for k, v := range d.Data {
		out[k] = v
	}
	out["$id"] = d.ID
	out["$databaseId"] = d.DatabaseID
	out["$collectionId"] = d.CollectionID
	out["$createdAt"] = d.CreatedAt.UTC().Format(TimestampLayout)
	out["$updatedAt"] = d.UpdatedAt.UTC().Format(TimestampLayout)
	return json.Marshal(out)
}

// RealtimeEvent is pushed to websocket subscribers.
type RealtimeEvent struct {
	Events    []string `json:"events"`
	Channels  []string `json:"channels"`
	Timestamp string   `json:"timestamp"`
	Payload   any      `json:"payload"`
}

// DocumentCreatedEvent builds the event broadcast after a document insert.
func DocumentCreatedEvent(doc Document, at time.Time) RealtimeEvent {
	prefix := "databases." + doc.DatabaseID + ".collections." + doc.CollectionID + ".documents"
	return RealtimeEvent{
		Events: []string{
			prefix + "." + doc.ID + ".create",
			prefix + ".*.create",
			"databases.*.collections.*.documents.*.create",
		},
		Channels: []string{
			"documents",
			prefix,
			prefix + "." + doc.ID,
		},
		Timestamp: at.UTC().Format(TimestampLayout),
		Payload:   doc,
	}
}
