package server

import "github.com/snapsync/snapsync/internal/core/interp"

// Message types accepted on the WebSocket ingest.
const (
	MessageSnapshot = "snapshot"
	MessageRemove   = "remove"
)

// Envelope is the JSON wire frame for ingest messages. Type selects the
// payload fields; unknown types are dropped with a warning rather than
// closing the stream.
type Envelope struct {
	Type     string                `json:"type"`
	EntityID string                `json:"entityId,omitempty"`
	Snapshot *interp.StateSnapshot `json:"snapshot,omitempty"`
}
