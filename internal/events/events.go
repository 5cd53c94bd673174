// Package events fans out document events to interested listeners: SSE
// streams, editing sessions on other nodes, and tests.
package events

import (
	"context"
	"time"
)

// Event types published for a document
const (
	TypeStatusChanged   = "document.status"
	TypeContentImported = "document.imported"
	TypeSnapshotCreated = "snapshot.created"
	TypeRestored        = "document.restored"
	TypeProgress        = "generation.progress"
)

// Event is a notification about a single document
type Event struct {
	Type       string                 `json:"type"`
	DocumentID string                 `json:"document_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	At         time.Time              `json:"at"`
}

// New builds an event stamped with the current time
func New(eventType, documentID string, data map[string]interface{}) Event {
	return Event{
		Type:       eventType,
		DocumentID: documentID,
		Data:       data,
		At:         time.Now().UTC(),
	}
}

// Broker publishes document events and delivers them to subscribers.
// Delivery is best effort: slow subscribers drop events instead of blocking publishers.
type Broker interface {
	Publish(ctx context.Context, documentID string, event Event) error

	// Subscribe delivers events for documentID until cancel is called or ctx
	// ends. The channel is closed afterwards.
	Subscribe(ctx context.Context, documentID string) (<-chan Event, func(), error)

	Close() error
}

// subscriberBuffer is the per-subscriber queue depth
const subscriberBuffer = 32
