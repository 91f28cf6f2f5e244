package model

import (
	"time"
)

type EventKind string

const (
	EventKindUnbond EventKind = "unbond"
	EventKindJail   EventKind = "jail"
)

// Notification is a single message addressed to one subscriber.
type Notification struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	Network      string    `json:"network"`
	Address      string    `json:"wallet_address"`
	Kind         EventKind `json:"event_type"`
	Identifiers  []string  `json:"identifiers"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}
