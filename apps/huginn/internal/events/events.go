package events

import (
	"time"
)

// NotificationEvent is the Kafka payload published for every notification, keyed by wallet address.
type NotificationEvent struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	SubscriberID  string    `json:"subscriber_id"`
	Network       string    `json:"network"`
	WalletAddress string    `json:"wallet_address"`
	Identifiers   []string  `json:"identifiers"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	Timestamp     time.Time `json:"timestamp"`
}
