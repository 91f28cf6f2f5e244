package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration creates the subscription tables when they do not exist yet.
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS watched_addresses (
			subscriber_id VARCHAR(64) NOT NULL,
			wallet_address VARCHAR(128) NOT NULL,
			position INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (subscriber_id, wallet_address)
		)`,
		`CREATE TABLE IF NOT EXISTS notified_events (
			subscriber_id VARCHAR(64) NOT NULL,
			wallet_address VARCHAR(128) NOT NULL,
			event_type VARCHAR(16) NOT NULL,
			identifier VARCHAR(128) NOT NULL,
			PRIMARY KEY (subscriber_id, wallet_address, event_type, identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watched_addresses_order ON watched_addresses (subscriber_id, position)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
