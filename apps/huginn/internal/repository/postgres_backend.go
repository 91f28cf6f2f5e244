package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"huginn/apps/huginn/internal/model"
)

// PostgresBackend keeps subscriptions in two tables. Save replaces all rows inside one
// transaction, which gives the same whole-snapshot semantics as the file backend.
type PostgresBackend struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresBackend(db *sql.DB, logger *zap.Logger) *PostgresBackend {
	return &PostgresBackend{db: db, logger: logger}
}

func (p *PostgresBackend) Load() ([]*model.Subscriber, error) {
	rows, err := p.db.Query(`
		SELECT subscriber_id, wallet_address
		FROM watched_addresses
		ORDER BY subscriber_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get watched addresses: %w", err)
	}
	defer rows.Close()

	var subscribers []*model.Subscriber
	byID := make(map[string]*model.Subscriber)
	type key struct{ subscriber, address string }
	byAddress := make(map[key]*model.WatchedAddress)

	for rows.Next() {
		var subscriberID, address string
		if err := rows.Scan(&subscriberID, &address); err != nil {
			return nil, fmt.Errorf("failed to scan watched address: %w", err)
		}
		sub, ok := byID[subscriberID]
		if !ok {
			sub = &model.Subscriber{ID: subscriberID}
			byID[subscriberID] = sub
			subscribers = append(subscribers, sub)
		}
		wa := model.NewWatchedAddress(address)
		sub.Addresses = append(sub.Addresses, wa)
		byAddress[key{subscriberID, address}] = wa
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watched addresses: %w", err)
	}

	eventRows, err := p.db.Query(`
		SELECT subscriber_id, wallet_address, event_type, identifier
		FROM notified_events
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get notified events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var subscriberID, address, eventType, identifier string
		if err := eventRows.Scan(&subscriberID, &address, &eventType, &identifier); err != nil {
			return nil, fmt.Errorf("failed to scan notified event: %w", err)
		}
		wa, ok := byAddress[key{subscriberID, address}]
		if !ok {
			p.logger.Warn("Dropping notified event for unknown address",
				zap.String("subscriber_id", subscriberID),
				zap.String("address", address))
			continue
		}
		switch model.EventKind(eventType) {
		case model.EventKindUnbond:
			wa.NotifiedUnbondHashes.Add(identifier)
		case model.EventKindJail:
			wa.NotifiedJailedValidators.Add(identifier)
		}
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notified events: %w", err)
	}

	return subscribers, nil
}

func (p *PostgresBackend) Save(subscribers []*model.Subscriber) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	if _, err := tx.Exec(`DELETE FROM notified_events`); err != nil {
		return fmt.Errorf("failed to clear notified events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM watched_addresses`); err != nil {
		return fmt.Errorf("failed to clear watched addresses: %w", err)
	}

	for _, sub := range subscribers {
		for i, a := range sub.Addresses {
			if _, err := tx.Exec(`
				INSERT INTO watched_addresses (subscriber_id, wallet_address, position)
				VALUES ($1, $2, $3)
			`, sub.ID, a.Address, i); err != nil {
				return fmt.Errorf("failed to insert watched address: %w", err)
			}
			if err := insertEvents(tx, sub.ID, a.Address, model.EventKindUnbond, model.SortedMembers(a.NotifiedUnbondHashes)); err != nil {
				return err
			}
			if err := insertEvents(tx, sub.ID, a.Address, model.EventKindJail, model.SortedMembers(a.NotifiedJailedValidators)); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit subscriptions: %w", err)
	}
	return nil
}

func insertEvents(tx *sql.Tx, subscriberID, address string, kind model.EventKind, identifiers []string) error {
	for _, id := range identifiers {
		if _, err := tx.Exec(`
			INSERT INTO notified_events (subscriber_id, wallet_address, event_type, identifier)
			VALUES ($1, $2, $3, $4)
		`, subscriberID, address, string(kind), id); err != nil {
			return fmt.Errorf("failed to insert notified event: %w", err)
		}
	}
	return nil
}
