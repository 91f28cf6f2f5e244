package repository

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"huginn/apps/huginn/internal/model"
	"huginn/apps/huginn/internal/network"
)

var (
	ErrInvalidFormat = errors.New("invalid address format")
	ErrAlreadyExists = errors.New("address already added")
	ErrNotFound      = errors.New("address not registered")
)

// SubscriptionRepository owns the in-memory subscription map and is its only writer. mu guards
// the map; saveMu orders snapshot writes so a later snapshot can never be overwritten by an
// earlier one. Neither lock is held while callers talk to the chains.
type SubscriptionRepository struct {
	backend Backend
	logger  *zap.Logger

	mu          sync.Mutex
	subscribers map[string]*model.Subscriber
	order       []string

	saveMu sync.Mutex
}

func NewSubscriptionRepository(backend Backend, logger *zap.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		backend:     backend,
		logger:      logger,
		subscribers: make(map[string]*model.Subscriber),
	}
}

// Load replaces the in-memory state with the backend's contents.
func (r *SubscriptionRepository) Load() error {
	loaded, err := r.backend.Load()
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = make(map[string]*model.Subscriber, len(loaded))
	r.order = r.order[:0]
	total := 0
	for _, sub := range loaded {
		r.subscribers[sub.ID] = sub
		r.order = append(r.order, sub.ID)
		total += len(sub.Addresses)
	}

	r.logger.Info("Loaded subscriptions",
		zap.Int("subscribers", len(r.order)),
		zap.Int("addresses", total))
	return nil
}

// Save writes a full snapshot of the current state.
func (r *SubscriptionRepository) Save() error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	snapshot := r.Snapshot()
	if err := r.backend.Save(snapshot); err != nil {
		return fmt.Errorf("failed to save subscriptions: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of every subscriber in first-registration order.
func (r *SubscriptionRepository) Snapshot() []*model.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Subscriber, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.subscribers[id].Clone())
	}
	return out
}

// Addresses lists the subscriber's addresses in registration order.
func (r *SubscriptionRepository) Addresses(subscriberID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sub.Addresses))
	for _, a := range sub.Addresses {
		out = append(out, a.Address)
	}
	return out
}

func (r *SubscriptionRepository) AddAddress(subscriberID, address string) error {
	if !network.IsValidAddress(address) {
		return ErrInvalidFormat
	}

	r.mu.Lock()
	sub, ok := r.subscribers[subscriberID]
	if ok && sub.Find(address) != nil {
		r.mu.Unlock()
		return ErrAlreadyExists
	}
	if !ok {
		sub = &model.Subscriber{ID: subscriberID}
		r.subscribers[subscriberID] = sub
		r.order = append(r.order, subscriberID)
	}
	sub.Addresses = append(sub.Addresses, model.NewWatchedAddress(address))
	r.mu.Unlock()

	if err := r.Save(); err != nil {
		r.undoAdd(subscriberID, address, !ok)
		return err
	}

	r.logger.Info("Added watched address",
		zap.String("subscriber_id", subscriberID),
		zap.String("address", address))
	return nil
}

func (r *SubscriptionRepository) RemoveAddress(subscriberID, address string) error {
	r.mu.Lock()
	sub, ok := r.subscribers[subscriberID]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	idx := -1
	for i, a := range sub.Addresses {
		if a.Address == address {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	removed := sub.Addresses[idx]
	sub.Addresses = append(sub.Addresses[:idx:idx], sub.Addresses[idx+1:]...)
	r.mu.Unlock()

	if err := r.Save(); err != nil {
		r.undoRemove(subscriberID, removed, idx)
		return err
	}

	r.logger.Info("Removed watched address",
		zap.String("subscriber_id", subscriberID),
		zap.String("address", address))
	return nil
}

// undoAdd reverts an add whose snapshot could not be written. A subscriber created by that add
// is dropped again.
func (r *SubscriptionRepository) undoAdd(subscriberID, address string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return
	}
	for i, a := range sub.Addresses {
		if a.Address == address {
			sub.Addresses = append(sub.Addresses[:i:i], sub.Addresses[i+1:]...)
			break
		}
	}
	if created && len(sub.Addresses) == 0 {
		delete(r.subscribers, subscriberID)
		for i, id := range r.order {
			if id == subscriberID {
				r.order = append(r.order[:i:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.logger.Warn("Reverted address registration after failed save",
		zap.String("subscriber_id", subscriberID),
		zap.String("address", address))
}

// undoRemove puts a removed address back at its previous position.
func (r *SubscriptionRepository) undoRemove(subscriberID string, wa *model.WatchedAddress, idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok || sub.Find(wa.Address) != nil {
		return
	}
	if idx > len(sub.Addresses) {
		idx = len(sub.Addresses)
	}
	restored := make([]*model.WatchedAddress, 0, len(sub.Addresses)+1)
	restored = append(restored, sub.Addresses[:idx]...)
	restored = append(restored, wa)
	restored = append(restored, sub.Addresses[idx:]...)
	sub.Addresses = restored
	r.logger.Warn("Reverted address removal after failed save",
		zap.String("subscriber_id", subscriberID),
		zap.String("address", wa.Address))
}

// RecordUnbondNotified adds hashes to the address's unbond set and persists. An address removed
// in the meantime is ignored.
func (r *SubscriptionRepository) RecordUnbondNotified(subscriberID, address string, hashes []string) error {
	r.mu.Lock()
	wa := r.find(subscriberID, address)
	if wa == nil {
		r.mu.Unlock()
		return nil
	}
	for _, h := range hashes {
		wa.NotifiedUnbondHashes.Add(h)
	}
	r.mu.Unlock()

	return r.Save()
}

// RecordJailNotified adds a validator to the address's jail set without persisting; the jail
// sweep flushes once at its end. It reports whether the validator was newly added.
func (r *SubscriptionRepository) RecordJailNotified(subscriberID, address, validator string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wa := r.find(subscriberID, address)
	if wa == nil {
		return false
	}
	return wa.NotifiedJailedValidators.Add(validator)
}

func (r *SubscriptionRepository) find(subscriberID, address string) *model.WatchedAddress {
	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return nil
	}
	return sub.Find(address)
}
