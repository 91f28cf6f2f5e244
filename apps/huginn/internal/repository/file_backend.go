package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/model"
)

// walletRecord keeps the field names of the legacy wallet.json so existing files load as-is.
type walletRecord struct {
	CosmosAddress  string   `json:"cosmosAddress"`
	NotifiedHashes []string `json:"notifiedHashes"`
	NotifiedJailed []string `json:"notifiedJailed"`
}

// FileBackend stores the whole subscription map as one JSON document.
type FileBackend struct {
	path   string
	logger *zap.Logger
}

func NewFileBackend(path string, logger *zap.Logger) *FileBackend {
	return &FileBackend{path: path, logger: logger}
}

func (f *FileBackend) Load() ([]*model.Subscriber, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.logger.Info("Wallet file not found, starting with an empty store", zap.String("path", f.path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var raw map[string][]walletRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode wallet file: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	subscribers := make([]*model.Subscriber, 0, len(ids))
	for _, id := range ids {
		sub := &model.Subscriber{ID: id, Addresses: make([]*model.WatchedAddress, 0, len(raw[id]))}
		for _, rec := range raw[id] {
			sub.Addresses = append(sub.Addresses, &model.WatchedAddress{
				Address:                  rec.CosmosAddress,
				NotifiedUnbondHashes:     mapset.NewThreadUnsafeSet(rec.NotifiedHashes...),
				NotifiedJailedValidators: mapset.NewThreadUnsafeSet(rec.NotifiedJailed...),
			})
		}
		subscribers = append(subscribers, sub)
	}

	return subscribers, nil
}

// Save writes to a temporary file in the same directory and renames it over the target, so a
// crash mid-write leaves the previous snapshot intact.
func (f *FileBackend) Save(subscribers []*model.Subscriber) error {
	raw := make(map[string][]walletRecord, len(subscribers))
	for _, sub := range subscribers {
		records := make([]walletRecord, 0, len(sub.Addresses))
		for _, a := range sub.Addresses {
			records = append(records, walletRecord{
				CosmosAddress:  a.Address,
				NotifiedHashes: model.SortedMembers(a.NotifiedUnbondHashes),
				NotifiedJailed: model.SortedMembers(a.NotifiedJailedValidators),
			})
		}
		raw[sub.ID] = records
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode wallet file: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp wallet file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync wallet file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close wallet file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace wallet file: %w", err)
	}

	return nil
}
