package model

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// WatchedAddress is one monitored wallet with the identifiers already alerted for it. Both sets
// only ever grow; they are discarded together with the address.
type WatchedAddress struct {
	Address                  string
	NotifiedUnbondHashes     mapset.Set[string]
	NotifiedJailedValidators mapset.Set[string]
}

func NewWatchedAddress(address string) *WatchedAddress {
	return &WatchedAddress{
		Address:                  address,
		NotifiedUnbondHashes:     mapset.NewThreadUnsafeSet[string](),
		NotifiedJailedValidators: mapset.NewThreadUnsafeSet[string](),
	}
}

// Clone returns a deep copy so readers never share sets with the store.
func (w *WatchedAddress) Clone() *WatchedAddress {
	return &WatchedAddress{
		Address:                  w.Address,
		NotifiedUnbondHashes:     w.NotifiedUnbondHashes.Clone(),
		NotifiedJailedValidators: w.NotifiedJailedValidators.Clone(),
	}
}

// NewUnbondHashes returns the hashes not yet notified, preserving input order and dropping
// duplicates.
func (w *WatchedAddress) NewUnbondHashes(hashes []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var fresh []string
	for _, h := range hashes {
		if w.NotifiedUnbondHashes.Contains(h) || seen.Contains(h) {
			continue
		}
		seen.Add(h)
		fresh = append(fresh, h)
	}
	return fresh
}

// Subscriber is one notification destination and the addresses it watches, in registration order.
type Subscriber struct {
	ID        string
	Addresses []*WatchedAddress
}

// Find returns the watched address or nil.
func (s *Subscriber) Find(address string) *WatchedAddress {
	for _, a := range s.Addresses {
		if a.Address == address {
			return a
		}
	}
	return nil
}

func (s *Subscriber) Clone() *Subscriber {
	cp := &Subscriber{ID: s.ID, Addresses: make([]*WatchedAddress, 0, len(s.Addresses))}
	for _, a := range s.Addresses {
		cp.Addresses = append(cp.Addresses, a.Clone())
	}
	return cp
}

// SortedMembers renders a set as a sorted slice for stable serialization.
func SortedMembers(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
