package network

import (
	"regexp"
	"strings"
)

// Network is one of the supported Cosmos-SDK chains. The set is closed; everything downstream of
// Resolve works with this value instead of the address prefix.
type Network int

const (
	Unknown Network = iota
	CosmosHub
	Celestia
	Osmosis
)

var all = []Network{CosmosHub, Celestia, Osmosis}

var prefixes = map[Network]string{
	CosmosHub: "cosmos1",
	Celestia:  "celestia1",
	Osmosis:   "osmo1",
}

var slugs = map[Network]string{
	CosmosHub: "cosmoshub",
	Celestia:  "celestia",
	Osmosis:   "osmosis",
}

var addressPattern = regexp.MustCompile(`^(cosmos1|celestia1|osmo1)[a-z0-9]{38}$`)

// All returns the supported networks in display order.
func All() []Network {
	out := make([]Network, len(all))
	copy(out, all)
	return out
}

// Prefix returns the bech32 prefix (including the separator) used by addresses on n.
func (n Network) Prefix() string {
	return prefixes[n]
}

// Slug is the stable lowercase identifier used in config files, logs and metrics.
func (n Network) Slug() string {
	if s, ok := slugs[n]; ok {
		return s
	}
	return "unknown"
}

func (n Network) String() string {
	return n.Slug()
}

// FromSlug parses a slug produced by Slug.
func FromSlug(slug string) (Network, bool) {
	for n, s := range slugs {
		if strings.EqualFold(s, slug) {
			return n, true
		}
	}
	return Unknown, false
}

// Resolve maps an address to its network by prefix. Unrecognized prefixes return false and
// callers are expected to skip the address silently.
func Resolve(address string) (Network, bool) {
	for _, n := range all {
		if strings.HasPrefix(address, prefixes[n]) {
			return n, true
		}
	}
	return Unknown, false
}

// IsValidAddress is the registration gate: a supported prefix followed by exactly 38 lowercase
// alphanumeric characters.
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}
