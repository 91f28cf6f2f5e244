package network

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds everything needed to query one network and link to its explorer.
type Config struct {
	Network              Network `toml:"-"`
	Name                 string  `toml:"name"`
	REST                 string  `toml:"rest"`
	RPC                  string  `toml:"rpc"`
	Denom                string  `toml:"denom"`
	Symbol               string  `toml:"symbol"`
	BankPath             string  `toml:"bank_path"`
	StakingPath          string  `toml:"staking_path"`
	ExplorerTxURL        string  `toml:"explorer_tx_url"`
	ExplorerValidatorURL string  `toml:"explorer_validator_url"`
}

// TxURL returns the explorer link for a transaction hash.
func (c Config) TxURL(hash string) string {
	return strings.TrimRight(c.ExplorerTxURL, "/") + "/" + hash
}

// ValidatorURL returns the explorer link for a validator operator address.
func (c Config) ValidatorURL(valoper string) string {
	return strings.TrimRight(c.ExplorerValidatorURL, "/") + "/" + valoper
}

// FriendlyDenom maps the on-chain base denom to the display symbol, falling back to the denom.
func (c Config) FriendlyDenom(denom string) string {
	if denom == c.Denom && c.Symbol != "" {
		return c.Symbol
	}
	return denom
}

func defaultConfigs() map[Network]Config {
	return map[Network]Config{
		CosmosHub: {
			Network:              CosmosHub,
			Name:                 "Cosmos Hub",
			REST:                 "http://127.0.0.1:1317",
			RPC:                  "http://127.0.0.1:26657",
			Denom:                "uatom",
			Symbol:               "ATOM",
			BankPath:             "/cosmos/bank/v1beta1/balances/",
			StakingPath:          "/cosmos/staking/v1beta1",
			ExplorerTxURL:        "https://mintscan.io/cosmos/tx/",
			ExplorerValidatorURL: "https://mintscan.io/cosmos/validators",
		},
		Celestia: {
			Network:              Celestia,
			Name:                 "Celestia",
			REST:                 "http://127.0.0.1:12017",
			RPC:                  "http://127.0.0.1:26757",
			Denom:                "utia",
			Symbol:               "TIA",
			BankPath:             "/cosmos/bank/v1beta1/balances/",
			StakingPath:          "/cosmos/staking/v1beta1",
			ExplorerTxURL:        "https://mintscan.io/celestia/tx/",
			ExplorerValidatorURL: "https://mintscan.io/celestia/validators",
		},
		Osmosis: {
			Network:              Osmosis,
			Name:                 "Osmosis",
			REST:                 "http://127.0.0.1:12018",
			RPC:                  "http://127.0.0.1:26857",
			Denom:                "uosmo",
			Symbol:               "OSMO",
			BankPath:             "/cosmos/bank/v1beta1/balances/",
			StakingPath:          "/cosmos/staking/v1beta1",
			ExplorerTxURL:        "https://mintscan.io/osmosis/tx/",
			ExplorerValidatorURL: "https://mintscan.io/osmosis/validators",
		},
	}
}

// Registry resolves addresses to network configuration. It is read-only once built.
type Registry struct {
	configs map[Network]Config
}

// NewRegistry creates a registry with the built-in endpoints.
func NewRegistry() *Registry {
	return &Registry{configs: defaultConfigs()}
}

// LoadRegistry builds a registry and applies overrides from a TOML file. Tables are keyed by
// network slug and only non-empty fields replace the defaults:
//
//	[osmosis]
//	rest = "https://lcd.osmosis.zone"
//	rpc  = "https://rpc.osmosis.zone"
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file: %w", err)
	}

	var overrides map[string]Config
	if _, err := toml.Decode(string(data), &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse networks file: %w", err)
	}

	for slug, o := range overrides {
		n, ok := FromSlug(slug)
		if !ok {
			return nil, fmt.Errorf("unknown network %q in networks file", slug)
		}
		r.configs[n] = merge(r.configs[n], o)
	}

	return r, nil
}

func merge(base, o Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Name, o.Name)
	set(&base.REST, o.REST)
	set(&base.RPC, o.RPC)
	set(&base.Denom, o.Denom)
	set(&base.Symbol, o.Symbol)
	set(&base.BankPath, o.BankPath)
	set(&base.StakingPath, o.StakingPath)
	set(&base.ExplorerTxURL, o.ExplorerTxURL)
	set(&base.ExplorerValidatorURL, o.ExplorerValidatorURL)
	return base
}

// Config returns the configuration of n.
func (r *Registry) Config(n Network) (Config, bool) {
	cfg, ok := r.configs[n]
	return cfg, ok
}

// Lookup resolves an address and returns its network configuration.
func (r *Registry) Lookup(address string) (Config, bool) {
	n, ok := Resolve(address)
	if !ok {
		return Config{}, false
	}
	return r.Config(n)
}
