package report

import (
	"context"
	"fmt"
	"html"
	"math/big"
	"strings"

	"huginn/apps/huginn/internal/chain"
	"huginn/apps/huginn/internal/network"
)

const (
	// Native staking denoms on all supported networks have 6 decimals.
	denomDecimals = 6

	unknownValidator = "Unknown Validator"
	separator        = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)

type Delegation struct {
	ValidatorAddress string `json:"validator_address"`
	Moniker          string `json:"moniker"`
	Amount           string `json:"amount"`
	ValidatorURL     string `json:"validator_url"`
}

type Address struct {
	Address     string       `json:"address"`
	Balance     string       `json:"balance"`
	Symbol      string       `json:"symbol"`
	Delegations []Delegation `json:"delegations"`
}

type Section struct {
	Network   string    `json:"network"`
	Addresses []Address `json:"addresses"`
}

// Report is the wallet and delegation overview of one subscriber, grouped by network in
// display order.
type Report struct {
	Networks []Section `json:"networks"`
}

// Build queries balance, delegations and validator monikers for every address. Query failures
// show up as zero balances and empty delegation lists.
func Build(ctx context.Context, client chain.Client, registry *network.Registry, addresses []string) Report {
	byNetwork := make(map[network.Network][]string)
	seen := make(map[string]bool)
	for _, a := range addresses {
		n, ok := network.Resolve(a)
		if !ok || seen[a] {
			continue
		}
		seen[a] = true
		byNetwork[n] = append(byNetwork[n], a)
	}

	var r Report
	for _, n := range network.All() {
		addrs := byNetwork[n]
		if len(addrs) == 0 {
			continue
		}
		cfg, ok := registry.Config(n)
		if !ok {
			continue
		}

		section := Section{Network: cfg.Name}
		for _, a := range addrs {
			section.Addresses = append(section.Addresses, buildAddress(ctx, client, cfg, a))
		}
		r.Networks = append(r.Networks, section)
	}
	return r
}

func buildAddress(ctx context.Context, client chain.Client, cfg network.Config, address string) Address {
	balance := client.GetBalance(ctx, address)
	out := Address{
		Address:     address,
		Balance:     ScaleAmount(balance.Amount),
		Symbol:      cfg.FriendlyDenom(cfg.Denom),
		Delegations: []Delegation{},
	}

	delegations := client.GetDelegations(ctx, address)
	if len(delegations) == 0 {
		return out
	}

	validators := client.GetValidators(ctx, address)
	for _, d := range delegations {
		moniker := unknownValidator
		if v, ok := validators[d.ValidatorAddress]; ok && v.Moniker != "" {
			moniker = v.Moniker
		}
		out.Delegations = append(out.Delegations, Delegation{
			ValidatorAddress: d.ValidatorAddress,
			Moniker:          moniker,
			Amount:           ScaleAmount(d.Amount),
			ValidatorURL:     cfg.ValidatorURL(d.ValidatorAddress),
		})
	}
	return out
}

// ScaleAmount converts a base-unit integer amount into display units with 6 decimals.
// Unparseable input renders as zero.
func ScaleAmount(amount string) string {
	value, ok := new(big.Rat).SetString(amount)
	if !ok {
		value = new(big.Rat)
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(denomDecimals), nil)
	value.Quo(value, new(big.Rat).SetInt(divisor))
	return value.FloatString(denomDecimals)
}

// HTML renders the report for a Telegram message in HTML parse mode.
func (r Report) HTML() string {
	var b strings.Builder
	b.WriteString("<b>Wallet &amp; Delegation Overview</b>\n\n")

	for _, section := range r.Networks {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(section.Network))
		for _, a := range section.Addresses {
			fmt.Fprintf(&b, "📍 <b>Address:</b> <code>%s</code>\n", a.Address)
			fmt.Fprintf(&b, "💰 <b>Balance:</b> %s %s\n", a.Balance, a.Symbol)
			if len(a.Delegations) > 0 {
				b.WriteString("🔗 <b>Delegations:</b>\n")
				for _, d := range a.Delegations {
					fmt.Fprintf(&b, "  • <a href=\"%s\">%s</a>: %s %s\n",
						d.ValidatorURL, html.EscapeString(d.Moniker), d.Amount, a.Symbol)
				}
			} else {
				b.WriteString("🚫 <i>No Delegations Found</i>\n")
			}
			b.WriteString("\n")
		}
		b.WriteString(separator + "\n\n")
	}
	return b.String()
}
