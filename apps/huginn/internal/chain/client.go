package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"huginn/apps/huginn/internal/metrics"
	"huginn/apps/huginn/internal/network"
)

// Client is the read-only view of the supported chains used by the monitor and the bot.
// REST failures are absorbed into empty results; only Dial and SearchTxs surface errors.
type Client interface {
	GetBalance(ctx context.Context, address string) Balance
	GetValidators(ctx context.Context, address string) map[string]Validator
	GetDelegations(ctx context.Context, address string) []Delegation
	Dial(ctx context.Context, rpcURL string) (TxSearcher, error)
}

type defaultClient struct {
	registry   *network.Registry
	httpClient *http.Client
	limiters   map[network.Network]*rate.Limiter
	logger     *zap.Logger
}

// NewClient builds a Client over the given registry. requestsPerSecond caps REST calls per
// network; zero or less disables the cap.
func NewClient(registry *network.Registry, timeout time.Duration, requestsPerSecond float64, logger *zap.Logger) Client {
	limiters := make(map[network.Network]*rate.Limiter)
	for _, n := range network.All() {
		if requestsPerSecond > 0 {
			limiters[n] = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		} else {
			limiters[n] = rate.NewLimiter(rate.Inf, 0)
		}
	}

	return &defaultClient{
		registry:   registry,
		httpClient: &http.Client{Timeout: timeout},
		limiters:   limiters,
		logger:     logger,
	}
}

func (c *defaultClient) GetBalance(ctx context.Context, address string) Balance {
	cfg, ok := c.registry.Lookup(address)
	if !ok {
		return Balance{}
	}

	var resp balancesResponse
	if err := c.getJSON(ctx, cfg, "balance", cfg.REST+cfg.BankPath+address, &resp); err != nil {
		c.logger.Error("Failed to fetch balance",
			zap.String("address", address),
			zap.String("network", cfg.Name),
			zap.Error(err))
		return Balance{Denom: cfg.Denom, Amount: "0"}
	}

	for _, b := range resp.Balances {
		if b.Denom == cfg.Denom {
			return Balance{Denom: b.Denom, Amount: b.Amount}
		}
	}
	return Balance{Denom: cfg.Denom, Amount: "0"}
}

func (c *defaultClient) GetValidators(ctx context.Context, address string) map[string]Validator {
	validators := make(map[string]Validator)
	cfg, ok := c.registry.Lookup(address)
	if !ok {
		return validators
	}

	var resp validatorsResponse
	endpoint := cfg.REST + cfg.StakingPath + "/validators?pagination.limit=100000"
	if err := c.getJSON(ctx, cfg, "validators", endpoint, &resp); err != nil {
		c.logger.Error("Failed to fetch validators",
			zap.String("network", cfg.Name),
			zap.Error(err))
		return validators
	}

	for _, v := range resp.Validators {
		validators[v.OperatorAddress] = Validator{
			Moniker: v.Description.Moniker,
			Jailed:  v.Jailed,
		}
	}
	return validators
}

func (c *defaultClient) GetDelegations(ctx context.Context, address string) []Delegation {
	cfg, ok := c.registry.Lookup(address)
	if !ok {
		return nil
	}

	var resp delegationsResponse
	endpoint := cfg.REST + cfg.StakingPath + "/delegations/" + url.PathEscape(address)
	if err := c.getJSON(ctx, cfg, "delegations", endpoint, &resp); err != nil {
		c.logger.Error("Failed to fetch delegations",
			zap.String("address", address),
			zap.String("network", cfg.Name),
			zap.Error(err))
		return nil
	}

	delegations := make([]Delegation, 0, len(resp.DelegationResponses))
	for _, d := range resp.DelegationResponses {
		delegations = append(delegations, Delegation{
			ValidatorAddress: d.Delegation.ValidatorAddress,
			Amount:           d.Balance.Amount,
		})
	}
	return delegations
}

func (c *defaultClient) getJSON(ctx context.Context, cfg network.Config, method, endpoint string, out interface{}) error {
	if err := c.limiters[cfg.Network].Wait(ctx); err != nil {
		metrics.RESTErrors.WithLabelValues(cfg.Network.Slug(), method).Inc()
		return fmt.Errorf("rate limiter: %w", err)
	}

	err := c.doGetJSON(ctx, endpoint, out)
	if err != nil {
		metrics.RESTErrors.WithLabelValues(cfg.Network.Slug(), method).Inc()
	}
	return err
}

func (c *defaultClient) doGetJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
