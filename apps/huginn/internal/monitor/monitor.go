package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"huginn/apps/huginn/internal/chain"
	"huginn/apps/huginn/internal/metrics"
	"huginn/apps/huginn/internal/model"
	"huginn/apps/huginn/internal/network"
	"huginn/apps/huginn/internal/notifier"
)

// Store is the subscription state the monitor reads and appends to.
type Store interface {
	Snapshot() []*model.Subscriber
	RecordUnbondNotified(subscriberID, address string, hashes []string) error
	RecordJailNotified(subscriberID, address, validator string) bool
	Save() error
}

type Options struct {
	UnbondInterval time.Duration
	JailInterval   time.Duration
	// SkipZeroBalance skips the transaction search for addresses whose native balance is zero
	// or could not be fetched.
	SkipZeroBalance bool
}

// Monitor runs the unbond and jail cycles. The two cycles append to disjoint notified sets and
// never hold the store lock across network calls.
type Monitor struct {
	store    Store
	client   chain.Client
	notifier notifier.Notifier
	registry *network.Registry
	logger   *zap.Logger
	opts     Options

	lastUnbondCycle atomic.Time
	lastJailCycle   atomic.Time
}

type target struct {
	subscriberID string
	address      *model.WatchedAddress
	cfg          network.Config
}

func NewMonitor(store Store, client chain.Client, n notifier.Notifier, registry *network.Registry, logger *zap.Logger, opts Options) *Monitor {
	return &Monitor{
		store:    store,
		client:   client,
		notifier: n,
		registry: registry,
		logger:   logger,
		opts:     opts,
	}
}

// Start runs both cycles immediately and then on their own tickers until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("Starting monitor",
		zap.Duration("unbond_interval", m.opts.UnbondInterval),
		zap.Duration("jail_interval", m.opts.JailInterval),
		zap.Bool("skip_zero_balance", m.opts.SkipZeroBalance))

	var g errgroup.Group
	g.Go(func() error {
		m.loop(ctx, m.opts.UnbondInterval, m.RunUnbondCycle)
		return nil
	})
	g.Go(func() error {
		m.loop(ctx, m.opts.JailInterval, m.RunJailCycle)
		return nil
	})
	_ = g.Wait()

	m.logger.Info("Monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (m *Monitor) LastUnbondCycle() time.Time {
	return m.lastUnbondCycle.Load()
}

func (m *Monitor) LastJailCycle() time.Time {
	return m.lastJailCycle.Load()
}

// RunUnbondCycle checks every watched address for undelegations not yet notified. Addresses are
// grouped by RPC endpoint and each endpoint is scanned concurrently over one connection.
func (m *Monitor) RunUnbondCycle(ctx context.Context) {
	start := time.Now()
	kind := string(model.EventKindUnbond)

	groups := make(map[string][]target)
	var endpoints []string
	for _, sub := range m.store.Snapshot() {
		for _, wa := range sub.Addresses {
			cfg, ok := m.registry.Lookup(wa.Address)
			if !ok {
				continue
			}
			if _, seen := groups[cfg.RPC]; !seen {
				endpoints = append(endpoints, cfg.RPC)
			}
			groups[cfg.RPC] = append(groups[cfg.RPC], target{subscriberID: sub.ID, address: wa, cfg: cfg})
		}
	}

	var g errgroup.Group
	for _, rpcURL := range endpoints {
		rpcURL := rpcURL
		targets := groups[rpcURL]
		g.Go(func() error {
			m.scanEndpoint(ctx, rpcURL, targets)
			return nil
		})
	}
	_ = g.Wait()

	m.lastUnbondCycle.Store(time.Now())
	metrics.CyclesTotal.WithLabelValues(kind).Inc()
	metrics.CycleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	m.logger.Debug("Unbond cycle finished",
		zap.Int("endpoints", len(endpoints)),
		zap.Duration("elapsed", time.Since(start)))
}

func (m *Monitor) scanEndpoint(ctx context.Context, rpcURL string, targets []target) {
	searcher, err := m.client.Dial(ctx, rpcURL)
	if err != nil {
		metrics.EndpointDialFailures.WithLabelValues(targets[0].cfg.Network.Slug()).Inc()
		m.logger.Error("Skipping unreachable RPC endpoint",
			zap.String("rpc", rpcURL),
			zap.Int("addresses", len(targets)),
			zap.Error(err))
		return
	}
	defer searcher.Close()

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		m.guard(model.EventKindUnbond, t, func() {
			m.checkUnbond(ctx, searcher, t)
		})
	}
}

func (m *Monitor) checkUnbond(ctx context.Context, searcher chain.TxSearcher, t target) {
	addr := t.address.Address

	if m.opts.SkipZeroBalance {
		balance := m.client.GetBalance(ctx, addr)
		if isZeroAmount(balance.Amount) {
			m.logger.Debug("Skipping address with zero balance", zap.String("address", addr))
			return
		}
	}

	txs, err := searcher.SearchTxs(ctx, chain.UnbondQuery(addr), chain.IsUndelegate)
	if err != nil {
		metrics.AddressErrors.WithLabelValues(string(model.EventKindUnbond), t.cfg.Network.Slug()).Inc()
		m.logger.Error("Failed to search unbond transactions",
			zap.String("address", addr),
			zap.String("network", t.cfg.Name),
			zap.Error(err))
		return
	}

	hashes := make([]string, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash)
	}

	fresh := t.address.NewUnbondHashes(hashes)
	if len(fresh) == 0 {
		return
	}

	m.deliver(ctx, t, model.EventKindUnbond, fresh, notifier.UnbondText(t.cfg, addr, fresh))

	if err := m.store.RecordUnbondNotified(t.subscriberID, addr, fresh); err != nil {
		metrics.StoreSaveErrors.Inc()
		m.logger.Error("Failed to persist notified unbond hashes",
			zap.String("subscriber_id", t.subscriberID),
			zap.String("address", addr),
			zap.Error(err))
	}
}

// RunJailCycle notifies once per (address, validator) for delegations to jailed validators. The
// validator set is fetched at most once per network per sweep and the store is saved once at
// the end.
func (m *Monitor) RunJailCycle(ctx context.Context) {
	start := time.Now()
	kind := string(model.EventKindJail)
	validatorSets := lru.New(len(network.All()))

subscribers:
	for _, sub := range m.store.Snapshot() {
		for _, wa := range sub.Addresses {
			if ctx.Err() != nil {
				break subscribers
			}
			cfg, ok := m.registry.Lookup(wa.Address)
			if !ok {
				continue
			}
			t := target{subscriberID: sub.ID, address: wa, cfg: cfg}
			m.guard(model.EventKindJail, t, func() {
				m.checkJail(ctx, t, validatorSets)
			})
		}
	}

	if err := m.store.Save(); err != nil {
		metrics.StoreSaveErrors.Inc()
		m.logger.Error("Failed to persist jail notifications", zap.Error(err))
	}

	m.lastJailCycle.Store(time.Now())
	metrics.CyclesTotal.WithLabelValues(kind).Inc()
	metrics.CycleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	m.logger.Debug("Jail cycle finished", zap.Duration("elapsed", time.Since(start)))
}

func (m *Monitor) checkJail(ctx context.Context, t target, validatorSets *lru.Cache) {
	addr := t.address.Address

	delegations := m.client.GetDelegations(ctx, addr)
	if len(delegations) == 0 {
		return
	}

	validators := m.validatorsFor(ctx, t.cfg, addr, validatorSets)
	for _, d := range delegations {
		v, ok := validators[d.ValidatorAddress]
		if !ok || !v.Jailed {
			continue
		}
		if !t.address.NotifiedJailedValidators.Add(d.ValidatorAddress) {
			continue
		}

		m.deliver(ctx, t, model.EventKindJail, []string{d.ValidatorAddress},
			notifier.JailText(addr, v.Moniker, d.ValidatorAddress))
		m.store.RecordJailNotified(t.subscriberID, addr, d.ValidatorAddress)
	}
}

func (m *Monitor) validatorsFor(ctx context.Context, cfg network.Config, addr string, cache *lru.Cache) map[string]chain.Validator {
	if cached, ok := cache.Get(cfg.Network); ok {
		return cached.(map[string]chain.Validator)
	}

	validators := m.client.GetValidators(ctx, addr)
	// A failed fetch is not cached so the next address on this network tries again.
	if len(validators) > 0 {
		cache.Add(cfg.Network, validators)
	}
	return validators
}

// deliver hands the notification to the notifier. Delivery failures are logged and the
// identifiers are still recorded as notified.
func (m *Monitor) deliver(ctx context.Context, t target, kind model.EventKind, identifiers []string, text string) {
	n := model.Notification{
		ID:           uuid.NewString(),
		SubscriberID: t.subscriberID,
		Network:      t.cfg.Name,
		Address:      t.address.Address,
		Kind:         kind,
		Identifiers:  identifiers,
		Text:         text,
		CreatedAt:    time.Now().UTC(),
	}

	metrics.NotificationsSent.WithLabelValues(string(kind), t.cfg.Network.Slug()).Inc()
	if err := m.notifier.Notify(ctx, n); err != nil {
		m.logger.Error("Failed to deliver notification",
			zap.String("subscriber_id", t.subscriberID),
			zap.String("address", t.address.Address),
			zap.String("event_type", string(kind)),
			zap.Error(err))
		return
	}

	m.logger.Info("Notification sent",
		zap.String("subscriber_id", t.subscriberID),
		zap.String("address", t.address.Address),
		zap.String("event_type", string(kind)),
		zap.Strings("identifiers", identifiers))
}

// guard isolates one address so a panic never aborts the rest of the cycle.
func (m *Monitor) guard(kind model.EventKind, t target, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AddressErrors.WithLabelValues(string(kind), t.cfg.Network.Slug()).Inc()
			m.logger.Error("Recovered from panic while processing address",
				zap.String("address", t.address.Address),
				zap.String("event_type", string(kind)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

func isZeroAmount(amount string) bool {
	return strings.TrimLeft(amount, "0") == ""
}
