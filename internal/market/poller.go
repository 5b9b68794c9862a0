package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/api"
	"github.com/dgnsrekt/optionbook/internal/notify"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// DefaultInterval matches the order book's own refresh cadence.
const DefaultInterval = 30 * time.Second

// Recorder persists fetched books.
type Recorder interface {
	Record(ctx context.Context, resp *orderbook.Response, fetchedAt time.Time) error
}

// Listener is called with every new snapshot after it is stored.
type Listener func(*Snapshot)

// Poller keeps a Store fresh from an api.Client.
type Poller struct {
	client    api.Client
	store     *Store
	interval  time.Duration
	notifier  notify.Notifier
	threshold int
	recorder  Recorder
	listeners []Listener
	now       func() time.Time
	logger    *zap.Logger

	mu           sync.Mutex // serialises refreshes
	failures     int
	alerted      bool
	failingSince time.Time
	lastSuccess  time.Time
}

type PollerOption func(*Poller)

// WithNotifier alerts after threshold consecutive failures.
func WithNotifier(n notify.Notifier, threshold int) PollerOption {
	return func(p *Poller) {
		p.notifier = n
		if threshold > 0 {
			p.threshold = threshold
		}
	}
}

func WithRecorder(r Recorder) PollerOption {
	return func(p *Poller) { p.recorder = r }
}

func WithListener(l Listener) PollerOption {
	return func(p *Poller) { p.listeners = append(p.listeners, l) }
}

func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

func NewPoller(client api.Client, store *Store, interval time.Duration, logger *zap.Logger, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		client:    client,
		store:     store,
		interval:  interval,
		notifier:  &notify.NoopNotifier{},
		threshold: 3,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddListener registers l for future snapshots. Call before Run.
func (p *Poller) AddListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Run refreshes immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("initial order book refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("order book refresh failed",
					zap.Error(err),
					zap.Int("consecutiveFailures", p.Failures()),
				)
			}
		}
	}
}

// Refresh fetches once and swaps the result into the store. On failure the
// previous snapshot stays in place.
func (p *Poller) Refresh(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resp, err := p.client.FetchBook(ctx)
	if err != nil {
		p.recordFailure(ctx, err)
		return nil, fmt.Errorf("fetching order book: %w", err)
	}

	snap := NewSnapshot(resp, p.now())
	p.store.Swap(snap)
	p.recordSuccess(ctx, snap.FetchedAt)

	p.logger.Debug("order book refreshed",
		zap.Int("orders", len(snap.Orders)),
		zap.Float64("btc", snap.Market.BTC),
		zap.Float64("eth", snap.Market.ETH),
	)

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, resp, snap.FetchedAt); err != nil {
			p.logger.Warn("failed to archive order book", zap.Error(err))
		}
	}
	for _, l := range p.listeners {
		l(snap)
	}

	return snap, nil
}

// Failures returns the current run of consecutive failed refreshes.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Poller) recordFailure(ctx context.Context, err error) {
	if p.failures == 0 {
		p.failingSince = p.now()
	}
	p.failures++

	if p.failures >= p.threshold && !p.alerted {
		p.alerted = true
		if nerr := p.notifier.SendRefreshFailure(ctx, p.failures, p.lastSuccess, err); nerr != nil {
			p.logger.Warn("failed to send refresh alert", zap.Error(nerr))
		}
	}
}

func (p *Poller) recordSuccess(ctx context.Context, at time.Time) {
	if p.alerted {
		if err := p.notifier.SendRefreshRecovered(ctx, p.failures, at.Sub(p.failingSince)); err != nil {
			p.logger.Warn("failed to send recovery notice", zap.Error(err))
		}
	}
	p.failures = 0
	p.alerted = false
	p.lastSuccess = at
}
