package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/market"
)

// ErrRefreshInProgress is returned when a manual refresh overlaps another.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Refresher fetches a new snapshot into the store.
type Refresher interface {
	Refresh(ctx context.Context) (*market.Snapshot, error)
}

// RefreshManager guards manual refreshes and remembers the last outcome.
type RefreshManager struct {
	refresher Refresher
	logger    *zap.Logger

	isRefreshing atomic.Bool
	refreshMu    sync.Mutex // prevents concurrent manual refreshes

	lastErr error
	lastAt  time.Time
	stateMu sync.RWMutex
}

func NewRefreshManager(refresher Refresher, logger *zap.Logger) *RefreshManager {
	return &RefreshManager{refresher: refresher, logger: logger}
}

// IsRefreshing returns true while a manual refresh runs.
func (rm *RefreshManager) IsRefreshing() bool {
	return rm.isRefreshing.Load()
}

// LastResult returns when the last manual refresh finished and its error.
func (rm *RefreshManager) LastResult() (time.Time, error) {
	rm.stateMu.RLock()
	defer rm.stateMu.RUnlock()
	return rm.lastAt, rm.lastErr
}

// RefreshResult describes a completed manual refresh.
type RefreshResult struct {
	Snapshot *market.Snapshot
	Duration time.Duration
}

// Refresh runs one fetch unless another manual refresh is running. On
// failure the previous snapshot stays in place.
func (rm *RefreshManager) Refresh(ctx context.Context) (*RefreshResult, error) {
	if !rm.refreshMu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer rm.refreshMu.Unlock()

	rm.isRefreshing.Store(true)
	defer rm.isRefreshing.Store(false)

	start := time.Now()
	snap, err := rm.refresher.Refresh(ctx)

	rm.stateMu.Lock()
	rm.lastAt = time.Now()
	rm.lastErr = err
	rm.stateMu.Unlock()

	if err != nil {
		rm.logger.Warn("manual refresh failed", zap.Error(err))
		return nil, err
	}

	duration := time.Since(start)
	rm.logger.Info("manual refresh complete",
		zap.Int("orders", len(snap.Orders)),
		zap.Duration("duration", duration),
	)
	return &RefreshResult{Snapshot: snap, Duration: duration}, nil
}
