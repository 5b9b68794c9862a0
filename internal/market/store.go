package market

import (
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// ErrNotReady is returned until the first successful refresh.
var ErrNotReady = errors.New("order book not loaded yet")

// Snapshot is one fetched order book with the spot prices it was quoted against.
type Snapshot struct {
	Orders    []orderbook.SignedOrder
	Market    orderbook.MarketData
	FetchedAt time.Time
}

// NewSnapshot wraps a fetched response.
func NewSnapshot(resp *orderbook.Response, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Orders:    resp.Data.Orders,
		Market:    resp.Data.MarketData,
		FetchedAt: fetchedAt,
	}
}

// Book rebuilds the wire response, e.g. for archiving or export.
func (s *Snapshot) Book() *orderbook.Response {
	return &orderbook.Response{Data: orderbook.Data{Orders: s.Orders, MarketData: s.Market}}
}

// Store holds the latest snapshot and allows atomic replacement.
// Snapshots are never mutated after they are stored.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Swap atomically replaces the current snapshot and returns the old one.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.current
	s.current = next
	return old
}

// Snapshot returns the current snapshot or ErrNotReady.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotReady
	}
	return s.current, nil
}

// Ready reports whether a snapshot has been loaded.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}
