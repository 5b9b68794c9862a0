package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/export"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

type mockClient struct {
	mu    sync.Mutex
	resps []*orderbook.Response
	errs  []error
	calls int
}

func (m *mockClient) FetchBook(ctx context.Context) (*orderbook.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.resps) && m.resps[i] != nil {
		return m.resps[i], nil
	}
	return book(60000), nil
}

type mockNotifier struct {
	failures  []int
	recovered []int
}

func (m *mockNotifier) SendRefreshFailure(_ context.Context, failures int, _ time.Time, _ error) error {
	m.failures = append(m.failures, failures)
	return nil
}

func (m *mockNotifier) SendRefreshRecovered(_ context.Context, failures int, _ time.Duration) error {
	m.recovered = append(m.recovered, failures)
	return nil
}

func (m *mockNotifier) SendExportSuccess(context.Context, *export.BatchResult, time.Duration) error {
	return nil
}

func (m *mockNotifier) SendExportFailure(context.Context, *export.BatchResult, time.Duration, error) error {
	return nil
}

type mockRecorder struct {
	recorded []time.Time
}

func (m *mockRecorder) Record(_ context.Context, _ *orderbook.Response, at time.Time) error {
	m.recorded = append(m.recorded, at)
	return nil
}

func book(btc float64) *orderbook.Response {
	return &orderbook.Response{Data: orderbook.Data{MarketData: orderbook.MarketData{BTC: btc, ETH: 3000}}}
}

var fixedNow = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestStore_NotReadyUntilSwap(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Ready())
	_, err := s.Snapshot()
	assert.ErrorIs(t, err, ErrNotReady)

	first := NewSnapshot(book(1), fixedNow)
	assert.Nil(t, s.Swap(first))
	assert.True(t, s.Ready())

	old := s.Swap(NewSnapshot(book(2), fixedNow))
	assert.Same(t, first, old)

	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Market.BTC)
	assert.Equal(t, 2.0, got.Book().Data.MarketData.BTC)
}

func TestPoller_RefreshStoresSnapshot(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewStore()
	rec := &mockRecorder{}
	var seen []*Snapshot

	p := NewPoller(&mockClient{resps: []*orderbook.Response{book(65000)}}, store, time.Minute, logger,
		WithRecorder(rec),
		WithListener(func(s *Snapshot) { seen = append(seen, s) }),
		WithClock(func() time.Time { return fixedNow }),
	)

	snap, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65000.0, snap.Market.BTC)
	assert.Equal(t, fixedNow, snap.FetchedAt)

	stored, err := store.Snapshot()
	require.NoError(t, err)
	assert.Same(t, snap, stored)
	assert.Equal(t, []time.Time{fixedNow}, rec.recorded)
	require.Len(t, seen, 1)
	assert.Same(t, snap, seen[0])
}

func TestPoller_FailureKeepsPreviousSnapshot(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewStore()
	client := &mockClient{
		resps: []*orderbook.Response{book(65000)},
		errs:  []error{nil, errors.New("upstream down")},
	}
	p := NewPoller(client, store, time.Minute, logger)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	_, err = p.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, p.Failures())

	snap, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 65000.0, snap.Market.BTC)
}

func TestPoller_AlertsOnceAtThresholdAndRecovers(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	boom := errors.New("boom")
	client := &mockClient{errs: []error{boom, boom, boom, boom}}
	n := &mockNotifier{}
	p := NewPoller(client, NewStore(), time.Minute, logger, WithNotifier(n, 2))

	for i := 0; i < 4; i++ {
		_, _ = p.Refresh(context.Background())
	}
	assert.Equal(t, 4, p.Failures())
	assert.Equal(t, []int{2}, n.failures)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, p.Failures())
	assert.Equal(t, []int{4}, n.recovered)
}

func TestPoller_RunRefreshesImmediately(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	ready := make(chan struct{})
	var once sync.Once
	p := NewPoller(&mockClient{}, store, time.Hour, logger,
		WithListener(func(*Snapshot) { once.Do(func() { close(ready) }) }),
	)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not refresh on start")
	}
	assert.True(t, store.Ready())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}
