package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

func testBook(btc float64) *orderbook.Response {
	return &orderbook.Response{Data: orderbook.Data{
		Orders: []orderbook.SignedOrder{{
			Signature: "0xsig",
			Order: orderbook.Order{
				Maker:     "0xmaker",
				IsCall:    true,
				PriceFeed: orderbook.DefaultBTCFeed,
				Strikes:   []decimal.Decimal{decimal.NewFromInt(65000).Shift(8)},
				Expiry:    1767600000,
				Price:     decimal.NewFromInt(1234).Shift(8),
			},
		}},
		MarketData: orderbook.MarketData{BTC: btc, ETH: 3000},
	}}
}

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()

	rec, err := NewRecorder(dir, logger)
	require.NoError(t, err)
	defer rec.Close()

	older := time.Date(2026, time.January, 1, 23, 59, 0, 0, time.UTC)
	newer := time.Date(2026, time.January, 2, 0, 0, 30, 0, time.UTC)
	require.NoError(t, rec.Record(context.Background(), testBook(60000), older))
	require.NoError(t, rec.Record(context.Background(), testBook(61000), newer))

	expected := filepath.Join(dir, "2026-01-02", "book_1767312030.json.zst")
	assert.Equal(t, expected, rec.Path(newer))
	_, err = os.Stat(expected)
	require.NoError(t, err)

	client, err := NewFileClient(dir, logger)
	require.NoError(t, err)
	defer client.Close()

	latest, err := client.Latest()
	require.NoError(t, err)
	assert.Equal(t, expected, latest)

	resp, err := client.FetchBook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 61000.0, resp.Data.MarketData.BTC)
	require.Len(t, resp.Data.Orders, 1)
	assert.Equal(t, []float64{65000}, resp.Data.Orders[0].Order.StrikePrices())
	assert.Equal(t, 1234.0, resp.Data.Orders[0].Order.PriceUSD())

	old, err := client.Load(rec.Path(older))
	require.NoError(t, err)
	assert.Equal(t, 60000.0, old.Data.MarketData.BTC)
}

func TestFileClient_Empty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2026-01-01"), 0750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-date"), 0750))

	logger, _ := zap.NewDevelopment()
	client, err := NewFileClient(dir, logger)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchBook(context.Background())
	assert.True(t, errors.Is(err, ErrEmpty), "expected ErrEmpty, got %v", err)
}

func TestFileClient_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-01-01", "book_1767225600.json.zst")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0600))

	logger, _ := zap.NewDevelopment()
	client, err := NewFileClient(dir, logger)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchBook(context.Background())
	assert.Error(t, err)
}
