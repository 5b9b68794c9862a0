package orderbook

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dgnsrekt/optionbook/internal/greeks"
)

const sampleResponse = `{
  "data": {
    "orders": [
      {
        "order": {
          "maker": "0xabc",
          "collateral": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
          "isCall": true,
          "priceFeed": "0x64C911996d3c6ac71f9b455b1e8e7266bcbd848f",
          "implementation": "0xdef",
          "strikes": [6500000000000, 7000000000000],
          "expiry": 1767600000,
          "price": "123456000000",
          "maxCollateralUsable": "2500000000",
          "isLong": false,
          "orderExpiryTimestamp": 1767000000,
          "numContracts": "1000000",
          "extraOptionData": "0x"
        },
        "nonce": "1",
        "signature": "0xsig",
        "optionBookAddress": "0xbook"
      }
    ],
    "market_data": {"BTC": 91234.5, "ETH": 3100.25}
  }
}`

func order(feed string, expiry int64, strikes ...float64) SignedOrder {
	ds := make([]decimal.Decimal, len(strikes))
	for i, s := range strikes {
		ds[i] = decimal.NewFromFloat(s).Shift(8)
	}
	return SignedOrder{Order: Order{PriceFeed: feed, Expiry: expiry, Strikes: ds}}
}

func TestResponseDecoding(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(sampleResponse), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Data.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp.Data.Orders))
	}
	o := resp.Data.Orders[0].Order

	strikes := o.StrikePrices()
	if len(strikes) != 2 || strikes[0] != 65000 || strikes[1] != 70000 {
		t.Errorf("unexpected strikes: %v", strikes)
	}
	if o.PrimaryStrike() != 65000 {
		t.Errorf("expected primary strike 65000, got %v", o.PrimaryStrike())
	}
	if o.PriceUSD() != 1234.56 {
		t.Errorf("expected price 1234.56, got %v", o.PriceUSD())
	}
	if o.CollateralUSDC() != 2500 {
		t.Errorf("expected collateral 2500, got %v", o.CollateralUSDC())
	}
	if o.Side() != "ask" {
		t.Errorf("maker short should be an ask, got %s", o.Side())
	}
	if resp.Data.MarketData.Spot(BTC) != 91234.5 || resp.Data.MarketData.Spot(ETH) != 3100.25 {
		t.Errorf("unexpected market data: %+v", resp.Data.MarketData)
	}
	if got := o.String(); !strings.HasPrefix(got, "05JAN26-65000/70000-C ask@1234.56") {
		t.Errorf("unexpected String: %s", got)
	}
}

func TestParseAsset(t *testing.T) {
	for _, in := range []string{"btc", "BTC", "Btc"} {
		a, err := ParseAsset(in)
		if err != nil || a != BTC {
			t.Errorf("ParseAsset(%q) = %v, %v", in, a, err)
		}
	}
	if _, err := ParseAsset("SOL"); err == nil {
		t.Error("expected error for unsupported asset")
	}
}

func TestExpiryLabel(t *testing.T) {
	ts := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC).Unix()
	if got := ExpiryLabel(ts); got != "05JAN26" {
		t.Errorf("expected 05JAN26, got %s", got)
	}
}

func TestFilter(t *testing.T) {
	feeds := DefaultFeeds()
	jan5 := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC).Unix()
	jan12 := time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC).Unix()

	orders := []SignedOrder{
		order(strings.ToLower(DefaultBTCFeed), jan5, 60000),
		order(DefaultBTCFeed, jan5, 60000, 62000),
		order(DefaultBTCFeed, jan12, 60000, 62000),
		order(DefaultBTCFeed, jan5, 60000, 62000, 64000),
		order(DefaultBTCFeed, jan5, 60000, 62000, 68000, 70000),
		order(DefaultBTCFeed, jan5, 1, 2, 3, 4, 5),
		order(DefaultETHFeed, jan5, 3000, 3200),
	}

	tests := []struct {
		name    string
		asset   Asset
		product greeks.Structure
		expiry  int64
		want    int
	}{
		{"vanilla btc", BTC, greeks.Vanilla, 0, 1},
		{"spread btc all expiries", BTC, greeks.Spread, 0, 2},
		{"spread btc jan5", BTC, greeks.Spread, jan5, 1},
		{"spread btc jan5 other hour", BTC, greeks.Spread, jan5 + 3600, 1},
		{"butterfly btc", BTC, greeks.Butterfly, 0, 1},
		{"condor btc", BTC, greeks.Condor, 0, 1},
		{"spread eth", ETH, greeks.Spread, 0, 1},
		{"vanilla eth", ETH, greeks.Vanilla, 0, 0},
		{"unsupported", BTC, greeks.Unsupported, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(orders, feeds, tt.asset, tt.product, tt.expiry)
			if len(got) != tt.want {
				t.Errorf("expected %d orders, got %d", tt.want, len(got))
			}
		})
	}
}

func TestFilter_UnknownFeed(t *testing.T) {
	orders := []SignedOrder{order(DefaultBTCFeed, 1767600000, 60000)}
	if got := Filter(orders, Feeds{}, BTC, greeks.Vanilla, 0); len(got) != 0 {
		t.Errorf("expected no orders without a configured feed, got %d", len(got))
	}
}

func TestAvailableExpiries(t *testing.T) {
	feeds := DefaultFeeds()
	jan5Early := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC).Unix()
	jan5Late := time.Date(2026, time.January, 5, 20, 0, 0, 0, time.UTC).Unix()
	jan12 := time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC).Unix()

	orders := []SignedOrder{
		order(DefaultBTCFeed, jan12, 60000),
		order(DefaultBTCFeed, jan5Late, 60000),
		order(DefaultBTCFeed, jan5Early, 60000, 62000),
		order(DefaultBTCFeed, jan12, 60000, 62000),
		order(DefaultETHFeed, jan5Early, 3000),
	}

	got := AvailableExpiries(orders, feeds, BTC)
	want := []int64{jan5Early, jan12}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	if eth := AvailableExpiries(orders, feeds, ETH); len(eth) != 1 {
		t.Errorf("expected 1 ETH expiry, got %v", eth)
	}
}

func TestFeedsAssetOf(t *testing.T) {
	feeds := DefaultFeeds()
	a, ok := feeds.AssetOf(Order{PriceFeed: strings.ToUpper(DefaultETHFeed)})
	if !ok || a != ETH {
		t.Errorf("expected ETH, got %v %v", a, ok)
	}
	if _, ok := feeds.AssetOf(Order{PriceFeed: "0x0"}); ok {
		t.Error("expected unknown feed")
	}
}
