// Package orderbook models the signed option orders served by the upstream
// order-book API and the filtering the option chain needs.
package orderbook

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fixed-point exponents used by the upstream order format.
const (
	strikeExp = -8 // strikes and prices are scaled by 1e8
	usdcExp   = -6 // collateral amounts are USDC with 6 decimals
)

// Asset is an underlying with a listed option book.
type Asset string

const (
	BTC Asset = "BTC"
	ETH Asset = "ETH"
)

// Assets lists every supported underlying.
func Assets() []Asset {
	return []Asset{BTC, ETH}
}

// ParseAsset accepts an asset symbol in any case.
func ParseAsset(s string) (Asset, error) {
	switch Asset(strings.ToUpper(s)) {
	case BTC:
		return BTC, nil
	case ETH:
		return ETH, nil
	default:
		return "", fmt.Errorf("unknown asset %q (valid: BTC, ETH)", s)
	}
}

type Response struct {
	Data Data `json:"data"`
}

type Data struct {
	Orders     []SignedOrder `json:"orders"`
	MarketData MarketData    `json:"market_data"`
}

type SignedOrder struct {
	Order             Order  `json:"order"`
	Nonce             string `json:"nonce"`
	Signature         string `json:"signature"`
	OptionBookAddress string `json:"optionBookAddress"`
}

// Order is a maker order for one option structure. IsLong means the maker is
// buying, so the order is a bid.
type Order struct {
	Maker                string            `json:"maker"`
	Collateral           string            `json:"collateral"`
	IsCall               bool              `json:"isCall"`
	PriceFeed            string            `json:"priceFeed"`
	Implementation       string            `json:"implementation"`
	Strikes              []decimal.Decimal `json:"strikes"`
	Expiry               int64             `json:"expiry"`
	Price                decimal.Decimal   `json:"price"`
	MaxCollateralUsable  decimal.Decimal   `json:"maxCollateralUsable"`
	IsLong               bool              `json:"isLong"`
	OrderExpiryTimestamp int64             `json:"orderExpiryTimestamp"`
	NumContracts         decimal.Decimal   `json:"numContracts"`
	ExtraOptionData      string            `json:"extraOptionData"`
}

// MarketData carries spot prices in USD.
type MarketData struct {
	BTC float64 `json:"BTC"`
	ETH float64 `json:"ETH"`
}

// Spot returns the spot price for the asset, 0 when unknown.
func (m MarketData) Spot(asset Asset) float64 {
	switch asset {
	case BTC:
		return m.BTC
	case ETH:
		return m.ETH
	default:
		return 0
	}
}

// StrikePrices converts the fixed-point strikes into real strike prices.
func (o Order) StrikePrices() []float64 {
	out := make([]float64, len(o.Strikes))
	for i, s := range o.Strikes {
		out[i] = s.Shift(strikeExp).InexactFloat64()
	}
	return out
}

// PrimaryStrike is the first leg's strike price, 0 if the order has none.
func (o Order) PrimaryStrike() float64 {
	if len(o.Strikes) == 0 {
		return 0
	}
	return o.Strikes[0].Shift(strikeExp).InexactFloat64()
}

// PriceUSD is the order price in USD.
func (o Order) PriceUSD() float64 {
	return o.Price.Shift(strikeExp).InexactFloat64()
}

// CollateralUSDC is the maximum collateral the maker committed, in USDC.
func (o Order) CollateralUSDC() float64 {
	return o.MaxCollateralUsable.Shift(usdcExp).InexactFloat64()
}

// Side reports "bid" for maker-long orders and "ask" otherwise.
func (o Order) Side() string {
	if o.IsLong {
		return "bid"
	}
	return "ask"
}

func (o Order) String() string {
	flavor := "P"
	if o.IsCall {
		flavor = "C"
	}
	strikes := make([]string, len(o.Strikes))
	for i, s := range o.Strikes {
		strikes[i] = s.Shift(strikeExp).String()
	}
	return fmt.Sprintf("%s-%s-%s %s@%s", ExpiryLabel(o.Expiry), strings.Join(strikes, "/"), flavor, o.Side(), o.Price.Shift(strikeExp).StringFixed(2))
}
