// Package chain arranges filtered orders into a strike-by-strike option chain
// with model Greeks for each side.
package chain

import (
	"sort"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// Quote is the best order on one side of a row.
type Quote struct {
	PriceUSD       float64   `json:"priceUsd"`
	PriceAsset     float64   `json:"priceAsset"`
	CollateralUSDC float64   `json:"collateralUsdc"`
	Strikes        []float64 `json:"strikes"`
	Expiry         int64     `json:"expiry"`
	Maker          string    `json:"maker"`

	order orderbook.Order
}

// Row is one primary strike with the best call and put quotes.
type Row struct {
	Strike     float64        `json:"strike"`
	CallBid    *Quote         `json:"callBid,omitempty"`
	CallAsk    *Quote         `json:"callAsk,omitempty"`
	PutBid     *Quote         `json:"putBid,omitempty"`
	PutAsk     *Quote         `json:"putAsk,omitempty"`
	CallGreeks *greeks.Greeks `json:"callGreeks,omitempty"`
	PutGreeks  *greeks.Greeks `json:"putGreeks,omitempty"`
}

// Chain is the option chain for one asset, product and expiry selection.
type Chain struct {
	Spot        float64 `json:"spot"`
	ExpiryLabel string  `json:"expiryLabel"`
	// SpotRow is the index of the row whose strike is at or below spot while
	// the next row's strike is above it, -1 if spot is outside the rows.
	SpotRow int   `json:"spotRow"`
	Rows    []Row `json:"rows"`
}

// Build groups orders by their first strike and prices each side. Orders are
// expected to be pre-filtered to one asset. A non-positive spot yields an
// empty chain since the UI treats it as still loading.
func Build(orders []orderbook.SignedOrder, spot float64, pricer *greeks.Pricer) *Chain {
	c := &Chain{Spot: spot, SpotRow: -1, Rows: []Row{}}
	if spot <= 0 {
		return c
	}

	rows := make(map[float64]*Row)
	for _, so := range orders {
		o := so.Order
		if len(o.Strikes) == 0 {
			continue
		}
		if c.ExpiryLabel == "" {
			c.ExpiryLabel = orderbook.ExpiryLabel(o.Expiry)
		}

		strike := o.PrimaryStrike()
		row, ok := rows[strike]
		if !ok {
			row = &Row{Strike: strike}
			rows[strike] = row
		}

		switch {
		case o.IsCall && o.IsLong:
			row.CallBid = betterBid(row.CallBid, o, spot)
		case o.IsCall:
			row.CallAsk = betterAsk(row.CallAsk, o, spot)
		case o.IsLong:
			row.PutBid = betterBid(row.PutBid, o, spot)
		default:
			row.PutAsk = betterAsk(row.PutAsk, o, spot)
		}
	}

	for _, row := range rows {
		c.Rows = append(c.Rows, *row)
	}
	sort.Slice(c.Rows, func(i, j int) bool { return c.Rows[i].Strike < c.Rows[j].Strike })

	// asks are preferred as the reference since the chain is quoted for takers
	for i := range c.Rows {
		row := &c.Rows[i]
		if ref := pick(row.CallAsk, row.CallBid); ref != nil {
			row.CallGreeks = priceQuote(pricer, spot, ref, true)
		}
		if ref := pick(row.PutAsk, row.PutBid); ref != nil {
			row.PutGreeks = priceQuote(pricer, spot, ref, false)
		}
	}

	for i := 0; i < len(c.Rows)-1; i++ {
		if spot >= c.Rows[i].Strike && spot < c.Rows[i+1].Strike {
			c.SpotRow = i
			break
		}
	}

	return c
}

func newQuote(o orderbook.Order, spot float64) *Quote {
	usd := o.PriceUSD()
	return &Quote{
		PriceUSD:       usd,
		PriceAsset:     usd / spot,
		CollateralUSDC: o.CollateralUSDC(),
		Strikes:        o.StrikePrices(),
		Expiry:         o.Expiry,
		Maker:          o.Maker,
		order:          o,
	}
}

// betterBid keeps the higher-priced bid.
func betterBid(cur *Quote, o orderbook.Order, spot float64) *Quote {
	if cur == nil || o.Price.GreaterThan(cur.order.Price) {
		return newQuote(o, spot)
	}
	return cur
}

// betterAsk keeps the lower-priced ask.
func betterAsk(cur *Quote, o orderbook.Order, spot float64) *Quote {
	if cur == nil || o.Price.LessThan(cur.order.Price) {
		return newQuote(o, spot)
	}
	return cur
}

func pick(first, fallback *Quote) *Quote {
	if first != nil {
		return first
	}
	return fallback
}

func priceQuote(pricer *greeks.Pricer, spot float64, q *Quote, isCall bool) *greeks.Greeks {
	g := pricer.Greeks(greeks.Inputs{
		Spot:    spot,
		Strikes: q.Strikes,
		Expiry:  q.Expiry,
		IsCall:  isCall,
	})
	return &g
}
