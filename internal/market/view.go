package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/optionbook/internal/chain"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// Expiry is one selectable expiry day.
type Expiry struct {
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
}

// ChainView is a built chain with the context it was built from.
type ChainView struct {
	Asset       orderbook.Asset  `json:"asset"`
	Product     greeks.Structure `json:"product"`
	Expiry      int64            `json:"expiry"`
	ExpiryLabel string           `json:"expiryLabel"`
	FetchedAt   time.Time        `json:"fetchedAt"`
	Chain       *chain.Chain     `json:"chain"`
	Summary     chain.Summary    `json:"summary"`
}

// Expiries lists the asset's expiry days in ascending order.
func (s *Snapshot) Expiries(feeds orderbook.Feeds, asset orderbook.Asset) []Expiry {
	ts := orderbook.AvailableExpiries(s.Orders, feeds, asset)
	out := make([]Expiry, 0, len(ts))
	for _, t := range ts {
		out = append(out, Expiry{Timestamp: t, Label: orderbook.ExpiryLabel(t)})
	}
	return out
}

// ResolveExpiry turns a query value into an expiry timestamp. It accepts unix
// seconds or a DDMMMYY label; empty selects the nearest expiry, 0 if none.
func (s *Snapshot) ResolveExpiry(feeds orderbook.Feeds, asset orderbook.Asset, value string) (int64, error) {
	value = strings.TrimSpace(value)
	expiries := s.Expiries(feeds, asset)

	if value == "" {
		if len(expiries) == 0 {
			return 0, nil
		}
		return expiries[0].Timestamp, nil
	}

	if ts, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ts, nil
	}

	label := strings.ToUpper(value)
	for _, e := range expiries {
		if e.Label == label {
			return e.Timestamp, nil
		}
	}
	return 0, fmt.Errorf("unknown expiry %q for %s", value, asset)
}

// ChainView filters the snapshot and builds the chain for one selection.
func (s *Snapshot) ChainView(feeds orderbook.Feeds, pricer *greeks.Pricer, asset orderbook.Asset, product greeks.Structure, expiry int64) *ChainView {
	orders := orderbook.Filter(s.Orders, feeds, asset, product, expiry)
	c := chain.Build(orders, s.Market.Spot(asset), pricer)

	label := c.ExpiryLabel
	if expiry != 0 {
		label = orderbook.ExpiryLabel(expiry)
	}

	return &ChainView{
		Asset:       asset,
		Product:     product,
		Expiry:      expiry,
		ExpiryLabel: label,
		FetchedAt:   s.FetchedAt,
		Chain:       c,
		Summary:     chain.Summarize(c),
	}
}
