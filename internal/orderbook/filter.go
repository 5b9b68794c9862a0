package orderbook

import (
	"sort"
	"strings"
	"time"

	"github.com/dgnsrekt/optionbook/internal/greeks"
)

// Default Chainlink price feeds on Base for each underlying.
const (
	DefaultBTCFeed = "0x64c911996D3c6aC71f9b455B1E8E7266BcbD848F"
	DefaultETHFeed = "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"
)

// Feeds maps each asset to the price feed its orders settle against.
type Feeds map[Asset]string

// DefaultFeeds returns the production price feeds.
func DefaultFeeds() Feeds {
	return Feeds{
		BTC: DefaultBTCFeed,
		ETH: DefaultETHFeed,
	}
}

// Matches reports whether the order settles against the asset's price feed.
// Addresses compare case-insensitively.
func (f Feeds) Matches(o Order, asset Asset) bool {
	feed, ok := f[asset]
	if !ok || feed == "" {
		return false
	}
	return strings.EqualFold(o.PriceFeed, feed)
}

// AssetOf returns the asset whose feed the order uses.
func (f Feeds) AssetOf(o Order) (Asset, bool) {
	for _, a := range Assets() {
		if f.Matches(o, a) {
			return a, true
		}
	}
	return "", false
}

// ExpiryLabel formats a Unix timestamp as DDMMMYY, e.g. 05JAN26, in UTC.
func ExpiryLabel(ts int64) string {
	return strings.ToUpper(time.Unix(ts, 0).UTC().Format("02Jan06"))
}

// Filter returns the orders for the asset whose strike count matches the
// product exactly. A non-zero expiry keeps only orders expiring on the same
// calendar day.
func Filter(orders []SignedOrder, feeds Feeds, asset Asset, product greeks.Structure, expiry int64) []SignedOrder {
	if product == greeks.Unsupported {
		return nil
	}

	var label string
	if expiry != 0 {
		label = ExpiryLabel(expiry)
	}

	out := make([]SignedOrder, 0, len(orders))
	for _, so := range orders {
		o := so.Order
		if !feeds.Matches(o, asset) {
			continue
		}
		if greeks.StructureForLegs(len(o.Strikes)) != product {
			continue
		}
		if label != "" && ExpiryLabel(o.Expiry) != label {
			continue
		}
		out = append(out, so)
	}
	return out
}

// AvailableExpiries returns the asset's expiries in ascending order with one
// timestamp per calendar day, keeping the earliest.
func AvailableExpiries(orders []SignedOrder, feeds Feeds, asset Asset) []int64 {
	seen := make(map[int64]bool)
	var timestamps []int64
	for _, so := range orders {
		if !feeds.Matches(so.Order, asset) {
			continue
		}
		if !seen[so.Order.Expiry] {
			seen[so.Order.Expiry] = true
			timestamps = append(timestamps, so.Order.Expiry)
		}
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	labels := make(map[string]bool)
	deduped := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		label := ExpiryLabel(ts)
		if labels[label] {
			continue
		}
		labels[label] = true
		deduped = append(deduped, ts)
	}
	return deduped
}
