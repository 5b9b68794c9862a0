package ws

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// Group is a chain subscription: {asset}_{product} with an optional
// _{DDMMMYY} expiry. Without an expiry the nearest one is streamed.
type Group struct {
	Asset       orderbook.Asset
	Product     greeks.Structure
	ExpiryLabel string
}

// ParseGroup validates a group name such as BTC_Spread or ETH_Vanilla_30JAN26.
func ParseGroup(name string) (Group, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 || len(parts) > 3 {
		return Group{}, fmt.Errorf("invalid group %q: want {asset}_{product}[_{expiry}]", name)
	}

	asset, err := orderbook.ParseAsset(parts[0])
	if err != nil {
		return Group{}, fmt.Errorf("invalid group %q: %w", name, err)
	}

	product, err := greeks.ParseStructure(parts[1])
	if err != nil {
		return Group{}, fmt.Errorf("invalid group %q: %w", name, err)
	}

	g := Group{Asset: asset, Product: product}
	if len(parts) == 3 {
		if len(parts[2]) != len("02JAN06") {
			return Group{}, fmt.Errorf("invalid group %q: expiry must be DDMMMYY", name)
		}
		g.ExpiryLabel = strings.ToUpper(parts[2])
	}
	return g, nil
}

func (g Group) String() string {
	name := fmt.Sprintf("%s_%s", g.Asset, g.Product)
	if g.ExpiryLabel != "" {
		name += "_" + g.ExpiryLabel
	}
	return name
}
