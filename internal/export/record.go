package export

import (
	"strconv"

	"github.com/dgnsrekt/optionbook/internal/chain"
	"github.com/dgnsrekt/optionbook/internal/greeks"
)

// Record is one CSV line of an exported chain. Missing quotes are blank.
type Record struct {
	Strike    float64 `csv:"strike"`
	CallBid   string  `csv:"callBidUsd"`
	CallAsk   string  `csv:"callAskUsd"`
	CallDelta string  `csv:"callDelta"`
	CallGamma string  `csv:"callGamma"`
	CallVega  string  `csv:"callVega"`
	CallTheta string  `csv:"callTheta"`
	PutBid    string  `csv:"putBidUsd"`
	PutAsk    string  `csv:"putAskUsd"`
	PutDelta  string  `csv:"putDelta"`
	PutGamma  string  `csv:"putGamma"`
	PutVega   string  `csv:"putVega"`
	PutTheta  string  `csv:"putTheta"`
	IV        string  `csv:"iv"`
	Spot      float64 `csv:"spot"`
}

func records(c *chain.Chain) []*Record {
	out := make([]*Record, 0, len(c.Rows))
	for _, row := range c.Rows {
		r := &Record{
			Strike:  row.Strike,
			CallBid: quotePrice(row.CallBid),
			CallAsk: quotePrice(row.CallAsk),
			PutBid:  quotePrice(row.PutBid),
			PutAsk:  quotePrice(row.PutAsk),
			Spot:    c.Spot,
		}
		if g := row.CallGreeks; g != nil {
			r.CallDelta, r.CallGamma, r.CallVega, r.CallTheta = greekFields(g)
			r.IV = formatFloat(g.IV)
		}
		if g := row.PutGreeks; g != nil {
			r.PutDelta, r.PutGamma, r.PutVega, r.PutTheta = greekFields(g)
			r.IV = formatFloat(g.IV)
		}
		out = append(out, r)
	}
	return out
}

func quotePrice(q *chain.Quote) string {
	if q == nil {
		return ""
	}
	return formatFloat(q.PriceUSD)
}

func greekFields(g *greeks.Greeks) (delta, gamma, vega, theta string) {
	return formatFloat(g.Delta), formatFloat(g.Gamma), formatFloat(g.Vega), formatFloat(g.Theta)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
