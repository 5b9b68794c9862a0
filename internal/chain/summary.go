package chain

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary condenses a chain for headers and health output.
type Summary struct {
	Rows         int     `json:"rows"`
	Bids         int     `json:"bids"`
	Asks         int     `json:"asks"`
	ATMStrike    float64 `json:"atmStrike"`
	MedianStrike float64 `json:"medianStrike"`
	MeanCallAsk  float64 `json:"meanCallAskUsd"`
	MeanPutAsk   float64 `json:"meanPutAskUsd"`
}

// Summarize computes the summary. Empty inputs leave the statistics at zero.
func Summarize(c *Chain) Summary {
	s := Summary{Rows: len(c.Rows)}
	if len(c.Rows) == 0 {
		return s
	}

	strikes := make(stats.Float64Data, 0, len(c.Rows))
	var callAsks, putAsks stats.Float64Data
	bestDist := math.Inf(1)

	for _, row := range c.Rows {
		strikes = append(strikes, row.Strike)

		for _, q := range []*Quote{row.CallBid, row.PutBid} {
			if q != nil {
				s.Bids++
			}
		}
		if row.CallAsk != nil {
			s.Asks++
			callAsks = append(callAsks, row.CallAsk.PriceUSD)
		}
		if row.PutAsk != nil {
			s.Asks++
			putAsks = append(putAsks, row.PutAsk.PriceUSD)
		}

		if d := math.Abs(row.Strike - c.Spot); d < bestDist {
			bestDist = d
			s.ATMStrike = row.Strike
		}
	}

	s.MedianStrike = orZero(strikes.Median())
	s.MeanCallAsk = orZero(callAsks.Mean())
	s.MeanPutAsk = orZero(putAsks.Mean())

	return s
}

// orZero drops the NaN stats returns for empty input.
func orZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}
