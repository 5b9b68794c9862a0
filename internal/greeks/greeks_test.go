package greeks

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spot = 65000.0
	rate = DefaultRiskFreeRate
	vol  = DefaultVolatility
)

func TestNormCDF(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1, 0.8413447460685429},
		{-1, 0.15865525393145707},
		{1.96, 0.9750021048517795},
		{-3, 0.0013498980316301},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormCDF(tt.x), 1e-12, "N(%g)", tt.x)
	}

	// deep tail stays positive instead of cancelling to zero
	assert.Greater(t, NormCDF(-10), 0.0)
	assert.InDelta(t, 1.0, NormCDF(10), 1e-15)
}

func TestNormPDF(t *testing.T) {
	assert.InDelta(t, 0.3989422804014327, NormPDF(0), 1e-15)
	assert.InDelta(t, NormPDF(1.3), NormPDF(-1.3), 0)
}

func TestLeg_ATMCall(t *testing.T) {
	g := Leg(spot, spot, 0.25, rate, vol, true)

	assert.GreaterOrEqual(t, g.Delta, 0.0)
	assert.LessOrEqual(t, g.Delta, 1.0)
	assert.Greater(t, g.Gamma, 0.0)
	assert.Greater(t, g.Vega, 0.0)
	assert.Less(t, g.Theta, 0.0)
	assert.Equal(t, 65.0, g.IV)

	assert.InDelta(t, 0.576626, g.Delta, 1e-6)
	assert.InDelta(t, 1.853541e-5, g.Gamma, 1e-11)
	assert.InDelta(t, 127.257189, g.Vega, 1e-5)
	assert.InDelta(t, -48.481127, g.Theta, 1e-5)
}

func TestLeg_PutCallParity(t *testing.T) {
	strikes := []float64{40000, 60000, 65000, 70000, 120000}
	expiries := []float64{minTimeToExpiry, 0.01, 0.25, 1, 3}

	for _, k := range strikes {
		for _, T := range expiries {
			call := Leg(spot, k, T, rate, vol, true)
			put := Leg(spot, k, T, rate, vol, false)

			assert.InDelta(t, 1.0, call.Delta-put.Delta, 1e-12, "K=%g T=%g", k, T)
			assert.Equal(t, call.Gamma, put.Gamma, "gamma K=%g T=%g", k, T)
			assert.Equal(t, call.Vega, put.Vega, "vega K=%g T=%g", k, T)
			assert.Equal(t, call.IV, put.IV)
		}
	}
}

func TestLeg_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		S, T, v float64
	}{
		{"zero spot", 0, 0.25, vol},
		{"negative spot", -1, 0.25, vol},
		{"zero time", spot, 0, vol},
		{"negative time", spot, -0.5, vol},
		{"zero vol", spot, 0.25, 0},
		{"negative vol", spot, 0.25, -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, isCall := range []bool{true, false} {
				g := Leg(tt.S, spot, tt.T, rate, tt.v, isCall)
				assert.Equal(t, Greeks{IV: tt.v * 100}, g)
			}
		})
	}
}

func TestLeg_FloorKeepsGreeksFinite(t *testing.T) {
	for _, k := range []float64{spot * 0.99, spot, spot * 1.01} {
		g := Leg(spot, k, minTimeToExpiry, rate, vol, true)
		for name, val := range map[string]float64{"gamma": g.Gamma, "vega": g.Vega, "theta": g.Theta, "delta": g.Delta} {
			assert.False(t, math.IsInf(val, 0) || math.IsNaN(val), "%s not finite at K=%g: %v", name, k, val)
		}
		assert.Greater(t, g.Gamma, 0.0)
		assert.Greater(t, g.Vega, 0.0)
	}
}

func TestTimeToExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.InDelta(t, 1.0, TimeToExpiry(now.Unix()+secondsPerYear, now), 1e-12)
	assert.InDelta(t, 0.25, TimeToExpiry(now.Unix()+secondsPerYear/4, now), 1e-12)

	// past, present and too-near expiries all clamp to the floor
	assert.Equal(t, minTimeToExpiry, TimeToExpiry(now.Unix()-86400, now))
	assert.Equal(t, minTimeToExpiry, TimeToExpiry(now.Unix(), now))
	assert.Equal(t, minTimeToExpiry, TimeToExpiry(now.Unix()+3600, now))

	// sub-second precision of now is honoured
	half := now.Add(500 * time.Millisecond)
	require.Less(t, TimeToExpiry(now.Unix()+secondsPerYear, half), 1.0)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.04, p.RiskFreeRate)
	assert.Equal(t, 0.65, p.Volatility)
}
