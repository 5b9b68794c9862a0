package greeks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnsupportedStructure = errors.New("unsupported structure: strike count must be 1-4")
	ErrUndefined            = errors.New("greeks undefined for inputs")
)

// Structure is the product shape implied by the number of legs.
type Structure int

const (
	Unsupported Structure = iota
	Vanilla
	Spread
	Butterfly
	Condor
)

var structureNames = map[Structure]string{
	Unsupported: "Unsupported",
	Vanilla:     "Vanilla",
	Spread:      "Spread",
	Butterfly:   "Butterfly",
	Condor:      "Condor",
}

// Per-leg signed weights, indexed by leg position.
var structureWeights = map[Structure][]float64{
	Vanilla:   {1},
	Spread:    {1, -1},
	Butterfly: {1, -2, 1},
	Condor:    {1, -1, -1, 1},
}

// Structures lists the supported shapes in leg-count order.
func Structures() []Structure {
	return []Structure{Vanilla, Spread, Butterfly, Condor}
}

// StructureForLegs maps a leg count onto its shape.
func StructureForLegs(n int) Structure {
	switch n {
	case 1:
		return Vanilla
	case 2:
		return Spread
	case 3:
		return Butterfly
	case 4:
		return Condor
	default:
		return Unsupported
	}
}

// ParseStructure accepts a product name in any case.
func ParseStructure(name string) (Structure, error) {
	for _, s := range Structures() {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return Unsupported, fmt.Errorf("unknown product %q (valid: Vanilla, Spread, Butterfly, Condor)", name)
}

func (s Structure) String() string {
	if name, ok := structureNames[s]; ok {
		return name
	}
	return structureNames[Unsupported]
}

// Legs returns the number of strikes the structure carries, 0 if unsupported.
func (s Structure) Legs() int {
	return len(structureWeights[s])
}

// Weights returns a copy of the per-leg weights.
func (s Structure) Weights() []float64 {
	w := structureWeights[s]
	out := make([]float64, len(w))
	copy(out, w)
	return out
}

func (s Structure) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Structure) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if strings.EqualFold(name, Unsupported.String()) {
		*s = Unsupported
		return nil
	}
	parsed, err := ParseStructure(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Inputs describe one structure to price.
type Inputs struct {
	Spot    float64
	Strikes []float64
	Expiry  int64
	IsCall  bool
}

// Option configures a Pricer.
type Option func(*Pricer)

// WithClock overrides the source of "now" used to derive time to expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Pricer) {
		p.now = now
	}
}

// Pricer nets leg Greeks into structure Greeks. It holds no mutable state and
// is safe for concurrent use.
type Pricer struct {
	params Params
	now    func() time.Time
}

// NewPricer creates a Pricer using the given market assumptions.
func NewPricer(params Params, opts ...Option) *Pricer {
	p := &Pricer{
		params: params,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Params returns the assumptions the pricer was built with.
func (p *Pricer) Params() Params {
	return p.params
}

// Greeks prices the structure and never fails. Unsupported strike counts and
// undefined inputs produce Degenerate(vol).
func (p *Pricer) Greeks(in Inputs) Greeks {
	g, _ := p.Evaluate(in)
	return g
}

// Evaluate prices the structure and reports why the result is degenerate, if
// it is. The returned Greeks are the same as those from Greeks.
func (p *Pricer) Evaluate(in Inputs) (Greeks, error) {
	v := p.params.Volatility
	structure := StructureForLegs(len(in.Strikes))
	if structure == Unsupported {
		return Degenerate(v), fmt.Errorf("%w: got %d", ErrUnsupportedStructure, len(in.Strikes))
	}

	if in.Spot <= 0 || v <= 0 {
		return Degenerate(v), fmt.Errorf("%w: spot=%g volatility=%g", ErrUndefined, in.Spot, v)
	}
	for i, k := range in.Strikes {
		if k <= 0 {
			return Degenerate(v), fmt.Errorf("%w: strike %d is %g", ErrUndefined, i+1, k)
		}
	}

	T := TimeToExpiry(in.Expiry, p.now())
	return p.compose(structure, in, T), nil
}

func (p *Pricer) compose(structure Structure, in Inputs, T float64) Greeks {
	r, v := p.params.RiskFreeRate, p.params.Volatility

	// iv is passed through, never summed across legs.
	net := Degenerate(v)
	for i, w := range structureWeights[structure] {
		leg := Leg(in.Spot, in.Strikes[i], T, r, v, in.IsCall)
		net.Delta += w * leg.Delta
		net.Gamma += w * leg.Gamma
		net.Vega += w * leg.Vega
		net.Theta += w * leg.Theta
	}
	return net
}
