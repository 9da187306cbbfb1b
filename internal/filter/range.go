package filter

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `json:"min" toml:"min"`
	Max float64 `json:"max" toml:"max"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("filter: %s range has a NaN bound: %w", name, domain.ErrInvalidConfig)
	}
	if r.Min > r.Max {
		return fmt.Errorf("filter: %s range min %g exceeds max %g: %w", name, r.Min, r.Max, domain.ErrInvalidConfig)
	}
	return nil
}

// Slider describes one range step of the chain: the bounds derived from the
// rows that reached it, the default selection for those bounds, and the range
// actually applied.
type Slider struct {
	Bounds  Range `json:"bounds"`
	Default Range `json:"default"`
	Applied Range `json:"applied"`
}

func pick(r *Range, def Range) Range {
	if r != nil {
		return *r
	}
	return def
}

// minMax returns the extremes of the non-missing values, and false when
// every value is missing.
func minMax(markets []domain.Market, value func(domain.Market) float64) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false
	for i := range markets {
		v := value(markets[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		found = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, found
}

func liquiditySlider(markets []domain.Market) Slider {
	lo, hi, _ := minMax(markets, func(m domain.Market) float64 { return domain.OrZero(m.Liquidity) })
	if hi == 0 {
		hi = 1000
	}
	return Slider{
		Bounds:  Range{0, hi},
		Default: Range{math.Max(lo, 0), hi},
	}
}

func volumeSlider(markets []domain.Market) Slider {
	_, hi, _ := minMax(markets, func(m domain.Market) float64 { return domain.OrZero(m.Volume24h) })
	if hi == 0 {
		hi = 1000
	}
	return Slider{
		Bounds:  Range{0, hi},
		Default: Range{0, hi},
	}
}

func spreadSlider(markets []domain.Market) Slider {
	hi := 0.3
	if _, maxSpread, ok := minMax(markets, func(m domain.Market) float64 { return m.Spread }); ok {
		hi = math.Max(0.01, maxSpread)
	}
	return Slider{
		Bounds:  Range{0, hi},
		Default: Range{0, math.Min(0.10, hi)},
	}
}

func timeSlider(markets []domain.Market) Slider {
	lo, hi, ok := minMax(markets, func(m domain.Market) float64 { return m.TimeToResolutionDays })
	if !ok {
		lo, hi = -30, 365
	}
	lo = math.Max(-30, lo)
	if hi <= 0 {
		hi = 365
	}
	hi = math.Min(365, hi)
	return Slider{
		Bounds:  Range{lo, math.Max(hi, lo+1)},
		Default: Range{math.Max(0, lo), math.Min(90, hi)},
	}
}
