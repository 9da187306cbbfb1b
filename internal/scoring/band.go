package scoring

import "math"

// Point is one breakpoint of a Band.
type Point struct {
	X, Y float64
}

// Band is a piecewise-linear function over breakpoints sorted by X. Below the
// first breakpoint it holds the first Y, above the last it holds the last Y,
// and between breakpoints it interpolates linearly. A missing input scores 0.
type Band []Point

// At evaluates the band at x.
func (b Band) At(x float64) float64 {
	if len(b) == 0 || math.IsNaN(x) {
		return 0
	}
	if x <= b[0].X {
		return b[0].Y
	}
	for i := 1; i < len(b); i++ {
		lo, hi := b[i-1], b[i]
		if x <= hi.X {
			if hi.X == lo.X {
				return hi.Y
			}
			return lo.Y + (x-lo.X)*(hi.Y-lo.Y)/(hi.X-lo.X)
		}
	}
	return b[len(b)-1].Y
}

// Bands used by the alpha score. Each rewards a mid range of its metric.
var (
	LiquidityBand = Band{{100, 0}, {200, 1}, {5000, 1}, {25000, 0}}
	VolumeBand    = Band{{10, 0}, {50, 1}, {5000, 1}, {50000, 0}}
	SpreadBand    = Band{{0, 0}, {0.005, 1}, {0.05, 1}, {0.15, 0}}
	TimeBand      = Band{{0, 0}, {7, 1}, {60, 1}, {120, 0}}
)
