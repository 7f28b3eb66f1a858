// Package classical computes the exact expected indicator probability by
// direct summation over the discretized asset grid. It shares the rounding
// and reference-distribution arithmetic with the circuit but none of its
// code paths, so agreement between the two is a real cross-check.
package classical

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qpricer/internal/payoff"
)

// ExpectedIndicator sums, over every asset value pair, the pair probability
// times the indicator one-probability of that pair's branch: the reference
// CDF at the rounded basket maximum above the strike, the fixed below-strike
// probability otherwise.
func ExpectedIndicator(cal payoff.Calibration, log zerolog.Logger) (float64, error) {
	if err := cal.Validate(); err != nil {
		return 0, err
	}
	integ, err := payoff.NewPayoffIntegrator(cal.MaxFormat, cal.RefWidth, cal.Lambda(), log)
	if err != nil {
		return 0, err
	}
	below := math.Pow(math.Sin(cal.BelowStrikeAngle/2), 2)
	signBit := uint64(1) << (cal.MaxFormat.Width - 1)

	n := uint64(len(cal.AssetTable))
	terms := make([]float64, 0, n*n)
	for r1 := uint64(0); r1 < n; r1++ {
		for r2 := uint64(0); r2 < n; r2++ {
			x1 := cal.AssetFormat.Decode(r1)
			x2 := cal.AssetFormat.Decode(r2)
			basket := math.Inf(-1)
			for _, f := range cal.Forms {
				raw, err := cal.WorkFormat.Encode(f.Eval(x1, x2))
				if err != nil {
					return 0, err
				}
				basket = math.Max(basket, cal.WorkFormat.Decode(raw))
			}
			branch := below
			if basket > cal.Strike {
				raw, err := cal.MaxFormat.Encode(basket)
				if err != nil {
					return 0, err
				}
				// Flip the sign bit to read two's complement as an unsigned
				// offset, mirroring the circuit's comparison convention.
				branch = integ.CDF(raw ^ signBit)
			}
			terms = append(terms, cal.AssetTable[r1]*cal.AssetTable[r2]*branch)
		}
	}
	return floats.Sum(terms), nil
}
