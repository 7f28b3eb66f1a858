// Package payoff builds the payoff side of the pricing circuit: the
// reference-distribution integrator and the conditional loader that splits
// the in-the-money and out-of-the-money branches.
package payoff

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qpricer/internal/arith"
)

// Calibration bundles every market- and discretization-dependent constant of
// the pricing problem. The asset table and the below-strike angle come out of
// an offline calibration run and are carried here as opaque inputs; nothing
// in the circuit re-derives them.
type Calibration struct {
	// AssetTable is the marginal value distribution loaded into each asset
	// register, indexed by raw register value.
	AssetTable []float64
	// Strike is the payoff threshold on the basket maximum.
	Strike float64
	// Decay is the exponential decay rate of the reference distribution per
	// unit of basket value.
	Decay float64
	// BelowStrikeAngle is the fixed indicator rotation applied on the
	// out-of-the-money branch, matching the reference CDF at the strike.
	BelowStrikeAngle float64
	// Forms are the two affine legs whose maximum defines the basket value.
	Forms [2]arith.AffineForm

	AssetFormat arith.Format
	WorkFormat  arith.Format
	MaxFormat   arith.Format
	RefWidth    int
}

// Default returns the two-asset rainbow calibration used by the CLI.
func Default() Calibration {
	return Calibration{
		AssetTable:       []float64{0.0656, 0.4344, 0.4344, 0.0656},
		Strike:           1.5,
		Decay:            0.2,
		BelowStrikeAngle: 2.502800000206455,
		Forms: [2]arith.AffineForm{
			{A: 1, B: 0, C: 0},
			{A: 0.75, B: 0.75, C: -1.25},
		},
		AssetFormat: arith.Format{Width: 2, FracBits: 0},
		WorkFormat:  arith.Format{Width: 4, FracBits: 1, Signed: true},
		MaxFormat:   arith.Format{Width: 5, FracBits: 1, Signed: true},
		RefWidth:    5,
	}
}

// Lambda returns the reference decay rate per raw register step.
func (c Calibration) Lambda() float64 {
	return c.Decay * c.MaxFormat.Resolution()
}

// Validate checks the calibration's internal consistency. It is called once
// by the circuit builder; every later stage may assume a valid calibration.
func (c Calibration) Validate() error {
	for _, f := range []arith.Format{c.AssetFormat, c.WorkFormat, c.MaxFormat} {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	if want := 1 << c.AssetFormat.Width; len(c.AssetTable) != want {
		return fmt.Errorf("asset table has %d entries, format needs %d: %w",
			len(c.AssetTable), want, arith.ErrValidation)
	}
	if s := floats.Sum(c.AssetTable); math.Abs(s-1) > 1e-9 {
		return fmt.Errorf("asset table sums to %v: %w", s, arith.ErrValidation)
	}
	if c.Decay <= 0 {
		return fmt.Errorf("decay %v must be positive: %w", c.Decay, arith.ErrValidation)
	}
	if c.BelowStrikeAngle < 0 || c.BelowStrikeAngle > math.Pi {
		return fmt.Errorf("below-strike angle %v outside [0,pi]: %w", c.BelowStrikeAngle, arith.ErrValidation)
	}
	if c.RefWidth != c.MaxFormat.Width {
		return fmt.Errorf("reference width %d must match basket width %d: %w",
			c.RefWidth, c.MaxFormat.Width, arith.ErrValidation)
	}
	if c.Strike < c.MaxFormat.Min() || c.Strike >= c.MaxFormat.Max() {
		return fmt.Errorf("strike %v outside basket range: %w", c.Strike, arith.ErrValidation)
	}
	return nil
}
