// Package rainbow assembles the full two-asset rainbow pricing circuit and
// the amplitude amplification wrapper around it.
package rainbow

import (
	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/arith"
	"github.com/aristath/qpricer/internal/payoff"
	"github.com/aristath/qpricer/internal/quantum"
)

// Layout records where the persistent registers of the pricing circuit live.
// Scratch registers are uncomputed and recycled during compilation and do not
// appear here.
type Layout struct {
	X1, X2    quantum.Register
	Reference quantum.Register
	Indicator quantum.Register
	Qubits    int
}

// Builder compiles the state preparation program once at construction and
// serves it read-only afterwards, so one builder can feed any number of
// concurrent evaluations.
type Builder struct {
	cal    payoff.Calibration
	prog   quantum.Program
	layout Layout
	log    zerolog.Logger
}

// NewBuilder validates the calibration and compiles the pricing circuit:
// asset distributions on x1 and x2, the affine maximum into a scratch basket
// register, the strike flag, and the conditional payoff load onto the
// indicator, with the flag and basket uncomputed afterwards. Only the asset,
// reference and indicator registers stay live in the final state.
func NewBuilder(cal payoff.Calibration, log zerolog.Logger) (*Builder, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{cal: cal, log: log.With().Str("component", "builder").Logger()}

	loader, err := quantum.NewDistributionLoader(cal.AssetTable, cal.AssetFormat.Width, log)
	if err != nil {
		return nil, err
	}
	estimator, err := arith.NewAffineMaxEstimator(cal.Forms, cal.AssetFormat, cal.WorkFormat, cal.MaxFormat, log)
	if err != nil {
		return nil, err
	}
	comparator, err := arith.NewStrikeComparator(cal.MaxFormat, cal.Strike, log)
	if err != nil {
		return nil, err
	}
	integrator, err := payoff.NewPayoffIntegrator(cal.MaxFormat, cal.RefWidth, cal.Lambda(), log)
	if err != nil {
		return nil, err
	}
	conditional, err := payoff.NewConditionalPayoffLoader(integrator, cal.BelowStrikeAngle, log)
	if err != nil {
		return nil, err
	}

	alloc := quantum.NewAllocator()
	x1 := alloc.Alloc("x1", cal.AssetFormat.Width)
	x2 := alloc.Alloc("x2", cal.AssetFormat.Width)
	ind := alloc.Alloc("indicator", 1)

	// The asset and indicator registers persist into the final state, so
	// their loads carry no zero checks; checks on persistent registers would
	// fire spuriously when the inverse preparation runs mid-amplification.
	for _, x := range []quantum.Register{x1, x2} {
		prep, err := loader.Prepare(x)
		if err != nil {
			return nil, err
		}
		b.prog.Extend(prep)
	}

	basket, maxProg, err := estimator.Compile(alloc, x1, x2)
	if err != nil {
		return nil, err
	}
	// The basket scope cannot unwind by replaying the estimator inverse: the
	// estimator's scratch indices are recycled into the flag and reference
	// registers below, which are live by the time the scope closes. The
	// basket is cleared against the inputs instead.
	b.prog.Append(quantum.CheckZero(basket, quantum.CheckPrecondition))
	b.prog.Extend(maxProg)

	above := alloc.Alloc("above_strike", 1)
	ref := alloc.Alloc("reference", cal.RefWidth)
	cmpProg, err := comparator.Compile(basket, above)
	if err != nil {
		return nil, err
	}
	err = b.prog.Scoped(above, cmpProg, func() error {
		condProg, err := conditional.Compile(basket, above, ref, ind)
		if err != nil {
			return err
		}
		b.prog.Extend(condProg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	clearBasket, err := estimator.Uncompute(x1, x2, basket)
	if err != nil {
		return nil, err
	}
	b.prog.Extend(clearBasket)
	b.prog.Append(quantum.CheckZero(basket, quantum.CheckUncompute))

	alloc.Release(above)
	alloc.Release(basket)

	b.layout = Layout{
		X1:        x1,
		X2:        x2,
		Reference: ref,
		Indicator: ind,
		Qubits:    alloc.HighWater(),
	}
	b.log.Info().
		Int("qubits", b.layout.Qubits).
		Int("ops", b.prog.Len()).
		Msg("pricing circuit compiled")
	return b, nil
}

// Calibration returns the calibration the circuit was compiled from.
func (b *Builder) Calibration() payoff.Calibration {
	return b.cal
}

// Layout returns the persistent register layout.
func (b *Builder) Layout() Layout {
	return b.layout
}

// Program returns the state preparation program.
func (b *Builder) Program() quantum.Program {
	return b.prog
}

// Indicator returns the payoff indicator register.
func (b *Builder) Indicator() quantum.Register {
	return b.layout.Indicator
}

// Qubits returns the engine width the program needs, which is the peak of
// simultaneously live registers rather than the total ever allocated.
func (b *Builder) Qubits() int {
	return b.layout.Qubits
}
