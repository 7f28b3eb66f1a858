package arith

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/quantum"
)

// StrikeComparator flags register values strictly above a fixed threshold.
// The flag is a single X controlled on a value predicate, so the block is its
// own inverse.
type StrikeComparator struct {
	format Format
	strike float64
	log    zerolog.Logger
}

// NewStrikeComparator rejects thresholds outside the operand's representable
// range; a comparison that is constant over the whole domain is a
// configuration mistake, not a circuit.
func NewStrikeComparator(f Format, strike float64, log zerolog.Logger) (*StrikeComparator, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if strike < f.Min() || strike >= f.Max() {
		return nil, fmt.Errorf("strike %v outside representable range [%v,%v): %w",
			strike, f.Min(), f.Max(), ErrValidation)
	}
	return &StrikeComparator{
		format: f,
		strike: strike,
		log:    log.With().Str("component", "comparator").Logger(),
	}, nil
}

// Compile emits the comparison onto a one-qubit flag register.
func (c *StrikeComparator) Compile(x, flag quantum.Register) (quantum.Program, error) {
	if x.Width() != c.format.Width {
		return quantum.Program{}, fmt.Errorf("operand width %d, want %d: %w", x.Width(), c.format.Width, ErrValidation)
	}
	if flag.Width() != 1 {
		return quantum.Program{}, fmt.Errorf("flag register %q has width %d: %w", flag.Name, flag.Width(), ErrValidation)
	}
	var p quantum.Program
	p.Append(quantum.XGate(flag.Qubits[0], quantum.Control{Reg: x, Pred: func(v uint64) bool {
		return c.format.Decode(v) > c.strike
	}}))
	return p, nil
}
