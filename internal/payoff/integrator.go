package payoff

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qpricer/internal/arith"
	"github.com/aristath/qpricer/internal/quantum"
)

// PayoffIntegrator encodes the expected payoff of a basket value into the
// indicator qubit. It prepares a geometric reference distribution on the
// reference register and flips the indicator whenever the basket value, read
// as an unsigned offset, reaches the sampled reference level; the indicator's
// one-probability then equals the reference CDF at the basket value.
type PayoffIntegrator struct {
	format arith.Format
	table  []float64
	loader *quantum.DistributionLoader
	log    zerolog.Logger
}

// NewPayoffIntegrator builds the integrator for basket values in the given
// format with the given decay rate per raw step.
func NewPayoffIntegrator(f arith.Format, refWidth int, lambda float64, log zerolog.Logger) (*PayoffIntegrator, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if refWidth != f.Width {
		return nil, fmt.Errorf("reference width %d must match operand width %d: %w",
			refWidth, f.Width, arith.ErrValidation)
	}
	if lambda <= 0 {
		return nil, fmt.Errorf("decay rate %v must be positive: %w", lambda, arith.ErrValidation)
	}
	table := make([]float64, 1<<refWidth)
	for r := range table {
		table[r] = math.Exp(-lambda * float64(r))
	}
	floats.Scale(1/floats.Sum(table), table)
	loader, err := quantum.NewDistributionLoader(table, refWidth, log)
	if err != nil {
		return nil, err
	}
	return &PayoffIntegrator{
		format: f,
		table:  table,
		loader: loader,
		log:    log.With().Str("component", "integrator").Logger(),
	}, nil
}

// ReferenceTable returns the normalized reference distribution.
func (pi *PayoffIntegrator) ReferenceTable() []float64 {
	out := make([]float64, len(pi.table))
	copy(out, pi.table)
	return out
}

// CDF returns the cumulative reference mass at raw offset u. This is the
// exact indicator one-probability the circuit produces for a basket register
// holding u, and the quantity the classical cross-check integrates.
func (pi *PayoffIntegrator) CDF(u uint64) float64 {
	if int(u) >= len(pi.table) {
		return 1
	}
	return floats.Sum(pi.table[:u+1])
}

// Compile emits the integrator onto the basket register x, the reference
// register and the indicator. Extra controls gate the whole block, which is
// how the conditional loader restricts it to the in-the-money branch. The
// basket register's sign bit is flipped around the comparison so two's
// complement values compare as unsigned offsets from the format minimum.
func (pi *PayoffIntegrator) Compile(x, ref, ind quantum.Register, ctrls ...quantum.Control) (quantum.Program, error) {
	if x.Width() != pi.format.Width {
		return quantum.Program{}, fmt.Errorf("basket width %d, want %d: %w", x.Width(), pi.format.Width, arith.ErrValidation)
	}
	if ref.Width() != pi.format.Width {
		return quantum.Program{}, fmt.Errorf("reference width %d, want %d: %w", ref.Width(), pi.format.Width, arith.ErrValidation)
	}
	if ind.Width() != 1 {
		return quantum.Program{}, fmt.Errorf("indicator register %q has width %d: %w", ind.Name, ind.Width(), arith.ErrValidation)
	}

	prep, err := pi.loader.Prepare(ref)
	if err != nil {
		return quantum.Program{}, err
	}
	if len(ctrls) > 0 {
		if prep, err = prep.Controlled(ctrls...); err != nil {
			return quantum.Program{}, err
		}
	}

	var p quantum.Program
	p.Extend(prep)

	sign := x.Qubits[x.Width()-1]
	w := x.Width()
	joint := quantum.Concat("integrand", x, ref)
	compare := quantum.Control{Reg: joint, Pred: func(v uint64) bool {
		return v&(1<<w-1) >= v>>w
	}}

	p.Append(quantum.XGate(sign))
	p.Append(quantum.XGate(ind.Qubits[0], append([]quantum.Control{compare}, ctrls...)...))
	p.Append(quantum.XGate(sign))
	return p, nil
}
