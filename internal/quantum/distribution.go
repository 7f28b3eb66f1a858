package quantum

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// TableTolerance is how far a probability table's sum may deviate from 1.
const TableTolerance = 1e-9

// DistributionLoader prepares a literal discrete probability table onto a
// register: starting from |0..0>, the register ends in a superposition whose
// squared amplitude on basis state i equals the i-th table entry.
//
// The decomposition is a binary tree of Y-rotations: level m splits the
// probability mass of each m-bit prefix between the two values of the next
// most significant qubit, with the rotation controlled on the prefix value.
// All amplitudes stay real and nonnegative, so the squared amplitudes
// reproduce the table exactly and the inverse is the reversed rotation
// sequence with negated angles.
type DistributionLoader struct {
	table []float64
	width int
	log   zerolog.Logger
}

// NewDistributionLoader validates the table and binds it to a register width.
// The table must be nonnegative, sum to 1 within TableTolerance, and fit in
// 2^width entries; shorter tables are padded with zero mass.
func NewDistributionLoader(table []float64, width int, log zerolog.Logger) (*DistributionLoader, error) {
	if width < 1 {
		return nil, fmt.Errorf("register width %d: %w", width, ErrPrecondition)
	}
	if len(table) == 0 || len(table) > 1<<width {
		return nil, fmt.Errorf("table of %d entries does not fit %d qubits: %w", len(table), width, ErrPrecondition)
	}
	for i, p := range table {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("table entry %d is %v: %w", i, p, ErrPrecondition)
		}
	}
	if sum := floats.Sum(table); math.Abs(sum-1) > TableTolerance {
		return nil, fmt.Errorf("table sums to %.12f, not 1: %w", sum, ErrPrecondition)
	}
	padded := make([]float64, 1<<width)
	copy(padded, table)
	return &DistributionLoader{
		table: padded,
		width: width,
		log:   log.With().Str("component", "distribution_loader").Logger(),
	}, nil
}

// Table returns a copy of the (padded) probability table.
func (l *DistributionLoader) Table() []float64 {
	out := make([]float64, len(l.table))
	copy(out, l.table)
	return out
}

// Prepare emits the rotation tree for a register the caller guarantees to be
// in the all-zero state, with no runtime check. This is the form used inside
// state preparation, where the engine starts from |0..0> by construction and
// where the program must stay check-free so its inverse remains applicable to
// arbitrary intermediate states of the amplification loop.
func (l *DistributionLoader) Prepare(reg Register) (Program, error) {
	if reg.Width() != l.width {
		return Program{}, fmt.Errorf("register %q has %d qubits, loader wants %d: %w",
			reg.Name, reg.Width(), l.width, ErrPrecondition)
	}
	var p Program
	for level := 0; level < l.width; level++ {
		target := reg.Qubits[l.width-1-level]
		var prefix Register
		if level > 0 {
			prefix = Register{
				Name:   reg.Name + "_prefix",
				Qubits: reg.Qubits[l.width-level:],
			}
		}
		for v := 0; v < 1<<level; v++ {
			p0 := l.branchMass(level, v, 0)
			p1 := l.branchMass(level, v, 1)
			if p0+p1 <= 0 {
				continue
			}
			theta := 2 * math.Atan2(math.Sqrt(p1), math.Sqrt(p0))
			if theta == 0 {
				continue
			}
			if level == 0 {
				p.Append(RYGate(target, theta))
			} else {
				p.Append(RYGate(target, theta, ControlEquals(prefix, uint64(v))))
			}
		}
	}
	return p, nil
}

// Load is the in-place variant: it assumes the register already sits in the
// all-zero state and fails the evaluation with a precondition error if that
// assumption is violated beyond the simulation tolerance.
func (l *DistributionLoader) Load(reg Register) (Program, error) {
	rotations, err := l.Prepare(reg)
	if err != nil {
		return Program{}, err
	}
	var p Program
	p.Append(CheckZero(reg, CheckPrecondition))
	p.Extend(rotations)
	return p, nil
}

// branchMass sums the table mass of the values whose top level bits equal v
// and whose next bit equals bit.
func (l *DistributionLoader) branchMass(level, v, bit int) float64 {
	span := 1 << (l.width - level - 1)
	start := (v<<1 | bit) * span
	return floats.Sum(l.table[start : start+span])
}
