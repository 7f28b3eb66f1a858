package quantum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/rs/zerolog"
)

// NormTolerance is the allowed drift of the state vector's squared norm from
// 1, and the tolerance for the all-zero checks at scope boundaries.
const NormTolerance = 1e-9

var (
	// ErrPrecondition reports an operation applied to a register that was
	// required to be in the all-zero state but was not.
	ErrPrecondition = errors.New("register precondition violated")
	// ErrUncompute reports a scratch register that was not restored to the
	// all-zero state at its scope exit.
	ErrUncompute = errors.New("ancilla not uncomputed at scope exit")
	// ErrInvariantViolation reports normalization drift beyond tolerance,
	// which can only mean an incorrectly implemented unitary or inverse. It
	// is a bug signal and must never be swallowed.
	ErrInvariantViolation = errors.New("state vector normalization invariant violated")
)

// Engine holds the complex amplitude vector over a fixed set of qubits and
// applies programs to it in place. One engine belongs to exactly one
// evaluation; independent evaluations each allocate their own.
type Engine struct {
	qubits int
	amps   []complex128
	log    zerolog.Logger
}

// NewEngine creates an engine over the given number of qubits, initialized
// to the all-zero basis state.
func NewEngine(qubits int, log zerolog.Logger) *Engine {
	e := &Engine{
		qubits: qubits,
		amps:   make([]complex128, 1<<qubits),
		log:    log.With().Str("component", "engine").Logger(),
	}
	e.amps[0] = 1
	return e
}

// Qubits returns the engine's register width.
func (e *Engine) Qubits() int {
	return e.qubits
}

// Reset returns the engine to the all-zero basis state.
func (e *Engine) Reset() {
	for i := range e.amps {
		e.amps[i] = 0
	}
	e.amps[0] = 1
}

// Run applies the program operation by operation. It honors context
// cancellation between operations, so an in-flight evaluation can be
// abandoned without side effects on any shared state, and verifies the
// normalization invariant after every operation.
func (e *Engine) Run(ctx context.Context, p Program) error {
	for i, op := range p.Ops {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluation abandoned at op %d: %w", i, err)
		}
		if err := e.apply(op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if drift := math.Abs(e.normSquared() - 1); drift > NormTolerance {
			e.log.Error().Int("op", i).Float64("drift", drift).Msg("normalization drift")
			return fmt.Errorf("op %d drifted by %.3e: %w", i, drift, ErrInvariantViolation)
		}
	}
	return nil
}

func (e *Engine) apply(op Operation) error {
	switch op.Kind {
	case OpX:
		bit := 1 << op.Target
		for i := range e.amps {
			if i&bit == 0 && e.controlsHold(i, op.Controls) {
				j := i | bit
				e.amps[i], e.amps[j] = e.amps[j], e.amps[i]
			}
		}
	case OpRY:
		bit := 1 << op.Target
		c := complex(math.Cos(op.Theta/2), 0)
		s := complex(math.Sin(op.Theta/2), 0)
		for i := range e.amps {
			if i&bit == 0 && e.controlsHold(i, op.Controls) {
				j := i | bit
				a0, a1 := e.amps[i], e.amps[j]
				e.amps[i] = c*a0 - s*a1
				e.amps[j] = s*a0 + c*a1
			}
		}
	case OpPhaseFlip:
		for i := range e.amps {
			if e.controlsHold(i, op.Controls) {
				e.amps[i] = -e.amps[i]
			}
		}
	case OpCheckZero:
		leak := 1 - e.Probability(op.Reg, func(v uint64) bool { return v == 0 })
		if leak > NormTolerance {
			kind := ErrPrecondition
			if op.Check == CheckUncompute {
				kind = ErrUncompute
			}
			return fmt.Errorf("register %q carries %.3e weight outside |0..0>: %w", op.Reg.Name, leak, kind)
		}
	}
	return nil
}

// controlsHold reports whether every control predicate accepts the basis
// state i. Control registers never contain the operation's target qubit, so
// the two halves of a target pair always agree on this.
func (e *Engine) controlsHold(i int, controls []Control) bool {
	for _, ctrl := range controls {
		if !ctrl.Pred(decodeValue(i, ctrl.Reg)) {
			return false
		}
	}
	return true
}

func decodeValue(i int, reg Register) uint64 {
	var v uint64
	for k, q := range reg.Qubits {
		if i&(1<<q) != 0 {
			v |= 1 << k
		}
	}
	return v
}

func (e *Engine) normSquared() float64 {
	var sum float64
	for _, a := range e.amps {
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	return sum
}

// Probability returns the total probability mass of basis states whose
// decoded register value satisfies the predicate.
func (e *Engine) Probability(reg Register, pred func(uint64) bool) float64 {
	var sum float64
	for i, a := range e.amps {
		if pred(decodeValue(i, reg)) {
			sum += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return sum
}

// Probabilities returns the marginal distribution over the register's
// decoded values.
func (e *Engine) Probabilities(reg Register) []float64 {
	out := make([]float64, 1<<reg.Width())
	for i, a := range e.amps {
		out[decodeValue(i, reg)] += real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

// Amplitude returns the amplitude of a single basis state.
func (e *Engine) Amplitude(state int) complex128 {
	return e.amps[state]
}

// BasisProbability returns |amplitude|^2 of a single basis state.
func (e *Engine) BasisProbability(state int) float64 {
	return cmplx.Abs(e.amps[state]) * cmplx.Abs(e.amps[state])
}

// SampleBit draws shots measurement outcomes of a one-qubit register from its
// current marginal and returns the number of 1 results. The state vector is
// not collapsed: repeated shots within one evaluation are independent draws
// from the same prepared state.
func (e *Engine) SampleBit(reg Register, shots int, rng *rand.Rand) int {
	p1 := e.Probability(reg, func(v uint64) bool { return v == 1 })
	ones := 0
	for i := 0; i < shots; i++ {
		if rng.Float64() < p1 {
			ones++
		}
	}
	return ones
}
