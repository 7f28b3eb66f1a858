package rainbow

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/arith"
	"github.com/aristath/qpricer/internal/quantum"
)

// StatePreparer is the circuit side the amplifier needs: a preparation
// program, the qubit it marks good states on, and the engine width. Builder
// satisfies it; tests substitute single-qubit toys.
type StatePreparer interface {
	Program() quantum.Program
	Indicator() quantum.Register
	Qubits() int
}

// Circuit is a fully composed, runnable program at a fixed amplification
// depth.
type Circuit struct {
	Program   quantum.Program
	Qubits    int
	Indicator quantum.Register
	Depth     int
}

// GroverAmplifier composes amplification circuits around a state preparer.
// Depth k prepares the state and applies the amplification operator k times;
// each application takes the indicator one-probability from sin^2(theta) to
// sin^2((2k+1)theta).
type GroverAmplifier struct {
	prep StatePreparer
	log  zerolog.Logger
}

// NewGroverAmplifier wraps a state preparer.
func NewGroverAmplifier(prep StatePreparer, log zerolog.Logger) *GroverAmplifier {
	return &GroverAmplifier{prep: prep, log: log.With().Str("component", "amplifier").Logger()}
}

// Build composes the circuit at amplification depth k. Depth zero is plain
// state preparation. The inverse preparation inside each round is the literal
// reversed program, so scratch scopes unwind and re-establish their zero
// checks on every round.
func (g *GroverAmplifier) Build(k int) (*Circuit, error) {
	if k < 0 {
		return nil, fmt.Errorf("amplification depth %d negative: %w", k, arith.ErrValidation)
	}
	sp := g.prep.Program()
	ind := g.prep.Indicator()
	qubits := g.prep.Qubits()

	var prog quantum.Program
	prog.Extend(sp)
	if k > 0 {
		spInv := sp.Inverse()
		markGood := quantum.PhaseFlip(quantum.ControlBit(ind, true))
		all := quantum.Register{Name: "all", Qubits: make([]int, qubits)}
		for i := range all.Qubits {
			all.Qubits[i] = i
		}
		markZero := quantum.PhaseFlip(quantum.ControlEquals(all, 0))
		for i := 0; i < k; i++ {
			prog.Append(markGood)
			prog.Extend(spInv)
			prog.Append(markZero)
			prog.Extend(sp)
		}
	}
	g.log.Debug().Int("depth", k).Int("ops", prog.Len()).Msg("amplification circuit built")
	return &Circuit{Program: prog, Qubits: qubits, Indicator: ind, Depth: k}, nil
}
