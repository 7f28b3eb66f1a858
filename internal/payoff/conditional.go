package payoff

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/arith"
	"github.com/aristath/qpricer/internal/quantum"
)

// ConditionalPayoffLoader steers the indicator by the strike flag: on the
// in-the-money branch it runs the full integrator, on the other branch it
// applies a single fixed rotation whose one-probability equals the reference
// CDF at the strike. The two branches are controlled on opposite values of
// the same flag, so the block is unitary as a whole.
type ConditionalPayoffLoader struct {
	integrator *PayoffIntegrator
	angle      float64
	log        zerolog.Logger
}

// NewConditionalPayoffLoader wires the integrator to the below-strike angle.
func NewConditionalPayoffLoader(integrator *PayoffIntegrator, angle float64, log zerolog.Logger) (*ConditionalPayoffLoader, error) {
	if angle < 0 || angle > math.Pi {
		return nil, fmt.Errorf("below-strike angle %v outside [0,pi]: %w", angle, arith.ErrValidation)
	}
	return &ConditionalPayoffLoader{
		integrator: integrator,
		angle:      angle,
		log:        log.With().Str("component", "conditional_loader").Logger(),
	}, nil
}

// BranchProbability returns the indicator one-probability of the
// below-strike branch.
func (c *ConditionalPayoffLoader) BranchProbability() float64 {
	s := math.Sin(c.angle / 2)
	return s * s
}

// Compile emits both branches onto the indicator. The above flag selects the
// branch, x and ref feed the integrator.
func (c *ConditionalPayoffLoader) Compile(x, above, ref, ind quantum.Register) (quantum.Program, error) {
	if above.Width() != 1 {
		return quantum.Program{}, fmt.Errorf("strike flag %q has width %d: %w", above.Name, above.Width(), arith.ErrValidation)
	}
	inMoney, err := c.integrator.Compile(x, ref, ind, quantum.ControlBit(above, true))
	if err != nil {
		return quantum.Program{}, err
	}
	var p quantum.Program
	p.Extend(inMoney)
	p.Append(quantum.RYGate(ind.Qubits[0], c.angle, quantum.ControlBit(above, false)))
	return p, nil
}
