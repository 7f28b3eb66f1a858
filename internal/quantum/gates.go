package quantum

// OpKind enumerates the closed set of primitive operations. Exhaustive
// switches over OpKind are relied on throughout; adding a kind requires
// updating Operation.Inverse and Engine.apply together.
type OpKind int

const (
	// OpX flips the target qubit (Pauli-X).
	OpX OpKind = iota
	// OpRY rotates the target qubit around Y by Theta radians.
	OpRY
	// OpPhaseFlip negates the amplitude of every basis state satisfying all
	// controls. It has no target qubit; the controls define the subspace.
	OpPhaseFlip
	// OpCheckZero asserts that Reg has all qubits in |0> up to the simulation
	// tolerance. It is the identity on the state and exists to enforce the
	// ancilla lifecycle: a failed precondition check reports ErrPrecondition,
	// a failed uncompute check reports ErrUncompute.
	OpCheckZero
)

// CheckKind distinguishes the two ends of a scratch register's lifetime.
type CheckKind int

const (
	CheckPrecondition CheckKind = iota
	CheckUncompute
)

// Control gates an operation on the decoded value of another register. The
// control register must be disjoint from the operation's target qubit. Because
// both basis states of a target pair share identical control bits, predicate
// controls preserve unitarity regardless of the predicate's shape.
type Control struct {
	Reg  Register
	Pred func(value uint64) bool
}

// ControlEquals gates on the register decoding to exactly want.
func ControlEquals(reg Register, want uint64) Control {
	return Control{Reg: reg, Pred: func(v uint64) bool { return v == want }}
}

// ControlBit gates on a one-qubit register being set (want=true) or clear.
func ControlBit(reg Register, want bool) Control {
	return Control{Reg: reg, Pred: func(v uint64) bool { return (v == 1) == want }}
}

// Operation is a single primitive gate application: a unitary (or, for
// OpCheckZero, an assertion) plus its target and optional value-predicate
// controls.
type Operation struct {
	Kind     OpKind
	Target   int // qubit index, OpX and OpRY only
	Theta    float64
	Reg      Register // OpCheckZero only
	Check    CheckKind
	Controls []Control
}

// XGate builds a (controlled) Pauli-X on the target qubit.
func XGate(target int, controls ...Control) Operation {
	return Operation{Kind: OpX, Target: target, Controls: controls}
}

// RYGate builds a (controlled) Y-rotation on the target qubit.
func RYGate(target int, theta float64, controls ...Control) Operation {
	return Operation{Kind: OpRY, Target: target, Theta: theta, Controls: controls}
}

// PhaseFlip builds a phase flip over the subspace selected by the controls.
func PhaseFlip(controls ...Control) Operation {
	return Operation{Kind: OpPhaseFlip, Controls: controls}
}

// CheckZero builds an all-zero assertion over reg.
func CheckZero(reg Register, kind CheckKind) Operation {
	return Operation{Kind: OpCheckZero, Reg: reg, Check: kind}
}

// Inverse returns the algebraic inverse of the operation. X and phase flips
// are self-inverse, rotations negate their angle, and a zero check swaps its
// role: the precondition of a forward run is the uncompute obligation of the
// inverted run.
func (op Operation) Inverse() Operation {
	inv := op
	switch op.Kind {
	case OpX, OpPhaseFlip:
		// self-inverse
	case OpRY:
		inv.Theta = -op.Theta
	case OpCheckZero:
		if op.Check == CheckPrecondition {
			inv.Check = CheckUncompute
		} else {
			inv.Check = CheckPrecondition
		}
	}
	return inv
}
