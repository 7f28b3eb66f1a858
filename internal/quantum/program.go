package quantum

import (
	"errors"
	"fmt"
)

// ErrControlledCheck is returned when a program containing zero checks is
// wrapped with additional controls; checks are global assertions and have no
// meaningful controlled form.
var ErrControlledCheck = errors.New("cannot add controls to a zero check")

// Program is an ordered gate sequence: a circuit as a first-class value.
// Programs are built once and never mutated after composition, so they are
// safe for unsynchronized concurrent reads across parallel evaluations.
type Program struct {
	Ops []Operation
}

// Append adds operations to the end of the program.
func (p *Program) Append(ops ...Operation) {
	p.Ops = append(p.Ops, ops...)
}

// Extend appends all operations of q.
func (p *Program) Extend(q Program) {
	p.Ops = append(p.Ops, q.Ops...)
}

// Len returns the number of operations.
func (p Program) Len() int {
	return len(p.Ops)
}

// Inverse returns the literal algebraic inverse: the reversed operation
// sequence with each operation inverted. No re-derivation happens here; this
// is the only correct way to build SP^-1 for a reflection operator.
func (p Program) Inverse() Program {
	inv := Program{Ops: make([]Operation, 0, len(p.Ops))}
	for i := len(p.Ops) - 1; i >= 0; i-- {
		inv.Ops = append(inv.Ops, p.Ops[i].Inverse())
	}
	return inv
}

// Controlled returns a copy of the program with the given controls added to
// every operation, implementing "run this sub-circuit on a control subspace".
func (p Program) Controlled(controls ...Control) (Program, error) {
	out := Program{Ops: make([]Operation, 0, len(p.Ops))}
	for _, op := range p.Ops {
		if op.Kind == OpCheckZero {
			return Program{}, fmt.Errorf("%w: %s", ErrControlledCheck, op.Reg.Name)
		}
		c := op
		c.Controls = append(append([]Control{}, op.Controls...), controls...)
		out.Ops = append(out.Ops, c)
	}
	return out, nil
}

// Scoped emits a prepare/use/uncompute block for a scratch register:
//
//	check reg == 0, apply setup, run body, apply setup^-1, check reg == 0
//
// The unwinding half is emitted via defer, so it is present on every exit
// path even when body fails partway through building. The trailing check is
// what turns a broken uncompute into ErrUncompute at run time.
func (p *Program) Scoped(reg Register, setup Program, body func() error) error {
	p.Append(CheckZero(reg, CheckPrecondition))
	p.Extend(setup)
	defer func() {
		p.Extend(setup.Inverse())
		p.Append(CheckZero(reg, CheckUncompute))
	}()
	return body()
}
