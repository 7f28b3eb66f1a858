package arith

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/quantum"
)

// AffineForm is a two-variable affine function a*x1 + b*x2 + c.
type AffineForm struct {
	A, B, C float64
}

// Eval evaluates the form at the given point.
func (f AffineForm) Eval(x1, x2 float64) float64 {
	return f.A*x1 + f.B*x2 + f.C
}

// AffineMaxEstimator builds the circuit block that writes
// max(f1(x1,x2), f2(x1,x2)) into a fresh result register, with each form
// value rounded to the work format before the comparison. All intermediate
// registers are scratch: computed, consumed and uncomputed inside the block.
type AffineMaxEstimator struct {
	forms [2]AffineForm
	in    Format
	work  Format
	out   Format
	log   zerolog.Logger
}

// NewAffineMaxEstimator validates that every reachable input pair yields form
// values representable in the work format and a maximum representable in the
// output format. Validation enumerates the full input grid, so failures
// surface at construction rather than as saturated circuit values.
func NewAffineMaxEstimator(forms [2]AffineForm, in, work, out Format, log zerolog.Logger) (*AffineMaxEstimator, error) {
	for _, f := range []Format{in, work, out} {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	if 2*in.Width > 24 {
		return nil, fmt.Errorf("input grid 2x%d bits too wide to validate: %w", in.Width, ErrValidation)
	}
	m := &AffineMaxEstimator{
		forms: forms,
		in:    in,
		work:  work,
		out:   out,
		log:   log.With().Str("component", "affine_max").Logger(),
	}
	for r1 := uint64(0); r1 < 1<<in.Width; r1++ {
		for r2 := uint64(0); r2 < 1<<in.Width; r2++ {
			x1, x2 := in.Decode(r1), in.Decode(r2)
			var rounded [2]float64
			for i, f := range forms {
				raw, err := work.Encode(f.Eval(x1, x2))
				if err != nil {
					return nil, fmt.Errorf("form %d at (%v,%v): %w", i, x1, x2, err)
				}
				rounded[i] = work.Decode(raw)
			}
			if _, err := out.Encode(max(rounded[0], rounded[1])); err != nil {
				return nil, fmt.Errorf("maximum at (%v,%v): %w", x1, x2, err)
			}
		}
	}
	return m, nil
}

// OutputFormat returns the format of the result register.
func (m *AffineMaxEstimator) OutputFormat() Format {
	return m.out
}

// Compile allocates the result register, emits the estimator block and
// releases the scratch registers back to the allocator. The returned program
// leaves the result entangled with the inputs and every scratch register
// provably back at zero.
func (m *AffineMaxEstimator) Compile(alloc *quantum.Allocator, x1, x2 quantum.Register) (quantum.Register, quantum.Program, error) {
	if x1.Width() != m.in.Width || x2.Width() != m.in.Width {
		return quantum.Register{}, quantum.Program{}, fmt.Errorf(
			"input widths %d/%d, want %d: %w", x1.Width(), x2.Width(), m.in.Width, ErrValidation)
	}
	res := alloc.Alloc("max_out", m.out.Width)
	a1 := alloc.Alloc("affine_a", m.work.Width)
	a2 := alloc.Alloc("affine_b", m.work.Width)
	cmp := alloc.Alloc("cmp", 1)

	var prog quantum.Program
	err := prog.Scoped(a1, m.computeForm(m.forms[0], a1, x1, x2), func() error {
		return prog.Scoped(a2, m.computeForm(m.forms[1], a2, x1, x2), func() error {
			return prog.Scoped(cmp, m.compare(a1, a2, cmp), func() error {
				prog.Extend(m.selectMax(a1, a2, cmp, res))
				return nil
			})
		})
	})
	if err != nil {
		return quantum.Register{}, quantum.Program{}, err
	}
	alloc.Release(cmp)
	alloc.Release(a2)
	alloc.Release(a1)
	m.log.Debug().Int("ops", prog.Len()).Str("result", res.Name).Msg("estimator block compiled")
	return res, prog, nil
}

// Uncompute clears a result register previously produced by Compile, with
// gates controlled on the inputs alone. The clearing pass must not touch the
// estimator's scratch qubits: by the time an enclosing block unwinds, those
// indices may have been recycled into registers that are still live.
func (m *AffineMaxEstimator) Uncompute(x1, x2, res quantum.Register) (quantum.Program, error) {
	if x1.Width() != m.in.Width || x2.Width() != m.in.Width {
		return quantum.Program{}, fmt.Errorf(
			"input widths %d/%d, want %d: %w", x1.Width(), x2.Width(), m.in.Width, ErrValidation)
	}
	if res.Width() != m.out.Width {
		return quantum.Program{}, fmt.Errorf(
			"result width %d, want %d: %w", res.Width(), m.out.Width, ErrValidation)
	}
	joint := quantum.Concat("inputs", x1, x2)
	inW := m.in.Width
	var p quantum.Program
	for j := 0; j < res.Width(); j++ {
		bit := uint64(1) << j
		p.Append(quantum.XGate(res.Qubits[j], quantum.Control{Reg: joint, Pred: func(v uint64) bool {
			return m.resultRaw(v&(1<<inW-1), v>>inW)&bit != 0
		}}))
	}
	return p, nil
}

// resultRaw is the closed form of the whole estimator block: the output
// encoding of the larger rounded form value.
func (m *AffineMaxEstimator) resultRaw(r1, r2 uint64) uint64 {
	x1, x2 := m.in.Decode(r1), m.in.Decode(r2)
	best := math.Inf(-1)
	for _, f := range m.forms {
		best = math.Max(best, m.work.Decode(m.work.EncodeClamp(f.Eval(x1, x2))))
	}
	return m.out.EncodeClamp(best)
}

// computeForm writes the rounded form value into target, bit by bit. Each bit
// is a single X controlled on a predicate over the joint input register, so
// the block is trivially self-inverse and needs no carry chain.
func (m *AffineMaxEstimator) computeForm(form AffineForm, target, x1, x2 quantum.Register) quantum.Program {
	joint := quantum.Concat("inputs", x1, x2)
	inW := m.in.Width
	var p quantum.Program
	for j := 0; j < target.Width(); j++ {
		bit := uint64(1) << j
		p.Append(quantum.XGate(target.Qubits[j], quantum.Control{Reg: joint, Pred: func(v uint64) bool {
			v1 := m.in.Decode(v & (1<<inW - 1))
			v2 := m.in.Decode(v >> inW)
			return m.work.EncodeClamp(form.Eval(v1, v2))&bit != 0
		}}))
	}
	return p
}

// compare sets cmp when the second form value strictly exceeds the first.
func (m *AffineMaxEstimator) compare(a1, a2, cmp quantum.Register) quantum.Program {
	joint := quantum.Concat("operands", a1, a2)
	w := m.work.Width
	var p quantum.Program
	p.Append(quantum.XGate(cmp.Qubits[0], quantum.Control{Reg: joint, Pred: func(v uint64) bool {
		return m.work.Decode(v>>w) > m.work.Decode(v&(1<<w-1))
	}}))
	return p
}

// selectMax copies the winning operand into res, re-encoded in the output
// format, steered by the comparison bit.
func (m *AffineMaxEstimator) selectMax(a1, a2, cmp, res quantum.Register) quantum.Program {
	joint := quantum.Concat("selector", a1, a2, cmp)
	w := m.work.Width
	var p quantum.Program
	for j := 0; j < res.Width(); j++ {
		bit := uint64(1) << j
		p.Append(quantum.XGate(res.Qubits[j], quantum.Control{Reg: joint, Pred: func(v uint64) bool {
			d := m.work.Decode(v & (1<<w - 1))
			if v>>(2*w)&1 == 1 {
				d = m.work.Decode(v >> w & (1<<w - 1))
			}
			return m.out.EncodeClamp(d)&bit != 0
		}}))
	}
	return p
}
