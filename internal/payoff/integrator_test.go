package payoff

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qpricer/internal/arith"
	"github.com/aristath/qpricer/internal/quantum"
)

var basketFmt = arith.Format{Width: 5, FracBits: 1, Signed: true}

func encodeBasis(p *quantum.Program, reg quantum.Register, raw uint64) {
	for j, q := range reg.Qubits {
		if raw>>j&1 == 1 {
			p.Append(quantum.XGate(q))
		}
	}
}

func TestReferenceTableIsNormalizedGeometric(t *testing.T) {
	integ, err := NewPayoffIntegrator(basketFmt, 5, 0.1, zerolog.Nop())
	require.NoError(t, err)

	table := integ.ReferenceTable()
	require.Len(t, table, 32)
	assert.InDelta(t, 1.0, floats.Sum(table), 1e-12)
	for r := 1; r < len(table); r++ {
		assert.InDelta(t, math.Exp(-0.1), table[r]/table[r-1], 1e-12)
	}
}

func TestCDFIsMonotoneAndComplete(t *testing.T) {
	integ, err := NewPayoffIntegrator(basketFmt, 5, 0.1, zerolog.Nop())
	require.NoError(t, err)

	prev := 0.0
	for u := uint64(0); u < 32; u++ {
		cur := integ.CDF(u)
		assert.Greater(t, cur, prev)
		prev = cur
	}
	assert.InDelta(t, 1.0, integ.CDF(31), 1e-12)
	assert.InDelta(t, 1.0, integ.CDF(100), 1e-12)
}

func TestIntegratorEncodesCDFOnIndicator(t *testing.T) {
	integ, err := NewPayoffIntegrator(basketFmt, 5, 0.1, zerolog.Nop())
	require.NoError(t, err)

	signBit := uint64(1) << (basketFmt.Width - 1)
	for raw := uint64(0); raw < 1<<basketFmt.Width; raw++ {
		alloc := quantum.NewAllocator()
		x := alloc.Alloc("basket", basketFmt.Width)
		ref := alloc.Alloc("reference", 5)
		ind := alloc.Alloc("indicator", 1)

		var prog quantum.Program
		encodeBasis(&prog, x, raw)
		block, err := integ.Compile(x, ref, ind)
		require.NoError(t, err)
		prog.Extend(block)

		e := quantum.NewEngine(alloc.HighWater(), zerolog.Nop())
		require.NoError(t, e.Run(context.Background(), prog))

		want := integ.CDF(raw ^ signBit)
		got := e.Probability(ind, func(v uint64) bool { return v == 1 })
		assert.InDelta(t, want, got, 1e-9, "basket %v", basketFmt.Decode(raw))

		// The sign flip around the comparison must leave the operand intact.
		assert.InDelta(t, 1.0, e.Probabilities(x)[raw], 1e-12)
	}
}

func TestIntegratorControlsGateWholeBlock(t *testing.T) {
	integ, err := NewPayoffIntegrator(basketFmt, 5, 0.1, zerolog.Nop())
	require.NoError(t, err)

	alloc := quantum.NewAllocator()
	x := alloc.Alloc("basket", basketFmt.Width)
	ref := alloc.Alloc("reference", 5)
	ind := alloc.Alloc("indicator", 1)
	gate := alloc.Alloc("gate", 1)

	var prog quantum.Program
	encodeBasis(&prog, x, 0b00111)
	block, err := integ.Compile(x, ref, ind, quantum.ControlBit(gate, true))
	require.NoError(t, err)
	prog.Extend(block)

	e := quantum.NewEngine(alloc.HighWater(), zerolog.Nop())
	require.NoError(t, e.Run(context.Background(), prog))

	// Gate clear: the reference stays unprepared and the indicator dark.
	assert.InDelta(t, 1.0, e.Probabilities(ref)[0], 1e-12)
	assert.InDelta(t, 0.0, e.Probability(ind, func(v uint64) bool { return v == 1 }), 1e-12)
}

func TestNewPayoffIntegratorValidates(t *testing.T) {
	tests := []struct {
		name     string
		format   arith.Format
		refWidth int
		lambda   float64
	}{
		{"width mismatch", basketFmt, 4, 0.1},
		{"zero decay", basketFmt, 5, 0},
		{"negative decay", basketFmt, 5, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayoffIntegrator(tt.format, tt.refWidth, tt.lambda, zerolog.Nop())
			assert.ErrorIs(t, err, arith.ErrValidation)
		})
	}
}
