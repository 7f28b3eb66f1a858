package rainbow

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qpricer/internal/classical"
	"github.com/aristath/qpricer/internal/payoff"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(payoff.Default(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestBuilderLayout(t *testing.T) {
	b := newTestBuilder(t)
	layout := b.Layout()

	assert.Equal(t, 2, layout.X1.Width())
	assert.Equal(t, 2, layout.X2.Width())
	assert.Equal(t, 5, layout.Reference.Width())
	assert.Equal(t, 1, layout.Indicator.Width())
	// Scratch registers are recycled, so the engine width is the peak of
	// live registers, not the sum of everything ever allocated.
	assert.Equal(t, 19, layout.Qubits)
	assert.Equal(t, layout.Qubits, b.Qubits())
}

func TestBuilderRejectsBrokenCalibration(t *testing.T) {
	cal := payoff.Default()
	cal.AssetTable = []float64{1, 1, 1, 1}
	_, err := NewBuilder(cal, zerolog.Nop())
	assert.Error(t, err)
}

func TestPreparationMatchesClassicalExpectation(t *testing.T) {
	b := newTestBuilder(t)
	eval := NewEvaluator(b, zerolog.Nop())

	got, err := eval.DepthProbability(context.Background(), 0)
	require.NoError(t, err)

	want, err := classical.ExpectedIndicator(b.Calibration(), zerolog.Nop())
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
	assert.InDelta(t, 0.9104107974472676, got, 1e-9)
}

func TestPreparationAssetMarginals(t *testing.T) {
	b := newTestBuilder(t)
	eval := NewEvaluator(b, zerolog.Nop())
	c, err := eval.Build(0)
	require.NoError(t, err)
	eng, err := eval.Run(context.Background(), c)
	require.NoError(t, err)

	layout := b.Layout()
	for i, want := range b.Calibration().AssetTable {
		assert.InDelta(t, want, eng.Probabilities(layout.X1)[i], 1e-9, "x1 value %d", i)
		assert.InDelta(t, want, eng.Probabilities(layout.X2)[i], 1e-9, "x2 value %d", i)
	}
}

func TestPreparationInverseReturnsToGround(t *testing.T) {
	b := newTestBuilder(t)
	eval := NewEvaluator(b, zerolog.Nop())
	c, err := eval.Build(0)
	require.NoError(t, err)
	eng, err := eval.Run(context.Background(), c)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background(), b.Program().Inverse()))
	assert.InDelta(t, 1.0, eng.BasisProbability(0), 1e-9)
}

func TestAmplifiedCircuitFollowsSineLaw(t *testing.T) {
	b := newTestBuilder(t)
	eval := NewEvaluator(b, zerolog.Nop())

	p0, err := eval.DepthProbability(context.Background(), 0)
	require.NoError(t, err)
	theta := math.Asin(math.Sqrt(p0))

	for depth := 1; depth <= 3; depth++ {
		got, err := eval.DepthProbability(context.Background(), depth)
		require.NoError(t, err)
		want := math.Pow(math.Sin(float64(2*depth+1)*theta), 2)
		assert.InDelta(t, want, got, 1e-9, "depth %d", depth)
	}
}
