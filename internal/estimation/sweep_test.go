package estimation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type curveEvaluator struct {
	failAt int // depth that errors, -1 for none
}

func (c curveEvaluator) DepthProbability(ctx context.Context, depth int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth == c.failAt {
		return 0, errors.New("evaluation failed")
	}
	return float64(depth) / 10, nil
}

func TestSweepReturnsPointsInDepthOrder(t *testing.T) {
	points, err := Sweep(context.Background(), curveEvaluator{failAt: -1}, 7, 3, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, points, 8)
	for i, p := range points {
		assert.Equal(t, i, p.Depth)
		assert.InDelta(t, float64(i)/10, p.Probability, 1e-12)
	}
}

func TestSweepSingleWorker(t *testing.T) {
	points, err := Sweep(context.Background(), curveEvaluator{failAt: -1}, 3, 1, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, points, 4)
}

func TestSweepPropagatesFirstError(t *testing.T) {
	_, err := Sweep(context.Background(), curveEvaluator{failAt: 2}, 7, 3, zerolog.Nop())
	assert.Error(t, err)
}

func TestSweepStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sweep(ctx, curveEvaluator{failAt: -1}, 100, 2, zerolog.Nop())
	assert.Error(t, err)
}

func TestSweepRejectsNegativeDepth(t *testing.T) {
	_, err := Sweep(context.Background(), curveEvaluator{failAt: -1}, -1, 1, zerolog.Nop())
	assert.Error(t, err)
}

func TestStateVectorBytes(t *testing.T) {
	assert.Equal(t, uint64(16), StateVectorBytes(0))
	assert.Equal(t, uint64(32), StateVectorBytes(1))
	assert.Equal(t, uint64(8*1024*1024), StateVectorBytes(19))
}

func TestWorkerBudgetIsAlwaysPositive(t *testing.T) {
	assert.GreaterOrEqual(t, WorkerBudget(19, 0, zerolog.Nop()), 1)
	assert.GreaterOrEqual(t, WorkerBudget(10, 4, zerolog.Nop()), 1)
	// Tiny vectors never get capped below the request.
	assert.Equal(t, 2, WorkerBudget(1, 2, zerolog.Nop()))
}
