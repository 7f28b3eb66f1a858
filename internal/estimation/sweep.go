package estimation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// CurvePoint is one exact amplification curve sample.
type CurvePoint struct {
	Depth       int     `json:"depth"`
	Probability float64 `json:"probability"`
}

// ProbabilityEvaluator computes the exact indicator one-probability at a
// given amplification depth. Implementations must be safe for concurrent
// calls; each sweep worker evaluates on its own state vector.
type ProbabilityEvaluator interface {
	DepthProbability(ctx context.Context, depth int) (float64, error)
}

// Sweep evaluates depths 0..maxDepth across a worker pool and returns the
// points in depth order. The first evaluation error cancels the remaining
// work and is returned.
func Sweep(ctx context.Context, eval ProbabilityEvaluator, maxDepth, workers int, log zerolog.Logger) ([]CurvePoint, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth %d negative", maxDepth)
	}
	if workers < 1 {
		workers = 1
	}
	slog := log.With().Str("component", "sweep").Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		depth int
		prob  float64
		err   error
	}
	jobs := make(chan int)
	results := make(chan outcome, maxDepth+1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for depth := range jobs {
				prob, err := eval.DepthProbability(ctx, depth)
				results <- outcome{depth: depth, prob: prob, err: err}
				if err != nil {
					cancel()
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for depth := 0; depth <= maxDepth; depth++ {
			select {
			case jobs <- depth:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	points := make([]CurvePoint, maxDepth+1)
	seen := 0
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("depth %d: %w", r.depth, r.err)
			}
			continue
		}
		points[r.depth] = CurvePoint{Depth: r.depth, Probability: r.prob}
		seen++
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug().Int("points", seen).Int("workers", workers).Msg("sweep complete")
	return points, nil
}
