package rainbow

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/quantum"
)

// Counts is the outcome of repeated indicator measurements on one circuit.
type Counts struct {
	Shots int
	Ones  int
}

// Evaluator runs amplification circuits on fresh engines. It holds no
// mutable state of its own, so a single evaluator may serve concurrent
// callers; every Run gets its own state vector.
type Evaluator struct {
	amp *GroverAmplifier
	log zerolog.Logger
}

// NewEvaluator builds an evaluator over a state preparer.
func NewEvaluator(prep StatePreparer, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		amp: NewGroverAmplifier(prep, log),
		log: log.With().Str("component", "evaluator").Logger(),
	}
}

// Build composes the circuit at the given amplification depth.
func (e *Evaluator) Build(depth int) (*Circuit, error) {
	return e.amp.Build(depth)
}

// Run executes the circuit on a fresh engine and returns it for inspection.
func (e *Evaluator) Run(ctx context.Context, c *Circuit) (*quantum.Engine, error) {
	eng := quantum.NewEngine(c.Qubits, e.log)
	if err := eng.Run(ctx, c.Program); err != nil {
		return nil, err
	}
	return eng, nil
}

// IndicatorProbability returns the exact indicator one-probability after
// running the circuit.
func (e *Evaluator) IndicatorProbability(ctx context.Context, c *Circuit) (float64, error) {
	eng, err := e.Run(ctx, c)
	if err != nil {
		return 0, err
	}
	return eng.Probability(c.Indicator, func(v uint64) bool { return v == 1 }), nil
}

// DepthProbability builds and runs the circuit at the given depth and
// returns the exact indicator one-probability.
func (e *Evaluator) DepthProbability(ctx context.Context, depth int) (float64, error) {
	c, err := e.Build(depth)
	if err != nil {
		return 0, err
	}
	return e.IndicatorProbability(ctx, c)
}

// Measure samples the indicator the given number of shots.
func (e *Evaluator) Measure(ctx context.Context, c *Circuit, shots int, rng *rand.Rand) (Counts, error) {
	eng, err := e.Run(ctx, c)
	if err != nil {
		return Counts{}, err
	}
	ones := eng.SampleBit(c.Indicator, shots, rng)
	return Counts{Shots: shots, Ones: ones}, nil
}

// ShotSampler adapts the evaluator to the estimation driver's sampling
// interface. Composed circuits are cached per depth; the shared random
// source is guarded by the mutex because callers may retry or parallelize.
type ShotSampler struct {
	eval *Evaluator
	log  zerolog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	cache map[int]*Circuit
}

// NewShotSampler builds a sampler with a deterministic seed.
func NewShotSampler(eval *Evaluator, seed int64, log zerolog.Logger) *ShotSampler {
	return &ShotSampler{
		eval:  eval,
		log:   log.With().Str("component", "sampler").Logger(),
		rng:   rand.New(rand.NewSource(seed)),
		cache: make(map[int]*Circuit),
	}
}

// Sample measures the indicator at the given amplification depth and returns
// the number of one outcomes.
func (s *ShotSampler) Sample(ctx context.Context, depth, shots int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[depth]
	if !ok {
		var err error
		if c, err = s.eval.Build(depth); err != nil {
			return 0, err
		}
		s.cache[depth] = c
	}
	counts, err := s.eval.Measure(ctx, c, shots, s.rng)
	if err != nil {
		return 0, err
	}
	s.log.Debug().Int("depth", depth).Int("shots", shots).Int("ones", counts.Ones).Msg("sampled")
	return counts.Ones, nil
}
