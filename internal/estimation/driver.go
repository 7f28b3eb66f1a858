// Package estimation implements iterative amplitude estimation: an adaptive
// measurement loop that narrows a confidence interval on the indicator
// amplitude using amplified circuits of growing depth.
package estimation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrDidNotConverge reports that the round budget ran out before the
	// confidence interval shrank below the target width.
	ErrDidNotConverge = errors.New("estimation did not converge")
	// ErrExecution reports a circuit evaluation failure that exhausted its
	// retries. Partial round statistics from failed evaluations are
	// discarded, never mixed into the interval.
	ErrExecution = errors.New("circuit execution failed")
)

// Sampler produces indicator measurement counts at a given amplification
// depth. Implementations must be safe for repeated sequential calls; the
// driver never calls Sample concurrently.
type Sampler interface {
	Sample(ctx context.Context, depth, shots int) (int, error)
}

// Config holds the estimation parameters.
type Config struct {
	// Epsilon is the target half-width of the final amplitude interval.
	Epsilon float64
	// Alpha is the overall failure probability, split evenly across rounds.
	Alpha float64
	// Shots is the number of measurements per round.
	Shots int
	// MaxDepth caps the amplification depth per circuit.
	MaxDepth int
	// MaxRounds caps the measurement rounds before giving up.
	MaxRounds int
}

// Validate rejects parameter values for which the loop is meaningless.
func (c Config) Validate() error {
	if c.Epsilon <= 0 || c.Epsilon > 0.5 {
		return fmt.Errorf("epsilon %v outside (0,0.5]", c.Epsilon)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha %v outside (0,1)", c.Alpha)
	}
	if c.Shots < 1 {
		return fmt.Errorf("shots %d must be positive", c.Shots)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth %d negative", c.MaxDepth)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("max rounds %d must be positive", c.MaxRounds)
	}
	return nil
}

// RoundStat records one measurement round for the result's audit trail.
type RoundStat struct {
	Round     int     `json:"round"`
	Depth     int     `json:"depth"`
	Shots     int     `json:"shots"`
	Ones      int     `json:"ones"`
	ThetaLow  float64 `json:"theta_low"`
	ThetaHigh float64 `json:"theta_high"`
}

// Result is a completed estimation: the amplitude interval, its midpoint and
// the per-round history.
type Result struct {
	ID          uuid.UUID   `json:"id"`
	Estimate    float64     `json:"estimate"`
	Low         float64     `json:"low"`
	High        float64     `json:"high"`
	OracleCalls int         `json:"oracle_calls"`
	Rounds      []RoundStat `json:"rounds"`
}

// Driver runs the estimation loop against a sampler.
type Driver struct {
	cfg     Config
	sampler Sampler
	log     zerolog.Logger
}

// NewDriver validates the configuration and builds a driver.
func NewDriver(cfg Config, sampler Sampler, log zerolog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		cfg:     cfg,
		sampler: sampler,
		log:     log.With().Str("component", "estimation").Logger(),
	}, nil
}

// Estimate runs the adaptive loop. It maintains a confidence interval on the
// preparation angle theta in [0, pi/2]; each round it picks the deepest
// amplification for which the amplified angle still falls inside a single
// half-circle, measures, tightens the interval with a Clopper-Pearson bound
// at the per-round confidence level, and stops once the induced amplitude
// interval is at most 2*epsilon wide.
func (d *Driver) Estimate(ctx context.Context) (*Result, error) {
	thetaLo, thetaHi := 0.0, math.Pi/2
	alphaRound := d.cfg.Alpha / float64(d.cfg.MaxRounds)
	depth := 0
	oracleCalls := 0
	rounds := make([]RoundStat, 0, d.cfg.MaxRounds)

	for round := 1; round <= d.cfg.MaxRounds; round++ {
		depth = d.nextDepth(depth, thetaLo, thetaHi)
		scale := 4*depth + 2
		half := int(math.Floor(float64(scale) * thetaLo / math.Pi))

		ones, err := d.sampler.Sample(ctx, depth, d.cfg.Shots)
		if err != nil {
			return nil, fmt.Errorf("round %d at depth %d: %w", round, depth, err)
		}
		oracleCalls += d.cfg.Shots * (2*depth + 1)

		pLo, pHi := clopperPearson(ones, d.cfg.Shots, alphaRound)
		lo, hi := invertAmplified(pLo, pHi, scale, half)
		if hi < thetaLo || lo > thetaHi {
			// A disjoint round interval means this round's confidence bound
			// failed; keep the accumulated bounds rather than poisoning them.
			d.log.Warn().Int("round", round).Int("depth", depth).
				Float64("lo", lo).Float64("hi", hi).
				Msg("round interval disjoint from accumulated bounds, discarding")
		} else {
			thetaLo = math.Max(thetaLo, lo)
			thetaHi = math.Min(thetaHi, hi)
		}

		rounds = append(rounds, RoundStat{
			Round: round, Depth: depth, Shots: d.cfg.Shots, Ones: ones,
			ThetaLow: thetaLo, ThetaHigh: thetaHi,
		})

		aLo := math.Pow(math.Sin(thetaLo), 2)
		aHi := math.Pow(math.Sin(thetaHi), 2)
		d.log.Debug().Int("round", round).Int("depth", depth).Int("ones", ones).
			Float64("a_low", aLo).Float64("a_high", aHi).Msg("round complete")
		if aHi-aLo <= 2*d.cfg.Epsilon {
			res := &Result{
				ID:          uuid.New(),
				Estimate:    (aLo + aHi) / 2,
				Low:         aLo,
				High:        aHi,
				OracleCalls: oracleCalls,
				Rounds:      rounds,
			}
			d.log.Info().Str("id", res.ID.String()).Float64("estimate", res.Estimate).
				Int("rounds", round).Int("oracle_calls", oracleCalls).Msg("converged")
			return res, nil
		}
	}
	aLo := math.Pow(math.Sin(thetaLo), 2)
	aHi := math.Pow(math.Sin(thetaHi), 2)
	return nil, fmt.Errorf("interval width %.3e after %d rounds: %w", aHi-aLo, d.cfg.MaxRounds, ErrDidNotConverge)
}

// nextDepth returns the deepest amplification, at least the previous one,
// for which the current angle interval scaled by 4k+2 stays within one
// half-circle so the amplified probability is invertible. Depth zero always
// qualifies, and shrinking bounds never invalidate the previous depth.
func (d *Driver) nextDepth(prev int, thetaLo, thetaHi float64) int {
	for k := d.cfg.MaxDepth; k > prev; k-- {
		scale := float64(4*k + 2)
		if math.Floor(scale*thetaLo/math.Pi) == math.Floor(scale*thetaHi/math.Pi) {
			return k
		}
	}
	return prev
}
