// Command qpricer prices a two-asset rainbow option on a simulated quantum
// backend: it builds the pricing circuit, amplifies it, and estimates the
// payoff amplitude from measurement counts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricer/internal/classical"
	"github.com/aristath/qpricer/internal/config"
	"github.com/aristath/qpricer/internal/estimation"
	"github.com/aristath/qpricer/internal/payoff"
	"github.com/aristath/qpricer/internal/rainbow"
	"github.com/aristath/qpricer/pkg/logger"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "estimate":
		err = runEstimate(ctx, cfg, log, args)
	case "sweep":
		err = runSweep(ctx, cfg, log, args)
	case "validate":
		err = runValidate(ctx, log)
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: qpricer <command> [flags]

commands:
  estimate   run amplitude estimation and report the payoff amplitude
  sweep      evaluate the exact amplification curve across depths
  validate   cross-check the circuit against the classical expectation
  version    print the build version
`)
}

func runEstimate(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	fs.Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "target half-width of the amplitude interval")
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "confidence failure probability")
	fs.IntVar(&cfg.Shots, "shots", cfg.Shots, "measurements per round")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "amplification depth cap")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "sampling seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	builder, err := rainbow.NewBuilder(payoff.Default(), log)
	if err != nil {
		return err
	}
	eval := rainbow.NewEvaluator(builder, log)
	sampler := estimation.WithRetry(
		rainbow.NewShotSampler(eval, cfg.Seed, log),
		cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay, log,
	)
	driver, err := estimation.NewDriver(cfg.Estimation(), sampler, log)
	if err != nil {
		return err
	}
	res, err := driver.Estimate(ctx)
	if err != nil {
		return err
	}
	expected, err := classical.ExpectedIndicator(builder.Calibration(), log)
	if err != nil {
		return err
	}
	return emit(struct {
		*estimation.Result
		Classical float64 `json:"classical"`
	}{res, expected})
}

func runSweep(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	maxDepth := 8
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	fs.IntVar(&maxDepth, "max-depth", maxDepth, "deepest amplification to evaluate")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel evaluations, 0 for automatic")
	if err := fs.Parse(args); err != nil {
		return err
	}

	builder, err := rainbow.NewBuilder(payoff.Default(), log)
	if err != nil {
		return err
	}
	eval := rainbow.NewEvaluator(builder, log)
	workers := estimation.WorkerBudget(builder.Qubits(), cfg.Workers, log)
	points, err := estimation.Sweep(ctx, eval, maxDepth, workers, log)
	if err != nil {
		return err
	}
	return emit(struct {
		Qubits int                     `json:"qubits"`
		Points []estimation.CurvePoint `json:"points"`
	}{builder.Qubits(), points})
}

func runValidate(ctx context.Context, log zerolog.Logger) error {
	builder, err := rainbow.NewBuilder(payoff.Default(), log)
	if err != nil {
		return err
	}
	eval := rainbow.NewEvaluator(builder, log)
	exact, err := eval.DepthProbability(ctx, 0)
	if err != nil {
		return err
	}
	expected, err := classical.ExpectedIndicator(builder.Calibration(), log)
	if err != nil {
		return err
	}
	diff := math.Abs(exact - expected)
	if err := emit(struct {
		Qubits    int     `json:"qubits"`
		Ops       int     `json:"ops"`
		Circuit   float64 `json:"circuit"`
		Classical float64 `json:"classical"`
		Diff      float64 `json:"diff"`
	}{builder.Qubits(), builder.Program().Len(), exact, expected, diff}); err != nil {
		return err
	}
	if diff > 1e-6 {
		return fmt.Errorf("circuit diverges from classical expectation by %.3e", diff)
	}
	return nil
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
