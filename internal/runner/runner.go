package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/vxrdis/allen-interval-probabilities/internal/metrics"
	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
	"github.com/vxrdis/allen-interval-probabilities/internal/simulate"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
	"github.com/vxrdis/allen-interval-probabilities/internal/tracing"
)

// ErrInvalidParameter mirrors simulate.ErrInvalidParameter for run-level
// inputs (trial, worker and batch counts).
var ErrInvalidParameter = simulate.ErrInvalidParameter

const (
	modeSequential = "sequential"
	modeParallel   = "parallel"
)

// Params configures one full simulation run.
type Params struct {
	PBorn      float64 `json:"p_born"`
	PDie       float64 `json:"p_die"`
	Trials     int     `json:"trials"`
	Seed       int64   `json:"seed"`
	Workers    int     `json:"workers"`     // 0 selects runtime.NumCPU()
	TickBudget int     `json:"tick_budget"` // 0 selects simulate.DefaultTickBudget
}

func (p Params) Validate() error {
	sim := simulate.Params{PBorn: p.PBorn, PDie: p.PDie, TickBudget: p.TickBudget}
	if err := sim.Validate(); err != nil {
		return err
	}
	if p.Trials < 1 {
		return fmt.Errorf("%w: trials=%d must be >= 1", ErrInvalidParameter, p.Trials)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers=%d must be >= 0", ErrInvalidParameter, p.Workers)
	}
	return nil
}

func (p Params) simParams() simulate.Params {
	return simulate.Params{PBorn: p.PBorn, PDie: p.PDie, TickBudget: p.TickBudget}
}

func (p Params) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Result is one completed run: the merged tally plus timing metadata.
type Result struct {
	ID      uuid.UUID     `json:"id"`
	Params  Params        `json:"params"`
	Tally   *tally.Tally  `json:"-"`
	Mode    string        `json:"mode"`
	Elapsed time.Duration `json:"elapsed"`
}

// Runner executes simulation runs. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger.With("component", "runner")}
}

// Run executes p.Trials trials, in parallel when more than one worker is
// requested. Seeding is per trial index (see simulate.TrialRNG), so for fixed
// (seed, trials) the result is identical whichever path is taken.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.workerCount() > 1 && p.Trials > 1 {
		return r.runParallel(ctx, p)
	}
	return r.runSequential(ctx, p)
}

// RunSequential executes all trials on the calling goroutine.
func (r *Runner) RunSequential(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return r.runSequential(ctx, p)
}

func (r *Runner) runSequential(ctx context.Context, p Params) (*Result, error) {
	ctx, span := tracing.Tracer("runner").Start(ctx, "runner.sequential",
		tracing.WithRunAttributes(p.PBorn, p.PDie, p.Trials, p.Seed)...)
	defer span.End()

	start := time.Now()
	t, err := r.runRange(ctx, p, 0, p.Trials)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunErrors.WithLabelValues(modeSequential).Inc()
		return nil, err
	}

	return r.finish(p, t, modeSequential, start), nil
}

// RunParallel partitions the trial budget across workers and merges the
// partial tallies. Any partition failure cancels the siblings and fails the
// whole run; no partial tally is ever returned.
func (r *Runner) RunParallel(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return r.runParallel(ctx, p)
}

func (r *Runner) runParallel(ctx context.Context, p Params) (*Result, error) {
	workers := p.workerCount()
	if workers > p.Trials {
		workers = p.Trials
	}

	ctx, span := tracing.Tracer("runner").Start(ctx, "runner.parallel",
		tracing.WithRunAttributes(p.PBorn, p.PDie, p.Trials, p.Seed)...)
	defer span.End()
	span.SetAttributes(attribute.Int("workers", workers))

	start := time.Now()
	sizes := partition(p.Trials, workers)
	partials := make([]*tally.Tally, len(sizes))

	g, gCtx := errgroup.WithContext(ctx)
	offset := 0
	for i, size := range sizes {
		i, lo, hi := i, offset, offset+size
		offset += size
		g.Go(func() error {
			part, err := r.runRange(gCtx, p, lo, hi)
			if err != nil {
				return fmt.Errorf("partition %d [%d,%d): %w", i, lo, hi, err)
			}
			partials[i] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RunErrors.WithLabelValues(modeParallel).Inc()
		return nil, err
	}

	merged := tally.New()
	for _, part := range partials {
		merged = merged.Merge(part)
	}

	return r.finish(p, merged, modeParallel, start), nil
}

func (r *Runner) finish(p Params, t *tally.Tally, mode string, start time.Time) *Result {
	elapsed := time.Since(start)
	metrics.RunsTotal.WithLabelValues(mode).Inc()
	metrics.RunDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	metrics.TrialsSimulated.WithLabelValues(mode).Add(float64(p.Trials))

	r.logger.Info("run completed",
		"mode", mode,
		"p_born", p.PBorn,
		"p_die", p.PDie,
		"trials", p.Trials,
		"seed", p.Seed,
		"elapsed", elapsed,
	)

	return &Result{
		ID:      uuid.New(),
		Params:  p,
		Tally:   t,
		Mode:    mode,
		Elapsed: elapsed,
	}
}

// runRange simulates and classifies trials [lo, hi) into a fresh tally. Each
// trial owns its deterministic random stream, so ranges are independent of
// how the total budget was partitioned.
func (r *Runner) runRange(ctx context.Context, p Params, lo, hi int) (*tally.Tally, error) {
	sim := p.simParams()
	t := tally.New()

	for trial := lo; trial < hi; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hist, err := simulate.RunTrial(simulate.TrialRNG(p.Seed, trial), sim)
		if err != nil {
			if errors.Is(err, simulate.ErrNonTerminating) {
				metrics.NonTerminatingTrials.Inc()
			}
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		code, err := relation.Classify(hist)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		t.Add(code)
	}
	return t, nil
}

// partition splits total into count near-equal sizes, remainder to the first
// entries; the sizes always sum to total exactly.
func partition(total, count int) []int {
	if count < 1 {
		count = 1
	}
	if count > total {
		count = total
	}
	base := total / count
	rem := total % count

	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}
