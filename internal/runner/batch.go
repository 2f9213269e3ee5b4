package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/vxrdis/allen-interval-probabilities/internal/metrics"
	"github.com/vxrdis/allen-interval-probabilities/internal/simulate"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
)

// BatchParams repeats one run configuration for variance and throughput
// studies.
type BatchParams struct {
	Params
	Batches int `json:"batches"`
}

func (p BatchParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if p.Batches < 1 {
		return fmt.Errorf("%w: batches=%d must be >= 1", ErrInvalidParameter, p.Batches)
	}
	return nil
}

// ProgressFunc receives per-batch completion notifications.
type ProgressFunc func(batch, total int, result *Result)

// BatchReport is the outcome of a full batch sequence.
type BatchReport struct {
	Runs      []*Result
	Aggregate *tally.Tally
	Elapsed   time.Duration
}

// RunBatches executes the same (pBorn, pDie, trials) configuration
// p.Batches times. Each batch derives its own seed from the master seed so
// batches are independent yet reproducible; batch 0 uses the master seed
// itself so a single batch equals a plain run. A batch failure aborts the
// sequence.
func (r *Runner) RunBatches(ctx context.Context, p BatchParams, progress ProgressFunc) (*BatchReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runs := make([]*Result, 0, p.Batches)
	aggregate := tally.New()

	for batch := 0; batch < p.Batches; batch++ {
		batchParams := p.Params
		batchParams.Seed = simulate.BatchSeed(p.Seed, batch)

		batchStart := time.Now()
		result, err := r.Run(ctx, batchParams)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", batch+1, p.Batches, err)
		}

		metrics.BatchesCompleted.Inc()
		metrics.BatchDuration.Observe(time.Since(batchStart).Seconds())

		runs = append(runs, result)
		aggregate = aggregate.Merge(result.Tally)

		r.logger.Info("batch completed",
			"batch", batch+1,
			"batches", p.Batches,
			"seed", batchParams.Seed,
			"elapsed", result.Elapsed,
		)
		if progress != nil {
			progress(batch+1, p.Batches, result)
		}
	}

	return &BatchReport{
		Runs:      runs,
		Aggregate: aggregate,
		Elapsed:   time.Since(start),
	}, nil
}
