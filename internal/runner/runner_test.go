package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxrdis/allen-interval-probabilities/internal/simulate"
)

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{PBorn: 0.5, PDie: 0.5, Trials: 10}, false},
		{"zero probabilities are range-valid", Params{PBorn: 0, PDie: 0, Trials: 1}, false},
		{"zero trials", Params{PBorn: 0.5, PDie: 0.5, Trials: 0}, true},
		{"negative trials", Params{PBorn: 0.5, PDie: 0.5, Trials: -5}, true},
		{"negative workers", Params{PBorn: 0.5, PDie: 0.5, Trials: 10, Workers: -1}, true},
		{"pBorn out of range", Params{PBorn: 1.5, PDie: 0.5, Trials: 10}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total, count int
		want         []int
	}{
		{10, 4, []int{3, 3, 2, 2}},
		{12, 4, []int{3, 3, 3, 3}},
		{7, 3, []int{3, 2, 2}},
		{5, 1, []int{5}},
		{3, 8, []int{1, 1, 1}},
		{1, 1, []int{1}},
	}

	for _, tc := range cases {
		got := partition(tc.total, tc.count)
		assert.Equal(t, tc.want, got, "partition(%d, %d)", tc.total, tc.count)

		sum := 0
		for _, size := range got {
			sum += size
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestRun_TotalEqualsTrials(t *testing.T) {
	t.Parallel()

	r := New(nil)
	for _, trials := range []int{1, 13, 250} {
		result, err := r.RunSequential(context.Background(), Params{
			PBorn: 0.4, PDie: 0.6, Trials: trials, Seed: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(trials), result.Tally.Total())
	}
}

func TestRun_SequentialEqualsParallelSeed42(t *testing.T) {
	t.Parallel()

	r := New(nil)
	params := Params{PBorn: 0.5, PDie: 0.5, Trials: 1000, Seed: 42}

	sequential, err := r.RunSequential(context.Background(), params)
	require.NoError(t, err)

	params.Workers = 4
	parallel, err := r.RunParallel(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, sequential.Tally.Counts(), parallel.Tally.Counts(),
		"category-by-category mismatch between sequential and 4-worker runs")
}

func TestRun_InvariantToWorkerCount(t *testing.T) {
	t.Parallel()

	r := New(nil)
	base := Params{PBorn: 0.3, PDie: 0.7, Trials: 500, Seed: 99, Workers: 1}

	reference, err := r.Run(context.Background(), base)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 5, 16} {
		p := base
		p.Workers = workers
		result, err := r.RunParallel(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, reference.Tally.Counts(), result.Tally.Counts(),
			"workers=%d diverged", workers)
	}
}

func TestRun_Reproducible(t *testing.T) {
	t.Parallel()

	r := New(nil)
	params := Params{PBorn: 0.2, PDie: 0.8, Trials: 300, Seed: 5, Workers: 4}

	first, err := r.Run(context.Background(), params)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.Tally.Counts(), second.Tally.Counts())
	assert.NotEqual(t, first.ID, second.ID, "each run gets its own identity")
}

func TestRun_NonTerminatingFailsWholeRun(t *testing.T) {
	t.Parallel()

	r := New(nil)
	params := Params{PBorn: 0, PDie: 0.5, Trials: 8, Workers: 4, TickBudget: 500}

	_, err := r.RunParallel(context.Background(), params)
	assert.ErrorIs(t, err, simulate.ErrNonTerminating)

	_, err = r.RunSequential(context.Background(), Params{
		PBorn: 0, PDie: 0.5, Trials: 1, TickBudget: 500,
	})
	assert.ErrorIs(t, err, simulate.ErrNonTerminating)
}

func TestRun_ContextCancellation(t *testing.T) {
	t.Parallel()

	r := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunSequential(ctx, Params{PBorn: 0.5, PDie: 0.5, Trials: 100, Seed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_RecordAndRecent(t *testing.T) {
	t.Parallel()

	r := New(nil)
	reg := NewRegistry(2)

	for seed := int64(1); seed <= 3; seed++ {
		result, err := r.RunSequential(context.Background(), Params{
			PBorn: 0.5, PDie: 0.5, Trials: 10, Seed: seed,
		})
		require.NoError(t, err)
		reg.Record(result)
	}

	recent := reg.Recent()
	require.Len(t, recent, 2, "registry capacity enforced")
	assert.Equal(t, int64(3), recent[0].Seed, "newest first")
	assert.Equal(t, int64(2), recent[1].Seed)
	assert.Equal(t, 2, reg.Len())
}
