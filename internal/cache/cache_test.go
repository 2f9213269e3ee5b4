package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
	"github.com/vxrdis/allen-interval-probabilities/internal/store"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
)

func testKey() Key {
	return Key{PBorn: 0.5, PDie: 0.5, Trials: 100, Seed: 42}
}

func constTally(codes ...relation.Code) ComputeFunc {
	return func(context.Context) (*tally.Tally, error) {
		t := tally.New()
		for _, c := range codes {
			t.Add(c)
		}
		return t, nil
	}
}

func TestCache_ComputeOncePerKey(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	var calls atomic.Int64
	fn := func(ctx context.Context) (*tally.Tally, error) {
		calls.Add(1)
		return constTally(relation.Before)(ctx)
	}

	first, err := c.GetOrCompute(context.Background(), testKey(), fn, false)
	require.NoError(t, err)

	second, err := c.GetOrCompute(context.Background(), testKey(), fn, false)
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, first.ID, second.ID)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-12)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_SecondCallDoesNotIncreaseMisses(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	_, err := c.GetOrCompute(context.Background(), testKey(), constTally(relation.Equals), false)
	require.NoError(t, err)
	before := c.Stats().Misses

	_, err = c.GetOrCompute(context.Background(), testKey(), constTally(relation.Equals), false)
	require.NoError(t, err)
	assert.Equal(t, before, c.Stats().Misses)
}

func TestCache_ForceRecompute(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	var calls atomic.Int64
	fn := func(ctx context.Context) (*tally.Tally, error) {
		calls.Add(1)
		return constTally(relation.Meets)(ctx)
	}

	first, err := c.GetOrCompute(context.Background(), testKey(), fn, false)
	require.NoError(t, err)

	second, err := c.GetOrCompute(context.Background(), testKey(), fn, true)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestCache_ClearResetsCounters(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	_, err := c.GetOrCompute(context.Background(), testKey(), constTally(relation.During), false)
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), testKey(), constTally(relation.During), false)
	require.NoError(t, err)

	c.Clear()

	stats := c.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Entries)

	// Next call is a miss again.
	_, err = c.GetOrCompute(context.Background(), testKey(), constTally(relation.During), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCache_FailedComputeLeavesNoEntry(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	boom := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), testKey(), func(context.Context) (*tally.Tally, error) {
		return nil, boom
	}, false)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	// The failure does not poison the key.
	entry, err := c.GetOrCompute(context.Background(), testKey(), constTally(relation.After), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Tally.Total())
}

func TestCache_ConcurrentSameKeySingleCompute(t *testing.T) {
	t.Parallel()

	c := New(slog.Default())
	var calls atomic.Int64
	fn := func(ctx context.Context) (*tally.Tally, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return constTally(relation.Overlaps)(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute(context.Background(), testKey(), fn, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), c.Stats().Misses)
	assert.Equal(t, int64(7), c.Stats().Hits)
}

// memStore is an in-memory ResultStore for write-through tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]store.RunRecord
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]store.RunRecord)}
}

func (m *memStore) Save(_ context.Context, rec store.RunRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[store.ParamKey(rec.PBorn, rec.PDie, rec.Trials, rec.Seed)] = rec
	return nil
}

func (m *memStore) Load(_ context.Context, key string) (store.RunRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *memStore) List(_ context.Context) ([]store.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.RunRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]store.RunRecord)
	return nil
}

func (m *memStore) Close() error { return nil }

func TestCache_WriteThroughStore(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	c := New(slog.Default(), WithStore(ms))

	_, err := c.GetOrCompute(context.Background(), testKey(), constTally(relation.Starts, relation.Starts), false)
	require.NoError(t, err)

	rec, ok, err := ms.Load(context.Background(), testKey().String())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), rec.Counts[string(relation.Starts)])
}

func TestCache_StoreWriteFailurePropagates(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	ms.saveErr = errors.New("disk full")
	c := New(slog.Default(), WithStore(ms))

	_, err := c.GetOrCompute(context.Background(), testKey(), constTally(relation.Equals), false)
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, c.Len())
}

func TestCache_Warm(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	writer := New(slog.Default(), WithStore(ms))
	_, err := writer.GetOrCompute(context.Background(), testKey(), constTally(relation.Finishes), false)
	require.NoError(t, err)

	reader := New(slog.Default(), WithStore(ms))
	loaded, err := reader.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	// Warmed entry serves as a hit without recomputation.
	entry, err := reader.GetOrCompute(context.Background(), testKey(), func(context.Context) (*tally.Tally, error) {
		t.Fatal("compute should not run for warmed entry")
		return nil, nil
	}, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Tally.Count(relation.Finishes))
	assert.Equal(t, int64(1), reader.Stats().Hits)
}
