package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vxrdis/allen-interval-probabilities/internal/metrics"
	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
	"github.com/vxrdis/allen-interval-probabilities/internal/store"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
)

// Key identifies one simulation parameterization. The seed is part of the
// key because the chosen seed policy makes a run a pure function of
// (pBorn, pDie, trials, seed).
type Key struct {
	PBorn  float64
	PDie   float64
	Trials int
	Seed   int64
}

func (k Key) String() string {
	return store.ParamKey(k.PBorn, k.PDie, k.Trials, k.Seed)
}

// Entry is a completed computation plus its metadata.
type Entry struct {
	ID         uuid.UUID
	Key        Key
	Tally      *tally.Tally
	Elapsed    time.Duration
	ComputedAt time.Time
}

// ComputeFunc produces the tally for a key. Executed at most once per key
// unless the caller forces recomputation or the cache was cleared.
type ComputeFunc func(ctx context.Context) (*tally.Tally, error)

// Stats is a snapshot of the hit/miss accounting.
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
	Entries  int     `json:"entries"`
}

type slot struct {
	ready chan struct{} // closed when entry/err are set
	entry *Entry
	err   error
}

// Cache memoizes simulation results per parameter key. Entries are never
// evicted; Clear drops everything and resets the counters. A single compute
// runs per key at a time; concurrent callers for the same key wait on the
// first computation and count as hits.
type Cache struct {
	mu     sync.Mutex
	slots  map[Key]*slot
	hits   int64
	misses int64

	store  store.ResultStore // optional write-through persistence
	logger *slog.Logger
	nowFn  func() time.Time
}

type Option func(*Cache)

// WithStore enables write-through persistence of completed entries.
func WithStore(s store.ResultStore) Option {
	return func(c *Cache) { c.store = s }
}

func New(logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		slots:  make(map[Key]*slot),
		logger: logger.With("component", "cache"),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the memoized entry for key, computing it on first use.
// With force=true the key is recomputed and the previous entry replaced; the
// call counts as a miss. A failed compute leaves no entry behind, so the next
// call retries.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, fn ComputeFunc, force bool) (*Entry, error) {
	c.mu.Lock()
	if existing, ok := c.slots[key]; ok && !force {
		c.hits++
		c.mu.Unlock()
		metrics.CacheHits.Inc()

		<-existing.ready
		if existing.err != nil {
			return nil, existing.err
		}
		return existing.entry, nil
	}

	s := &slot{ready: make(chan struct{})}
	c.slots[key] = s
	c.misses++
	c.mu.Unlock()
	metrics.CacheMisses.Inc()

	entry, err := c.compute(ctx, key, fn)
	if err != nil {
		s.err = err
		close(s.ready)
		c.mu.Lock()
		if c.slots[key] == s {
			delete(c.slots, key)
		}
		c.mu.Unlock()
		return nil, err
	}

	s.entry = entry
	close(s.ready)
	metrics.CacheEntries.Set(float64(c.Len()))
	return entry, nil
}

func (c *Cache) compute(ctx context.Context, key Key, fn ComputeFunc) (*Entry, error) {
	start := c.nowFn()
	result, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", key, err)
	}

	entry := &Entry{
		ID:         uuid.New(),
		Key:        key,
		Tally:      result,
		Elapsed:    c.nowFn().Sub(start),
		ComputedAt: c.nowFn(),
	}

	if c.store != nil {
		if err := c.store.Save(ctx, toRecord(entry)); err != nil {
			// Write failures propagate: a caller relying on persistence must
			// not observe a silently volatile entry.
			return nil, fmt.Errorf("persist %s: %w", key, err)
		}
	}

	c.logger.Debug("cache entry computed",
		"key", key.String(),
		"trials", entry.Tally.Total(),
		"elapsed", entry.Elapsed,
	)
	return entry, nil
}

// Warm loads previously persisted results into the cache. Hit/miss counters
// are not touched; warmed entries simply become hits later.
func (c *Cache) Warm(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	records, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm cache: %w", err)
	}

	loaded := 0
	c.mu.Lock()
	for _, rec := range records {
		entry, err := fromRecord(rec)
		if err != nil {
			c.logger.Warn("skipping unusable persisted result", "id", rec.ID, "error", err)
			continue
		}
		key := entry.Key
		if _, exists := c.slots[key]; exists {
			continue
		}
		s := &slot{ready: make(chan struct{}), entry: entry}
		close(s.ready)
		c.slots[key] = s
		loaded++
	}
	size := len(c.slots)
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(size))
	if loaded > 0 {
		c.logger.Info("cache warmed from store", "loaded", loaded)
	}
	return loaded, nil
}

// Stats returns the current hit/miss snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.slots)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatio = float64(c.hits) / float64(total)
	}
	return s
}

// Len returns the number of completed or in-flight entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Clear drops all entries and resets the hit/miss counters. The next
// GetOrCompute for any key is a miss.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.slots = make(map[Key]*slot)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
	metrics.CacheEntries.Set(0)
	c.logger.Info("cache cleared")
}

func toRecord(e *Entry) store.RunRecord {
	counts := make(map[string]uint64, len(relation.CanonicalOrder))
	for code, n := range e.Tally.Counts() {
		counts[string(code)] = n
	}
	return store.RunRecord{
		ID:         e.ID.String(),
		PBorn:      e.Key.PBorn,
		PDie:       e.Key.PDie,
		Trials:     e.Key.Trials,
		Seed:       e.Key.Seed,
		Counts:     counts,
		ElapsedMS:  e.Elapsed.Milliseconds(),
		ComputedAt: e.ComputedAt,
	}
}

func fromRecord(rec store.RunRecord) (*Entry, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("parse record id: %w", err)
	}
	t := tally.New()
	for code, n := range rec.Counts {
		if !relation.Valid(relation.Code(code)) {
			return nil, fmt.Errorf("unknown relation code %q", code)
		}
		t.AddN(relation.Code(code), n)
	}
	return &Entry{
		ID:         id,
		Key:        Key{PBorn: rec.PBorn, PDie: rec.PDie, Trials: rec.Trials, Seed: rec.Seed},
		Tally:      t,
		Elapsed:    time.Duration(rec.ElapsedMS) * time.Millisecond,
		ComputedAt: rec.ComputedAt,
	}, nil
}
