package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/vxrdis/allen-interval-probabilities/internal/circuitbreaker"
)

// GuardedStore wraps a ResultStore with a circuit breaker so an unhealthy
// backend fails fast instead of holding up every run on connection timeouts.
// Errors, including circuitbreaker.ErrCircuitOpen, still propagate to the
// caller.
type GuardedStore struct {
	inner   ResultStore
	breaker *circuitbreaker.Breaker
}

// NewGuarded wraps inner with a breaker tuned for a remote store: a handful
// of consecutive failures opens the circuit for a short cool-off.
func NewGuarded(inner ResultStore, logger *slog.Logger) *GuardedStore {
	log := logger.With("component", "result_store_guard")
	return &GuardedStore{
		inner: inner,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			OpenTimeout:      15 * time.Second,
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Warn("result store breaker state changed",
					"from", from.String(), "to", to.String())
			},
		}),
	}
}

// State exposes the breaker state for health reporting.
func (g *GuardedStore) State() circuitbreaker.State {
	return g.breaker.GetState()
}

func (g *GuardedStore) Save(ctx context.Context, rec RunRecord) error {
	return g.breaker.Do(func() error {
		return g.inner.Save(ctx, rec)
	})
}

func (g *GuardedStore) Load(ctx context.Context, key string) (RunRecord, bool, error) {
	var rec RunRecord
	var ok bool
	err := g.breaker.Do(func() error {
		var innerErr error
		rec, ok, innerErr = g.inner.Load(ctx, key)
		return innerErr
	})
	return rec, ok, err
}

func (g *GuardedStore) List(ctx context.Context) ([]RunRecord, error) {
	var recs []RunRecord
	err := g.breaker.Do(func() error {
		var innerErr error
		recs, innerErr = g.inner.List(ctx)
		return innerErr
	})
	return recs, err
}

func (g *GuardedStore) Clear(ctx context.Context) error {
	return g.breaker.Do(func() error {
		return g.inner.Clear(ctx)
	})
}

// Close bypasses the breaker; shutdown must always reach the backend.
func (g *GuardedStore) Close() error {
	return g.inner.Close()
}
