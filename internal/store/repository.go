package store

import (
	"context"
	"fmt"
	"time"
)

// ParamKey builds the stable string identity for a parameter set, shared by
// the in-process cache and persistent stores.
func ParamKey(pBorn, pDie float64, trials int, seed int64) string {
	return fmt.Sprintf("pborn=%g|pdie=%g|trials=%d|seed=%d", pBorn, pDie, trials, seed)
}

// RunRecord is the persisted form of one completed simulation result. Counts
// are keyed by relation code so records survive across processes without
// depending on in-memory types.
type RunRecord struct {
	ID         string            `json:"id"`
	PBorn      float64           `json:"p_born"`
	PDie       float64           `json:"p_die"`
	Trials     int               `json:"trials"`
	Seed       int64             `json:"seed"`
	Counts     map[string]uint64 `json:"counts"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	ComputedAt time.Time         `json:"computed_at"`
}

// ResultStore persists completed simulation results keyed by parameters.
// The result cache uses it as an optional write-through backend so identical
// parameterizations survive process restarts.
type ResultStore interface {
	Save(ctx context.Context, rec RunRecord) error
	// Load returns the record for a parameter key, or ok=false when absent.
	Load(ctx context.Context, key string) (RunRecord, bool, error)
	List(ctx context.Context) ([]RunRecord, error)
	Clear(ctx context.Context) error
	Close() error
}
