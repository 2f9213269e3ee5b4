package runner

import (
	"sync"
	"time"

	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
)

const defaultRegistryCapacity = 100

// RunSummary is the JSON-friendly view of a completed run kept for the admin
// API.
type RunSummary struct {
	ID         string                     `json:"id"`
	PBorn      float64                    `json:"p_born"`
	PDie       float64                    `json:"p_die"`
	Trials     int                        `json:"trials"`
	Seed       int64                      `json:"seed"`
	Mode       string                     `json:"mode"`
	ElapsedMS  int64                      `json:"elapsed_ms"`
	Counts     map[relation.Code]uint64   `json:"counts"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// Registry keeps a bounded, newest-first window of recent run summaries.
type Registry struct {
	mu       sync.Mutex
	capacity int
	runs     []RunSummary
	nowFn    func() time.Time
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = defaultRegistryCapacity
	}
	return &Registry{capacity: capacity, nowFn: time.Now}
}

// Record adds a completed result, evicting the oldest entry once full.
func (r *Registry) Record(result *Result) {
	summary := RunSummary{
		ID:         result.ID.String(),
		PBorn:      result.Params.PBorn,
		PDie:       result.Params.PDie,
		Trials:     result.Params.Trials,
		Seed:       result.Params.Seed,
		Mode:       result.Mode,
		ElapsedMS:  result.Elapsed.Milliseconds(),
		Counts:     result.Tally.Counts(),
		FinishedAt: r.nowFn(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, summary)
	if len(r.runs) > r.capacity {
		r.runs = r.runs[len(r.runs)-r.capacity:]
	}
}

// Recent returns summaries newest first.
func (r *Registry) Recent() []RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RunSummary, len(r.runs))
	for i, summary := range r.runs {
		out[len(r.runs)-1-i] = summary
	}
	return out
}

// Len returns the number of retained summaries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
