package simulate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
)

// DefaultTickBudget bounds the per-trial simulation loop. A trial that has
// not reached (Dead, Dead) within the budget fails with ErrNonTerminating
// instead of spinning forever (pBorn=0 can never advance an Unborn interval).
const DefaultTickBudget = 1 << 20

var (
	// ErrInvalidParameter rejects out-of-range simulation inputs before any
	// trial runs.
	ErrInvalidParameter = errors.New("invalid simulation parameter")

	// ErrNonTerminating is surfaced when a trial exhausts its tick budget.
	// The caller decides whether to raise pBorn/pDie or fail the run.
	ErrNonTerminating = errors.New("trial did not reach terminal state within tick budget")
)

// Params configures one trial of the coupled two-interval lifecycle process.
type Params struct {
	// PBorn is the per-tick probability that an Unborn interval starts.
	PBorn float64
	// PDie is the per-tick probability that an Alive interval ends.
	PDie float64
	// TickBudget bounds the trial loop; zero selects DefaultTickBudget.
	TickBudget int
}

// Validate checks ranges only. PBorn=0 or PDie=0 are within range but cannot
// terminate; they surface as ErrNonTerminating at run time per the contract.
func (p Params) Validate() error {
	if p.PBorn < 0 || p.PBorn > 1 {
		return fmt.Errorf("%w: pBorn=%v outside [0,1]", ErrInvalidParameter, p.PBorn)
	}
	if p.PDie < 0 || p.PDie > 1 {
		return fmt.Errorf("%w: pDie=%v outside [0,1]", ErrInvalidParameter, p.PDie)
	}
	if p.TickBudget < 0 {
		return fmt.Errorf("%w: tickBudget=%d must be >= 0", ErrInvalidParameter, p.TickBudget)
	}
	return nil
}

func (p Params) budget() int {
	if p.TickBudget > 0 {
		return p.TickBudget
	}
	return DefaultTickBudget
}

// TrialRNG returns the deterministic random stream for one trial. Seeding is
// per trial index rather than per worker partition, so a run's outcome is a
// pure function of (seed, trials) and invariant to worker count.
func TrialRNG(seed int64, trial int) *rand.Rand {
	s := splitmix64(uint64(seed) ^ (uint64(trial) * 0x9e3779b97f4a7c15))
	return rand.New(rand.NewPCG(s, splitmix64(s)))
}

// BatchSeed derives the master seed for batch n of a batch sequence. Batch 0
// keeps the original seed so a one-batch sequence reproduces a plain run.
func BatchSeed(seed int64, batch int) int64 {
	if batch == 0 {
		return seed
	}
	return int64(splitmix64(uint64(seed) + uint64(batch)))
}

// splitmix64 is the standard 64-bit mix used to decorrelate derived seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// RunTrial advances the joint lifecycle one tick at a time until both
// intervals are dead, recording a state only when it changes. Each tick draws
// independently for the two coordinates, first coordinate first, which keeps
// the draw sequence reproducible for a fixed rng.
func RunTrial(rng *rand.Rand, p Params) (relation.History, error) {
	state := relation.PairState{First: relation.Unborn, Second: relation.Unborn}
	hist := relation.History{state}

	budget := p.budget()
	for tick := 0; tick < budget; tick++ {
		next := relation.PairState{
			First:  advance(rng, state.First, p),
			Second: advance(rng, state.Second, p),
		}
		if next != state {
			hist = append(hist, next)
			state = next
		}
		if state.Terminal() {
			return hist, nil
		}
	}
	return nil, fmt.Errorf("%w: pBorn=%v pDie=%v budget=%d", ErrNonTerminating, p.PBorn, p.PDie, budget)
}

func advance(rng *rand.Rand, s relation.EndpointState, p Params) relation.EndpointState {
	switch s {
	case relation.Unborn:
		if rng.Float64() < p.PBorn {
			return relation.Alive
		}
	case relation.Alive:
		if rng.Float64() < p.PDie {
			return relation.Dead
		}
	}
	return s
}
