package opt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Constructor builds an initial feasible Solution. It returns the number of
// attempts it needed, or ErrInfeasibleInstance once its budget is spent.
type Constructor interface {
	Name() string
	Construct(s *Solver, rng *rand.Rand) (Solution, int, error)
}

// NewConstructor resolves a construction heuristic by name.
func NewConstructor(name string, maxAttempts, jitterSwaps int) (Constructor, error) {
	switch name {
	case "", ConstructFirstFit:
		return FirstFit{MaxAttempts: maxAttempts}, nil
	case ConstructNearestDepot:
		return NearestDepot{MaxAttempts: maxAttempts, JitterSwaps: jitterSwaps}, nil
	case ConstructCheapestAppend:
		return CheapestAppend{}, nil
	default:
		return nil, fmt.Errorf("opt: unknown construction heuristic %q", name)
	}
}

// FirstFit shuffles the customers and hands each to the first vehicle with
// room for it. A customer no vehicle can take restarts with a fresh shuffle.
type FirstFit struct {
	MaxAttempts int
}

func (FirstFit) Name() string { return ConstructFirstFit }

func (f FirstFit) Construct(s *Solver, rng *rand.Rand) (Solution, int, error) {
	if err := s.precheck(); err != nil {
		return Solution{}, 0, err
	}
	order := customerIndices(len(s.p.Customers))
	for attempt := 1; attempt <= attempts(f.MaxAttempts); attempt++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		if sol, ok := s.firstFit(order); ok {
			return sol, attempt, nil
		}
	}
	return Solution{}, attempts(f.MaxAttempts), fmt.Errorf("%w: first-fit gave up after %d attempts", ErrInfeasibleInstance, attempts(f.MaxAttempts))
}

// NearestDepot assigns customers in ascending distance from the depot. Each
// retry starts again from the sorted order with JitterSwaps random pair swaps.
type NearestDepot struct {
	MaxAttempts int
	JitterSwaps int
}

func (NearestDepot) Name() string { return ConstructNearestDepot }

func (nd NearestDepot) Construct(s *Solver, rng *rand.Rand) (Solution, int, error) {
	if err := s.precheck(); err != nil {
		return Solution{}, 0, err
	}
	sorted := customerIndices(len(s.p.Customers))
	sort.SliceStable(sorted, func(i, j int) bool {
		return s.dist.At(0, sorted[i]) < s.dist.At(0, sorted[j])
	})
	order := make([]int, len(sorted))
	for attempt := 1; attempt <= attempts(nd.MaxAttempts); attempt++ {
		copy(order, sorted)
		if attempt > 1 && len(order) > 1 {
			for k := 0; k < nd.JitterSwaps; k++ {
				i, j := rng.Intn(len(order)), rng.Intn(len(order))
				order[i], order[j] = order[j], order[i]
			}
		}
		if sol, ok := s.firstFit(order); ok {
			return sol, attempt, nil
		}
	}
	return Solution{}, attempts(nd.MaxAttempts), fmt.Errorf("%w: nearest-depot gave up after %d attempts", ErrInfeasibleInstance, attempts(nd.MaxAttempts))
}

// CheapestAppend lets vehicles take turns appending the unassigned customer
// closest to their current tail. It is deterministic and tries once.
type CheapestAppend struct{}

func (CheapestAppend) Name() string { return ConstructCheapestAppend }

func (CheapestAppend) Construct(s *Solver, _ *rand.Rand) (Solution, int, error) {
	if err := s.precheck(); err != nil {
		return Solution{}, 0, err
	}
	n := len(s.p.Customers)
	sol := emptySolution(s.p.Vehicles)
	load := make([]int, s.p.Vehicles)
	used := make([]bool, n)
	for assigned := 0; assigned < n-1; {
		progress := false
		for vi := range sol.Routes {
			tail := 0
			if r := sol.Routes[vi]; len(r) > 0 {
				tail = r[len(r)-1]
			}
			bestIdx, bestDelta := -1, math.MaxFloat64
			for c := 1; c < n; c++ {
				if used[c] || load[vi]+s.p.Customers[c].Demand > s.p.Capacity {
					continue
				}
				if d := s.dist.At(tail, c); d < bestDelta {
					bestIdx, bestDelta = c, d
				}
			}
			if bestIdx < 0 {
				continue
			}
			sol.Routes[vi] = append(sol.Routes[vi], bestIdx)
			load[vi] += s.p.Customers[bestIdx].Demand
			used[bestIdx] = true
			assigned++
			progress = true
			if assigned == n-1 {
				break
			}
		}
		if !progress {
			return Solution{}, 1, fmt.Errorf("%w: cheapest-append left %d customers unassigned", ErrInfeasibleInstance, n-1-assigned)
		}
	}
	return sol, 1, nil
}

// firstFit assigns customers in the given order to the first vehicle with
// spare capacity. ok is false as soon as one customer fits nowhere.
func (s *Solver) firstFit(order []int) (Solution, bool) {
	sol := emptySolution(s.p.Vehicles)
	load := make([]int, s.p.Vehicles)
	for _, c := range order {
		d := s.p.Customers[c].Demand
		placed := false
		for vi := range load {
			if load[vi]+d <= s.p.Capacity {
				load[vi] += d
				sol.Routes[vi] = append(sol.Routes[vi], c)
				placed = true
				break
			}
		}
		if !placed {
			return Solution{}, false
		}
	}
	return sol, true
}

// precheck rejects instances that no amount of retrying can place.
func (s *Solver) precheck() error {
	total := 0
	for i, c := range s.p.Customers[1:] {
		if c.Demand > s.p.Capacity {
			return fmt.Errorf("%w: customer %d demand %d exceeds capacity %d", ErrInfeasibleInstance, i+1, c.Demand, s.p.Capacity)
		}
		total += c.Demand
	}
	if total > s.p.Vehicles*s.p.Capacity {
		return fmt.Errorf("%w: total demand %d exceeds fleet capacity %d", ErrInfeasibleInstance, total, s.p.Vehicles*s.p.Capacity)
	}
	return nil
}

func customerIndices(n int) []int {
	out := make([]int, 0, n)
	for i := 1; i < n; i++ {
		out = append(out, i)
	}
	return out
}

func attempts(max int) int {
	if max <= 0 {
		return DefaultConfig().MaxConstructionAttempts
	}
	return max
}
