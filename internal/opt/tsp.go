package opt

import (
	"math"
	"math/rand"
)

// OptimizeRoute anneals the visiting order of a single route. The neighbor
// swaps two positions drawn with replacement; a strictly cheaper neighbor
// becomes the tracked best, any other neighbor replaces the current order
// when exp((best-neighbor)/T) < U(0,1). The tracked best is returned, so the
// result never costs more than the input. Routes with fewer than two
// customers are returned as a copy.
func (s *Solver) OptimizeRoute(r Route, rng *rand.Rand) Route {
	if len(r) <= 1 {
		return r.Clone()
	}
	cur := r.Clone()
	best := r.Clone()
	minCost := s.RouteCost(best)
	temp := s.cfg.TSPInitialTemp
	next := make(Route, len(r))
	for it := 0; it < s.cfg.TSPIterations; it++ {
		copy(next, cur)
		i, j := rng.Intn(len(next)), rng.Intn(len(next))
		next[i], next[j] = next[j], next[i]
		c := s.RouteCost(next)
		if c < minCost {
			copy(best, next)
			minCost = c
			cur, next = next, cur
		} else if math.Exp((minCost-c)/temp) < rng.Float64() {
			cur, next = next, cur
		}
		temp *= s.cfg.TSPCooling
	}
	return best
}

// refine reorders every route with more than one customer and returns a new
// Solution; sol itself is left untouched.
func (s *Solver) refine(sol Solution, rng *rand.Rand) Solution {
	out := Solution{Routes: make([]Route, len(sol.Routes))}
	for i, r := range sol.Routes {
		if len(r) <= 1 {
			out.Routes[i] = r.Clone()
			continue
		}
		nr := s.OptimizeRoute(r, rng)
		if s.cfg.Polish2Opt {
			nr = s.TwoOpt(nr)
		}
		out.Routes[i] = nr
	}
	out.Cost = s.Cost(out)
	return out
}
