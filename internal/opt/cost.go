package opt

import "math"

// Fits reports whether the cumulative demand of r stays within capacity,
// stopping at the first customer that overflows it.
func (s *Solver) Fits(r Route) bool {
	load := 0
	for _, c := range r {
		load += s.p.Customers[c].Demand
		if load > s.p.Capacity {
			return false
		}
	}
	return true
}

// RouteCost is depot->first + consecutive edges + last->depot. Empty routes cost 0.
func (s *Solver) RouteCost(r Route) float64 {
	if len(r) == 0 {
		return 0
	}
	total := s.dist.At(0, r[0])
	for i := 1; i < len(r); i++ {
		total += s.dist.At(r[i-1], r[i])
	}
	return total + s.dist.At(r[len(r)-1], 0)
}

// Cost sums RouteCost over all routes, rounded to 2 decimals.
func (s *Solver) Cost(sol Solution) float64 {
	total := 0.0
	for _, r := range sol.Routes {
		total += s.RouteCost(r)
	}
	return round2(total)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// Validate checks the solution invariants: one route per vehicle, every
// customer 1..N-1 exactly once, no depot inside a route, no route over capacity.
func (s *Solver) Validate(sol Solution) error {
	if len(sol.Routes) != s.p.Vehicles {
		return invariantf("have %d routes, want %d", len(sol.Routes), s.p.Vehicles)
	}
	n := len(s.p.Customers)
	seen := make([]bool, n)
	for ri, r := range sol.Routes {
		for _, c := range r {
			if c <= 0 || c >= n {
				return invariantf("route %d holds invalid index %d", ri, c)
			}
			if seen[c] {
				return invariantf("customer %d assigned twice", c)
			}
			seen[c] = true
		}
		if !s.Fits(r) {
			return invariantf("route %d exceeds capacity %d", ri, s.p.Capacity)
		}
	}
	for c := 1; c < n; c++ {
		if !seen[c] {
			return invariantf("customer %d unassigned", c)
		}
	}
	return nil
}
