package opt

import "math/rand"

const swapRetries = 50

// Relocate removes the customer with the largest removal contribution
// (edge in + edge out, depot at the boundaries) among routes with at least two
// customers, and appends it to the first other route, in random order, that
// stays within capacity. When no route can take it, or no route has two
// customers, the result equals the input. The input is never modified.
func (s *Solver) Relocate(sol Solution, rng *rand.Rand) Solution {
	cand := sol.Clone()
	srcRoute, srcPos := -1, -1
	maxContrib := -1.0
	for ri, r := range cand.Routes {
		if len(r) < 2 {
			continue
		}
		for i, c := range r {
			prev, next := 0, 0
			if i > 0 {
				prev = r[i-1]
			}
			if i < len(r)-1 {
				next = r[i+1]
			}
			if contrib := s.dist.At(prev, c) + s.dist.At(c, next); contrib > maxContrib {
				maxContrib, srcRoute, srcPos = contrib, ri, i
			}
		}
	}
	if srcRoute < 0 {
		return cand
	}

	src := cand.Routes[srcRoute]
	customer := src[srcPos]
	for _, ri := range rng.Perm(len(cand.Routes)) {
		if ri == srcRoute {
			continue
		}
		target := append(cand.Routes[ri].Clone(), customer)
		if !s.Fits(target) {
			continue
		}
		cand.Routes[ri] = target
		cand.Routes[srcRoute] = append(src[:srcPos:srcPos], src[srcPos+1:]...)
		return cand
	}
	return cand
}

// Swap exchanges one random customer between two random non-empty routes
// (possibly the same one). Capacity-infeasible draws are retried up to 50
// times before giving up and returning a copy of the input.
func (s *Solver) Swap(sol Solution, rng *rand.Rand) Solution {
	nonEmpty := make([]int, 0, len(sol.Routes))
	for ri, r := range sol.Routes {
		if len(r) > 0 {
			nonEmpty = append(nonEmpty, ri)
		}
	}
	if len(nonEmpty) == 0 {
		return sol.Clone()
	}
	r1 := nonEmpty[rng.Intn(len(nonEmpty))]
	r2 := nonEmpty[rng.Intn(len(nonEmpty))]
	for try := 0; try < swapRetries; try++ {
		cand := sol.Clone()
		a, b := cand.Routes[r1], cand.Routes[r2]
		i, j := rng.Intn(len(a)), rng.Intn(len(b))
		a[i], b[j] = b[j], a[i]
		if s.Fits(a) && s.Fits(b) {
			return cand
		}
	}
	return sol.Clone()
}

func (s *Solver) perturb(sol Solution, rng *rand.Rand) Solution {
	out := sol
	for k := 0; k < s.cfg.MovesPerIteration; k++ {
		switch s.cfg.Perturbation {
		case PerturbSwap:
			out = s.Swap(out, rng)
		default:
			out = s.Relocate(out, rng)
		}
	}
	return out
}
