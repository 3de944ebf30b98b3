package opt

// TwoOpt applies first-improvement 2-opt to a depot-closed route until no
// segment reversal shortens it. The input is not modified.
func (s *Solver) TwoOpt(r Route) Route {
	best := r.Clone()
	n := len(best)
	if n < 3 {
		return best
	}
	at := func(i int) int {
		if i < 0 || i >= n {
			return 0
		}
		return best[i]
	}
	improved := true
	for improved {
		improved = false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				a, b := at(i-1), best[i]
				c, d := best[k], at(k+1)
				delta := s.dist.At(a, c) + s.dist.At(b, d) - s.dist.At(a, b) - s.dist.At(c, d)
				if delta < -1e-9 {
					reverse(best, i, k)
					improved = true
				}
			}
		}
	}
	return best
}

func reverse(r Route, i, k int) {
	for ; i < k; i, k = i+1, k-1 {
		r[i], r[k] = r[k], r[i]
	}
}
