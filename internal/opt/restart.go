package opt

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Solve runs cfg.Restarts independent searches concurrently and returns the
// cheapest. Restart i draws from its own generator seeded cfg.Seed+i. The
// searches themselves are not cancellable; when ctx is done Solve stops
// waiting and returns the best restart finished so far, or ctx.Err() if none
// has finished.
func Solve(ctx context.Context, p Problem, cfg Config) (Result, error) {
	s, err := NewSolver(p, cfg)
	if err != nil {
		return Result{}, err
	}
	return s.SolveRestarts(ctx)
}

func (s *Solver) SolveRestarts(ctx context.Context) (Result, error) {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var (
		mu       sync.Mutex
		best     Result
		finished int
	)
	var g errgroup.Group
	for i := 0; i < s.cfg.Restarts; i++ {
		restartSeed := seed + int64(i)
		restart := i
		g.Go(func() error {
			res, err := s.Run(rand.New(rand.NewSource(restartSeed)), restart)
			if err != nil {
				return err
			}
			res.Metrics.Seed = restartSeed
			mu.Lock()
			defer mu.Unlock()
			if finished == 0 || res.Best.Cost < best.Best.Cost {
				best = res
			}
			finished++
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return Result{}, err
		}
		return best, nil
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		if finished == 0 {
			return Result{}, ctx.Err()
		}
		return best, nil
	}
}
