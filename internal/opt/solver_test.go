package opt

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_ThreeCustomersReachesOptimum(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 20
	s := threeCustomerSolver(t, cfg)
	res, err := s.Run(rand.New(rand.NewSource(7)), 0)
	require.NoError(t, err)

	minCost := math.Inf(1)
	for _, p := range permutations(Route{1, 2, 3}) {
		minCost = math.Min(minCost, s.RouteCost(p))
	}
	require.Equal(t, round2(minCost), res.Best.Cost)
	require.Equal(t, s.Cost(res.Best), res.Best.Cost)
	require.LessOrEqual(t, res.Best.Cost, res.Initial.Cost)
}

func TestRun_BestNeverWorsens(t *testing.T) {
	p := randomProblem(13, 30, 4, 50, 9)
	cfg := testConfig()
	cfg.SnapshotEvery = 5
	s := mustSolver(t, p, cfg)
	res, err := s.Run(rand.New(rand.NewSource(2)), 0)
	require.NoError(t, err)

	require.Equal(t, cfg.Iterations, res.Metrics.Iterations)
	require.Len(t, res.Metrics.Snapshots, cfg.Iterations/cfg.SnapshotEvery)
	prev := res.Metrics.InitialCost
	for _, snap := range res.Metrics.Snapshots {
		require.LessOrEqual(t, snap.BestCost, prev)
		prev = snap.BestCost
	}
	require.Equal(t, res.Metrics.BestCost, res.Best.Cost)
	require.LessOrEqual(t, res.Best.Cost, res.Initial.Cost)
	require.Equal(t, cfg.Iterations, res.Metrics.Improvements+res.Metrics.AcceptedWorse+res.Metrics.Rejected)
	require.NoError(t, s.Validate(res.Best))
	require.NoError(t, s.Validate(res.Initial))
}

// At a huge, slowly cooling temperature the acceptance draw rejects every
// non-improving candidate, isolating what each mode does with a rejection.
func TestRun_AcceptanceModesOnRejection(t *testing.T) {
	p := randomProblem(17, 20, 4, 40, 9)
	run := func(acc Acceptance) (Metrics, []Progress) {
		cfg := testConfig()
		cfg.Iterations = 150
		cfg.TSPIterations = 50
		cfg.InitialTemp = 1e12
		cfg.Cooling = 0.999999
		cfg.SnapshotEvery = 1
		cfg.Acceptance = acc
		var seen []Progress
		cfg.Observer = func(pr Progress) { seen = append(seen, pr) }
		s := mustSolver(t, p, cfg)
		res, err := s.Run(rand.New(rand.NewSource(11)), 0)
		require.NoError(t, err)
		require.Len(t, seen, cfg.Iterations)
		require.Zero(t, res.Metrics.AcceptedWorse)
		require.Positive(t, res.Metrics.Rejected)
		require.Equal(t, cfg.Iterations, res.Metrics.Improvements+res.Metrics.Rejected)
		return res.Metrics, seen
	}

	m, seen := run(AcceptClassic)
	for _, pr := range seen {
		require.Equal(t, pr.BestCost, pr.CurrentCost, "classic kept a rejected candidate at iteration %d", pr.Iteration)
	}
	require.Equal(t, m.BestCost, m.FinalCost)

	m, seen = run(AcceptAlwaysAdopt)
	adopted := 0
	for _, pr := range seen {
		require.GreaterOrEqual(t, pr.CurrentCost, pr.BestCost)
		if pr.CurrentCost > pr.BestCost {
			adopted++
		}
	}
	require.Positive(t, adopted, "always-adopt never moved off the best solution")
	require.GreaterOrEqual(t, m.FinalCost, m.BestCost)
}

func TestRun_AllStrategiesStayFeasible(t *testing.T) {
	p := randomProblem(31, 25, 4, 45, 9)
	for _, construction := range []string{ConstructFirstFit, ConstructNearestDepot, ConstructCheapestAppend} {
		for _, perturbation := range []Perturbation{PerturbRelocate, PerturbSwap} {
			for _, acceptance := range []Acceptance{AcceptClassic, AcceptAlwaysAdopt} {
				cfg := testConfig()
				cfg.Iterations = 60
				cfg.TSPIterations = 100
				cfg.Construction = construction
				cfg.Perturbation = perturbation
				cfg.Acceptance = acceptance
				cfg.Polish2Opt = acceptance == AcceptAlwaysAdopt
				s := mustSolver(t, p, cfg)
				res, err := s.Run(rand.New(rand.NewSource(3)), 0)
				require.NoError(t, err, "%s/%s/%s", construction, perturbation, acceptance)
				require.NoError(t, s.Validate(res.Best))
				require.LessOrEqual(t, res.Best.Cost, res.Initial.Cost)
			}
		}
	}
}

func TestRun_SameSeedSameResult(t *testing.T) {
	p := randomProblem(17, 20, 3, 50, 9)
	s := mustSolver(t, p, testConfig())
	a, err := s.Run(rand.New(rand.NewSource(99)), 0)
	require.NoError(t, err)
	b, err := s.Run(rand.New(rand.NewSource(99)), 0)
	require.NoError(t, err)
	require.Equal(t, a.Best, b.Best)
	require.Equal(t, a.Metrics, b.Metrics)
}

func TestRun_ObserverSeesProgress(t *testing.T) {
	p := randomProblem(19, 20, 3, 50, 9)
	cfg := testConfig()
	cfg.SnapshotEvery = 10
	var events []Progress
	cfg.Observer = func(pr Progress) { events = append(events, pr) }
	s := mustSolver(t, p, cfg)
	res, err := s.Run(rand.New(rand.NewSource(1)), 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), cfg.Iterations/cfg.SnapshotEvery)
	last := events[len(events)-1]
	require.Equal(t, cfg.Iterations, last.Iterations)
	require.Equal(t, res.Best.Cost, last.BestCost)
}

func TestRun_InfeasibleInstance(t *testing.T) {
	p := Problem{Customers: []Customer{{}, {Demand: 11, X: 1}}, Vehicles: 2, Capacity: 10}
	s := mustSolver(t, p, testConfig())
	_, err := s.Run(rand.New(rand.NewSource(1)), 0)
	require.ErrorIs(t, err, ErrInfeasibleInstance)
}

func TestSolve_RestartsPickCheapest(t *testing.T) {
	p := randomProblem(23, 25, 4, 45, 9)
	cfg := testConfig()
	cfg.Restarts = 4
	cfg.Seed = 1000
	var mu sync.Mutex
	seen := map[int]bool{}
	cfg.Observer = func(pr Progress) {
		mu.Lock()
		seen[pr.Restart] = true
		mu.Unlock()
	}
	res, err := Solve(context.Background(), p, cfg)
	require.NoError(t, err)

	single := cfg
	single.Restarts = 1
	single.Observer = nil
	s := mustSolver(t, p, single)
	for i := 0; i < cfg.Restarts; i++ {
		r, err := s.Run(rand.New(rand.NewSource(cfg.Seed+int64(i))), i)
		require.NoError(t, err)
		require.LessOrEqual(t, res.Best.Cost, r.Best.Cost)
	}
	require.GreaterOrEqual(t, res.Metrics.Seed, cfg.Seed)
	require.Len(t, seen, cfg.Restarts)
}

func TestSolve_DeadlineWithoutFinishedRestart(t *testing.T) {
	// tens of millions of inner steps: well past the deadline, but bounded
	p := randomProblem(29, 60, 6, 60, 9)
	cfg := testConfig()
	cfg.Iterations = 20_000
	cfg.Seed = 5
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := Solve(ctx, p, cfg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSolve_PropagatesInfeasibility(t *testing.T) {
	p := Problem{Customers: []Customer{{}, {Demand: 11, X: 1}}, Vehicles: 2, Capacity: 10}
	cfg := testConfig()
	cfg.Restarts = 3
	_, err := Solve(context.Background(), p, cfg)
	require.ErrorIs(t, err, ErrInfeasibleInstance)
}
