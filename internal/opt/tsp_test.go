package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func permutations(r Route) []Route {
	if len(r) <= 1 {
		return []Route{r.Clone()}
	}
	var out []Route
	for i := range r {
		rest := append(r[:i:i], r[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append(Route{r[i]}, p...))
		}
	}
	return out
}

func threeCustomerSolver(t *testing.T, cfg Config) *Solver {
	p := Problem{
		Customers: []Customer{{X: 0, Y: 0}, {Demand: 10, X: 4, Y: 1}, {Demand: 10, X: -2, Y: 5}, {Demand: 10, X: 3, Y: 7}},
		Vehicles:  1,
		Capacity:  100,
	}
	return mustSolver(t, p, cfg)
}

func TestOptimizeRoute_FindsBruteForceOptimum(t *testing.T) {
	s := threeCustomerSolver(t, testConfig())
	perms := permutations(Route{1, 2, 3})
	require.Len(t, perms, 6)

	minCost, maxCost := math.Inf(1), math.Inf(-1)
	for _, p := range perms {
		c := s.RouteCost(p)
		minCost = math.Min(minCost, c)
		maxCost = math.Max(maxCost, c)
	}

	rng := rand.New(rand.NewSource(42))
	for _, start := range perms {
		got := s.OptimizeRoute(start, rng)
		require.ElementsMatch(t, []int{1, 2, 3}, []int(got))
		require.LessOrEqual(t, s.RouteCost(got), maxCost)
		require.InDelta(t, minCost, s.RouteCost(got), 1e-9)
	}
}

func TestOptimizeRoute_NeverWorseAndIdempotent(t *testing.T) {
	p := randomProblem(3, 15, 1, 1000, 5)
	cfg := testConfig()
	cfg.TSPIterations = 500
	s := mustSolver(t, p, cfg)
	in := Route(customerIndices(15))
	rand.New(rand.NewSource(8)).Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })

	once := s.OptimizeRoute(in, rand.New(rand.NewSource(17)))
	require.LessOrEqual(t, s.RouteCost(once), s.RouteCost(in))
	require.ElementsMatch(t, []int(in), []int(once))

	twice := s.OptimizeRoute(once, rand.New(rand.NewSource(17)))
	require.LessOrEqual(t, s.RouteCost(twice), s.RouteCost(once))
}

func TestOptimizeRoute_ShortRoutesUntouched(t *testing.T) {
	s := threeCustomerSolver(t, testConfig())
	rng := rand.New(rand.NewSource(1))
	require.Equal(t, Route{}, s.OptimizeRoute(Route{}, rng))
	one := Route{2}
	got := s.OptimizeRoute(one, rng)
	require.Equal(t, one, got)
	got[0] = 3
	require.Equal(t, Route{2}, one)
}

func TestTwoOpt_RemovesCrossing(t *testing.T) {
	// Square corners visited in a crossing order.
	p := Problem{
		Customers: []Customer{{X: 0, Y: 0}, {Demand: 1, X: 0, Y: 10}, {Demand: 1, X: 10, Y: 0}, {Demand: 1, X: 10, Y: 10}},
		Vehicles:  1,
		Capacity:  10,
	}
	s := mustSolver(t, p, testConfig())
	in := Route{1, 2, 3}
	got := s.TwoOpt(in)
	require.InDelta(t, 40.0, s.RouteCost(got), 1e-9)
	require.Less(t, s.RouteCost(got), s.RouteCost(in))
	require.Equal(t, Route{1, 2, 3}, in)
}

func TestTwoOpt_NeverWorse(t *testing.T) {
	p := randomProblem(5, 20, 1, 1000, 5)
	s := mustSolver(t, p, testConfig())
	in := Route(customerIndices(20))
	got := s.TwoOpt(in)
	require.LessOrEqual(t, s.RouteCost(got), s.RouteCost(in)+1e-9)
	require.ElementsMatch(t, []int(in), []int(got))
}
