package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func constructors() []Constructor {
	return []Constructor{
		FirstFit{MaxAttempts: 50},
		NearestDepot{MaxAttempts: 50, JitterSwaps: 3},
		CheapestAppend{},
	}
}

func TestConstructors_ProduceValidSolutions(t *testing.T) {
	p := randomProblem(7, 40, 6, 60, 9)
	s := mustSolver(t, p, testConfig())
	for _, c := range constructors() {
		rng := rand.New(rand.NewSource(11))
		sol, attempts, err := c.Construct(s, rng)
		require.NoError(t, err, c.Name())
		require.GreaterOrEqual(t, attempts, 1, c.Name())
		require.NoError(t, s.Validate(sol), c.Name())
		require.Len(t, sol.Routes, p.Vehicles, c.Name())
	}
}

func TestConstructors_SingleVehicleTakesEveryone(t *testing.T) {
	p := Problem{
		Customers: []Customer{{}, {Demand: 10, X: 1}, {Demand: 10, Y: 2}, {Demand: 10, X: 3, Y: 3}},
		Vehicles:  1,
		Capacity:  100,
	}
	s := mustSolver(t, p, testConfig())
	for _, c := range constructors() {
		sol, attempts, err := c.Construct(s, rand.New(rand.NewSource(1)))
		require.NoError(t, err, c.Name())
		require.Equal(t, 1, attempts, c.Name())
		require.ElementsMatch(t, []int{1, 2, 3}, []int(sol.Routes[0]), c.Name())
	}
}

func TestConstructors_CustomerLargerThanCapacity(t *testing.T) {
	p := Problem{Customers: []Customer{{}, {Demand: 11, X: 1}}, Vehicles: 2, Capacity: 10}
	s := mustSolver(t, p, testConfig())
	for _, c := range constructors() {
		_, _, err := c.Construct(s, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, ErrInfeasibleInstance, c.Name())
	}
}

func TestConstructors_FleetTooSmall(t *testing.T) {
	p := Problem{Customers: []Customer{{}, {Demand: 6}, {Demand: 6}, {Demand: 6}}, Vehicles: 2, Capacity: 8}
	s := mustSolver(t, p, testConfig())
	for _, c := range constructors() {
		_, attempts, err := c.Construct(s, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, ErrInfeasibleInstance, c.Name())
		require.Zero(t, attempts, c.Name())
	}
}

func TestConstructors_BinPackingInfeasibleGivesUp(t *testing.T) {
	// Total demand 20 fits a 2x10 fleet, but three customers of 7, 7 and 6
	// can never share a vehicle.
	p := Problem{Customers: []Customer{{}, {Demand: 7, X: 1}, {Demand: 7, X: 2}, {Demand: 6, X: 3}}, Vehicles: 2, Capacity: 10}
	s := mustSolver(t, p, testConfig())
	for _, c := range []Constructor{FirstFit{MaxAttempts: 25}, NearestDepot{MaxAttempts: 25, JitterSwaps: 3}} {
		_, attempts, err := c.Construct(s, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, ErrInfeasibleInstance, c.Name())
		require.Equal(t, 25, attempts, c.Name())
	}
	_, _, err := CheapestAppend{}.Construct(s, nil)
	require.ErrorIs(t, err, ErrInfeasibleInstance)
}

func TestConstructors_ZeroDemandZeroCapacity(t *testing.T) {
	p := Problem{Customers: make([]Customer, 8), Vehicles: 3, Capacity: 0}
	for i := range p.Customers {
		p.Customers[i].X = float64(i)
	}
	s := mustSolver(t, p, testConfig())
	for _, c := range constructors() {
		sol, attempts, err := c.Construct(s, rand.New(rand.NewSource(5)))
		require.NoError(t, err, c.Name())
		require.Equal(t, 1, attempts, c.Name())
		require.NoError(t, s.Validate(sol), c.Name())
	}
}

func TestNearestDepot_FirstAttemptFollowsDistanceOrder(t *testing.T) {
	p := Problem{
		Customers: []Customer{{}, {Demand: 1, X: 9}, {Demand: 1, X: 1}, {Demand: 1, X: 5}},
		Vehicles:  2,
		Capacity:  10,
	}
	s := mustSolver(t, p, testConfig())
	sol, attempts, err := NearestDepot{MaxAttempts: 5}.Construct(s, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
	require.Equal(t, Route{2, 3, 1}, sol.Routes[0])
	require.Empty(t, sol.Routes[1])
}

func TestNearestDepot_JitterFindsPacking(t *testing.T) {
	// In distance order the demands are 5, 6, 4, 5: first-fit strands the last
	// customer. Only {6,4} {5,5} packs, which a jittered order can reach.
	p := Problem{
		Customers: []Customer{{}, {Demand: 5, X: 1}, {Demand: 6, X: 2}, {Demand: 4, X: 3}, {Demand: 5, X: 4}},
		Vehicles:  2,
		Capacity:  10,
	}
	s := mustSolver(t, p, testConfig())
	sol, attempts, err := NearestDepot{MaxAttempts: 500, JitterSwaps: 3}.Construct(s, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Greater(t, attempts, 1)
	require.NoError(t, s.Validate(sol))
}

func TestNewConstructor(t *testing.T) {
	for _, name := range []string{"", ConstructFirstFit, ConstructNearestDepot, ConstructCheapestAppend} {
		c, err := NewConstructor(name, 10, 3)
		require.NoError(t, err)
		if name != "" {
			require.Equal(t, name, c.Name())
		}
	}
	_, err := NewConstructor("random-walk", 10, 3)
	require.Error(t, err)
}
