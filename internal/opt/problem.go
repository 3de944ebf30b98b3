// Package opt solves capacitated vehicle routing problems with nested
// simulated annealing: relocate moves between routes, swap-based annealing
// within each route.
package opt

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidProblem is returned for malformed problem definitions.
	ErrInvalidProblem = errors.New("opt: invalid problem")
	// ErrInfeasibleInstance is returned when no capacity-feasible assignment
	// of customers to the fleet could be built.
	ErrInfeasibleInstance = errors.New("opt: infeasible instance")
	// ErrInvariantViolation signals a solution that lost, duplicated or
	// overloaded a customer. It indicates a programming error.
	ErrInvariantViolation = errors.New("opt: solution invariant violated")
)

// Customer is a node of the instance. Index 0 of Problem.Customers is the depot.
type Customer struct {
	Demand int
	X, Y   float64
}

// Problem is a CVRP instance: a homogeneous fleet of Vehicles, each
// with the same Capacity.
type Problem struct {
	Customers []Customer // index 0 is the depot
	Vehicles  int
	Capacity  int
}

// Validate checks the structural preconditions the solver relies on.
func (p Problem) Validate() error {
	if len(p.Customers) == 0 {
		return fmt.Errorf("%w: no depot", ErrInvalidProblem)
	}
	if p.Vehicles < 1 {
		return fmt.Errorf("%w: vehicles must be >= 1, got %d", ErrInvalidProblem, p.Vehicles)
	}
	if p.Capacity < 0 {
		return fmt.Errorf("%w: capacity must be >= 0, got %d", ErrInvalidProblem, p.Capacity)
	}
	if p.Customers[0].Demand != 0 {
		return fmt.Errorf("%w: depot demand must be 0, got %d", ErrInvalidProblem, p.Customers[0].Demand)
	}
	for i, c := range p.Customers {
		if c.Demand < 0 {
			return fmt.Errorf("%w: customer %d has negative demand %d", ErrInvalidProblem, i, c.Demand)
		}
		if math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
			return fmt.Errorf("%w: customer %d has non-finite coordinates", ErrInvalidProblem, i)
		}
	}
	return nil
}

// Route is an ordered list of customer indices. The depot is implicit at both ends.
type Route []int

// Clone returns a copy that shares no backing array with r.
func (r Route) Clone() Route {
	if r == nil {
		return Route{}
	}
	return append(Route(make([]int, 0, len(r))), r...)
}

// Solution holds exactly one route per vehicle.
type Solution struct {
	Routes []Route
	Cost   float64
}

// Clone deep-copies every route.
func (s Solution) Clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes)), Cost: s.Cost}
	for i, r := range s.Routes {
		out.Routes[i] = r.Clone()
	}
	return out
}

// Customers returns the number of customers placed across all routes.
func (s Solution) Customers() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r)
	}
	return n
}

func emptySolution(vehicles int) Solution {
	s := Solution{Routes: make([]Route, vehicles)}
	for i := range s.Routes {
		s.Routes[i] = Route{}
	}
	return s
}
