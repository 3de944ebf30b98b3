package opt

import (
	"fmt"
	"math"
	"math/rand"
)

// Solver owns the read-only inputs of a run: the problem, its distance
// matrix and the resolved configuration. It holds no search state and is
// safe to share between concurrent restarts.
type Solver struct {
	p    Problem
	dist *DistanceMatrix
	cfg  Config
	cons Constructor
}

// NewSolver validates p, fills unset fields of cfg with defaults and
// resolves the construction heuristic.
func NewSolver(p Problem, cfg Config) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cons, err := NewConstructor(cfg.Construction, cfg.MaxConstructionAttempts, cfg.JitterSwaps)
	if err != nil {
		return nil, err
	}
	return &Solver{p: p, dist: NewDistanceMatrix(p.Customers), cfg: cfg, cons: cons}, nil
}

// Problem, Config and Distances expose the read-only inputs.
func (s *Solver) Problem() Problem { return s.p }

func (s *Solver) Config() Config { return s.cfg }

func (s *Solver) Distances() *DistanceMatrix { return s.dist }

// Snapshot records the search state every Config.SnapshotEvery iterations.
type Snapshot struct {
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	BestCost    float64 `json:"bestCost"`
	CurrentCost float64 `json:"currentCost"`
}

// Metrics summarizes one restart.
type Metrics struct {
	Restart              int        `json:"restart"`
	Seed                 int64      `json:"seed"`
	ConstructionAttempts int        `json:"constructionAttempts"`
	Iterations           int        `json:"iterations"`
	Improvements         int        `json:"improvements"`
	AcceptedWorse        int        `json:"acceptedWorse"`
	Rejected             int        `json:"rejected"`
	InitialCost          float64    `json:"initialCost"`
	BestCost             float64    `json:"bestCost"`
	FinalCost            float64    `json:"finalCost"` // cost of the current solution when the loop ended
	FinalTemperature     float64    `json:"finalTemperature"`
	Snapshots            []Snapshot `json:"snapshots,omitempty"`
}

// Result carries the refined initial solution alongside the best one found.
type Result struct {
	Initial Solution
	Best    Solution
	Metrics Metrics
}

// Run performs one full search: construct, refine, then anneal for
// cfg.Iterations outer iterations. The best solution only changes on a
// strictly lower cost, so Metrics.BestCost never increases over the run.
func (s *Solver) Run(rng *rand.Rand, restart int) (Result, error) {
	initial, attempts, err := s.cons.Construct(s, rng)
	if err != nil {
		return Result{}, fmt.Errorf("construct %s: %w", s.cons.Name(), err)
	}
	initial = s.refine(initial, rng)
	if err := s.check(initial); err != nil {
		return Result{}, fmt.Errorf("initial solution: %w", err)
	}

	cur := initial
	best := initial.Clone()
	minCost := best.Cost
	temp := s.cfg.InitialTemp
	m := Metrics{Restart: restart, ConstructionAttempts: attempts, InitialCost: initial.Cost, BestCost: minCost}

	for it := 1; it <= s.cfg.Iterations; it++ {
		cand := s.refine(s.perturb(cur, rng), rng)
		if err := s.check(cand); err != nil {
			return Result{}, fmt.Errorf("iteration %d: %w", it, err)
		}
		improved := false
		if cand.Cost < minCost {
			best = cand.Clone()
			minCost = cand.Cost
			cur = cand
			improved = true
			m.Improvements++
		} else if math.Exp((minCost-cand.Cost)/temp) < rng.Float64() {
			cur = cand
			m.AcceptedWorse++
		} else {
			m.Rejected++
			if s.cfg.Acceptance == AcceptAlwaysAdopt {
				cur = cand
			}
		}
		temp *= s.cfg.Cooling
		m.Iterations = it

		snap := it%s.cfg.SnapshotEvery == 0
		if snap {
			m.Snapshots = append(m.Snapshots, Snapshot{Iteration: it, Temperature: temp, BestCost: minCost, CurrentCost: cur.Cost})
		}
		if s.cfg.Observer != nil && (snap || improved) {
			s.cfg.Observer(Progress{
				Restart:     restart,
				Iteration:   it,
				Iterations:  s.cfg.Iterations,
				Temperature: temp,
				BestCost:    minCost,
				CurrentCost: cur.Cost,
				Improved:    improved,
			})
		}
	}

	m.BestCost = minCost
	m.FinalCost = cur.Cost
	m.FinalTemperature = temp
	return Result{Initial: initial, Best: best, Metrics: m}, nil
}

func (s *Solver) check(sol Solution) error {
	if !s.cfg.CheckInvariants {
		return nil
	}
	return s.Validate(sol)
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...)
}
