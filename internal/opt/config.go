package opt

import "fmt"

// Acceptance selects what happens to a candidate that is not a new best.
type Acceptance string

const (
	// AcceptClassic adopts a non-improving candidate only when the Metropolis
	// draw succeeds; otherwise the current solution is kept.
	AcceptClassic Acceptance = "classic"
	// AcceptAlwaysAdopt adopts every candidate as the new current solution.
	AcceptAlwaysAdopt Acceptance = "always-adopt"
)

// Perturbation selects the inter-route move applied in each outer iteration.
type Perturbation string

const (
	PerturbRelocate Perturbation = "relocate"
	PerturbSwap     Perturbation = "swap"
)

// Construction heuristic names.
const (
	ConstructFirstFit       = "first-fit"
	ConstructNearestDepot   = "nearest-depot"
	ConstructCheapestAppend = "cheapest-append"
)

// Progress is reported to Config.Observer on improvements and snapshots.
type Progress struct {
	Restart     int
	Iteration   int
	Iterations  int
	Temperature float64
	BestCost    float64
	CurrentCost float64
	Improved    bool
}

type Config struct {
	InitialTemp       float64 // outer annealing start temperature
	Cooling           float64 // multiplicative, applied after every outer iteration
	Iterations        int     // outer iteration budget
	TSPInitialTemp    float64
	TSPCooling        float64
	TSPIterations     int
	MovesPerIteration int
	Perturbation      Perturbation
	Construction      string
	Acceptance        Acceptance

	MaxConstructionAttempts int
	JitterSwaps             int

	Restarts        int
	Seed            int64 // 0 picks a time-based seed
	Polish2Opt      bool
	SnapshotEvery   int
	CheckInvariants bool

	// Observer, when set, must be safe for concurrent use if Restarts > 1.
	Observer func(Progress)
}

// DefaultConfig is the stock tuning: T0=1, cooling 0.95, 1000 outer
// and 1000 inner iterations, five relocate moves per outer iteration.
func DefaultConfig() Config {
	return Config{
		InitialTemp:             1.0,
		Cooling:                 0.95,
		Iterations:              1000,
		TSPInitialTemp:          1.0,
		TSPCooling:              0.95,
		TSPIterations:           1000,
		MovesPerIteration:       5,
		Perturbation:            PerturbRelocate,
		Construction:            ConstructFirstFit,
		Acceptance:              AcceptClassic,
		MaxConstructionAttempts: 1000,
		JitterSwaps:             3,
		Restarts:                1,
		SnapshotEvery:           50,
		CheckInvariants:         true,
	}
}

// withDefaults fills zero values from DefaultConfig. Boolean switches are left as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialTemp <= 0 {
		c.InitialTemp = d.InitialTemp
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		c.Cooling = d.Cooling
	}
	if c.Iterations < 0 {
		c.Iterations = 0
	}
	if c.TSPInitialTemp <= 0 {
		c.TSPInitialTemp = d.TSPInitialTemp
	}
	if c.TSPCooling <= 0 || c.TSPCooling >= 1 {
		c.TSPCooling = d.TSPCooling
	}
	if c.TSPIterations < 0 {
		c.TSPIterations = 0
	}
	if c.MovesPerIteration <= 0 {
		c.MovesPerIteration = d.MovesPerIteration
	}
	if c.Perturbation == "" {
		c.Perturbation = d.Perturbation
	}
	if c.Construction == "" {
		c.Construction = d.Construction
	}
	if c.Acceptance == "" {
		c.Acceptance = d.Acceptance
	}
	if c.MaxConstructionAttempts <= 0 {
		c.MaxConstructionAttempts = d.MaxConstructionAttempts
	}
	if c.JitterSwaps < 0 {
		c.JitterSwaps = 0
	}
	if c.Restarts <= 0 {
		c.Restarts = d.Restarts
	}
	if c.SnapshotEvery <= 0 {
		c.SnapshotEvery = d.SnapshotEvery
	}
	return c
}

func (c Config) validate() error {
	switch c.Perturbation {
	case PerturbRelocate, PerturbSwap:
	default:
		return fmt.Errorf("opt: unknown perturbation %q", c.Perturbation)
	}
	switch c.Acceptance {
	case AcceptClassic, AcceptAlwaysAdopt:
	default:
		return fmt.Errorf("opt: unknown acceptance %q", c.Acceptance)
	}
	return nil
}
