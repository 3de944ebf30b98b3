package model

import "time"

// Wire types shared by the HTTP API, the run store and webhook payloads.

type Customer struct {
	Demand int     `json:"demand" validate:"gte=0"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Instance is the JSON form of a problem. Customers[0] is the depot.
type Instance struct {
	Name      string     `json:"name,omitempty"`
	Vehicles  int        `json:"vehicles" validate:"gte=1"`
	Capacity  int        `json:"capacity" validate:"gte=0"`
	Customers []Customer `json:"customers" validate:"required,min=1,dive"`
}

// SolverOptions overrides solver defaults; zero values keep the default.
type SolverOptions struct {
	InitialTemperature    float64 `json:"initialTemperature,omitempty" yaml:"initialTemperature,omitempty" validate:"gte=0"`
	CoolingRate           float64 `json:"coolingRate,omitempty" yaml:"coolingRate,omitempty" validate:"gte=0,lt=1"`
	Iterations            int     `json:"iterations,omitempty" yaml:"iterations,omitempty" validate:"gte=0"`
	TSPIterations         int     `json:"tspIterations,omitempty" yaml:"tspIterations,omitempty" validate:"gte=0"`
	TSPInitialTemperature float64 `json:"tspInitialTemperature,omitempty" yaml:"tspInitialTemperature,omitempty" validate:"gte=0"`
	TSPCoolingRate        float64 `json:"tspCoolingRate,omitempty" yaml:"tspCoolingRate,omitempty" validate:"gte=0,lt=1"`
	MovesPerIteration     int     `json:"movesPerIteration,omitempty" yaml:"movesPerIteration,omitempty" validate:"gte=0,lte=100"`
	Perturbation          string  `json:"perturbation,omitempty" yaml:"perturbation,omitempty" validate:"omitempty,oneof=relocate swap"`
	Construction          string  `json:"construction,omitempty" yaml:"construction,omitempty" validate:"omitempty,oneof=first-fit nearest-depot cheapest-append"`
	Acceptance            string  `json:"acceptance,omitempty" yaml:"acceptance,omitempty" validate:"omitempty,oneof=classic always-adopt"`
	Restarts              int     `json:"restarts,omitempty" yaml:"restarts,omitempty" validate:"gte=0,lte=64"`
	Seed                  int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Polish2Opt            *bool   `json:"polish2Opt,omitempty" yaml:"polish2Opt,omitempty"`
}

type SolveRequest struct {
	Instance       Instance      `json:"instance"`
	Options        SolverOptions `json:"options,omitempty"`
	CallbackURL    string        `json:"callbackUrl,omitempty" validate:"omitempty,url"`
	CallbackSecret string        `json:"callbackSecret,omitempty"`
}

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type Run struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Status      string         `json:"status"`
	Customers   int            `json:"customers"`
	Vehicles    int            `json:"vehicles"`
	Capacity    int            `json:"capacity"`
	Options     SolverOptions  `json:"options"`
	Cost        float64        `json:"cost,omitempty"`
	InitialCost float64        `json:"initialCost,omitempty"`
	Routes      [][]int        `json:"routes,omitempty"`
	Rendered    string         `json:"rendered,omitempty"`
	Metrics     *RunMetrics    `json:"metrics,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
	Labels      map[string]any `json:"labels,omitempty"`
}

type RunMetrics struct {
	Seed                 int64          `json:"seed"`
	Restart              int            `json:"restart"`
	ConstructionAttempts int            `json:"constructionAttempts"`
	Iterations           int            `json:"iterations"`
	Improvements         int            `json:"improvements"`
	AcceptedWorse        int            `json:"acceptedWorse"`
	Rejected             int            `json:"rejected"`
	InitialCost          float64        `json:"initialCost"`
	BestCost             float64        `json:"bestCost"`
	FinalCost            float64        `json:"finalCost"`
	FinalTemperature     float64        `json:"finalTemperature"`
	DurationMs           int64          `json:"durationMs"`
	Snapshots            []CostSnapshot `json:"snapshots,omitempty"`
}

type CostSnapshot struct {
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	BestCost    float64 `json:"bestCost"`
	CurrentCost float64 `json:"currentCost"`
}
