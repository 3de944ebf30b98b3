// Package config loads solver tuning and service settings.
//
// Values are resolved in order: built-in defaults, an optional YAML file, an
// optional .env file, then process environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cvrpsolver/internal/model"
	"cvrpsolver/internal/opt"
)

type Solver struct {
	InitialTemperature      float64 `yaml:"initialTemperature" json:"initialTemperature" validate:"gt=0"`
	CoolingRate             float64 `yaml:"coolingRate" json:"coolingRate" validate:"gt=0,lt=1"`
	Iterations              int     `yaml:"iterations" json:"iterations" validate:"gte=0"`
	TSPIterations           int     `yaml:"tspIterations" json:"tspIterations" validate:"gte=0"`
	TSPInitialTemperature   float64 `yaml:"tspInitialTemperature" json:"tspInitialTemperature" validate:"gt=0"`
	TSPCoolingRate          float64 `yaml:"tspCoolingRate" json:"tspCoolingRate" validate:"gt=0,lt=1"`
	MovesPerIteration       int     `yaml:"movesPerIteration" json:"movesPerIteration" validate:"gte=1"`
	Perturbation            string  `yaml:"perturbation" json:"perturbation" validate:"oneof=relocate swap"`
	Construction            string  `yaml:"construction" json:"construction" validate:"oneof=first-fit nearest-depot cheapest-append"`
	Acceptance              string  `yaml:"acceptance" json:"acceptance" validate:"oneof=classic always-adopt"`
	MaxConstructionAttempts int     `yaml:"maxConstructionAttempts" json:"maxConstructionAttempts" validate:"gte=1"`
	JitterSwaps             int     `yaml:"jitterSwaps" json:"jitterSwaps" validate:"gte=0"`
	Restarts                int     `yaml:"restarts" json:"restarts" validate:"gte=1,lte=64"`
	Seed                    int64   `yaml:"seed" json:"seed"`
	Polish2Opt              bool    `yaml:"polish2Opt" json:"polish2Opt"`
	SnapshotEvery           int     `yaml:"snapshotEvery" json:"snapshotEvery" validate:"gte=1"`
	CheckInvariants         bool    `yaml:"checkInvariants" json:"checkInvariants"`
}

type Service struct {
	Port               string        `yaml:"port" json:"port" validate:"required,numeric"`
	DatabaseURL        string        `yaml:"databaseURL" json:"-"`
	RedisURL           string        `yaml:"redisURL" json:"-"`
	RateRPS            float64       `yaml:"rateRPS" json:"rateRPS" validate:"gt=0"`
	RateBurst          int           `yaml:"rateBurst" json:"rateBurst" validate:"gte=1"`
	WebhookMaxAttempts int           `yaml:"webhookMaxAttempts" json:"webhookMaxAttempts" validate:"gte=1"`
	SolveTimeout       time.Duration `yaml:"solveTimeout" json:"solveTimeout" validate:"gt=0"`

	// Per-request ceilings. Searches cannot be interrupted, so these bound the
	// work a single solve request can start.
	MaxIterations    int `yaml:"maxIterations" json:"maxIterations" validate:"gte=1"`
	MaxTSPIterations int `yaml:"maxTspIterations" json:"maxTspIterations" validate:"gte=1"`
	MaxRestarts      int `yaml:"maxRestarts" json:"maxRestarts" validate:"gte=1,lte=64"`
}

type Config struct {
	Solver  Solver  `yaml:"solver" json:"solver"`
	Service Service `yaml:"service" json:"service"`
}

func DefaultSolver() Solver {
	d := opt.DefaultConfig()
	return Solver{
		InitialTemperature:      d.InitialTemp,
		CoolingRate:             d.Cooling,
		Iterations:              d.Iterations,
		TSPIterations:           d.TSPIterations,
		TSPInitialTemperature:   d.TSPInitialTemp,
		TSPCoolingRate:          d.TSPCooling,
		MovesPerIteration:       d.MovesPerIteration,
		Perturbation:            string(d.Perturbation),
		Construction:            d.Construction,
		Acceptance:              string(d.Acceptance),
		MaxConstructionAttempts: d.MaxConstructionAttempts,
		JitterSwaps:             d.JitterSwaps,
		Restarts:                d.Restarts,
		Seed:                    d.Seed,
		Polish2Opt:              d.Polish2Opt,
		SnapshotEvery:           d.SnapshotEvery,
		CheckInvariants:         d.CheckInvariants,
	}
}

func DefaultService() Service {
	return Service{
		Port:               "8080",
		RateRPS:            5,
		RateBurst:          10,
		WebhookMaxAttempts: 5,
		SolveTimeout:       2 * time.Minute,
		MaxIterations:      10000,
		MaxTSPIterations:   1000,
		MaxRestarts:        8,
	}
}

func Default() Config {
	return Config{Solver: DefaultSolver(), Service: DefaultService()}
}

// Load resolves the configuration. An empty path skips the YAML file; a
// missing .env file is ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validator exposes the shared instance for request validation.
func Validator() *validator.Validate { return validate }

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}
	e.str("PORT", &c.Service.Port)
	e.str("DATABASE_URL", &c.Service.DatabaseURL)
	e.str("REDIS_URL", &c.Service.RedisURL)
	e.float("RATE_RPS", &c.Service.RateRPS)
	e.int("RATE_BURST", &c.Service.RateBurst)
	e.int("WEBHOOK_MAX_ATTEMPTS", &c.Service.WebhookMaxAttempts)
	e.duration("CVRP_SOLVE_TIMEOUT", &c.Service.SolveTimeout)
	e.int("CVRP_MAX_ITERATIONS", &c.Service.MaxIterations)
	e.int("CVRP_MAX_TSP_ITERATIONS", &c.Service.MaxTSPIterations)
	e.int("CVRP_MAX_RESTARTS", &c.Service.MaxRestarts)

	s := &c.Solver
	e.float("CVRP_INITIAL_TEMPERATURE", &s.InitialTemperature)
	e.float("CVRP_COOLING_RATE", &s.CoolingRate)
	e.int("CVRP_ITERATIONS", &s.Iterations)
	e.int("CVRP_TSP_ITERATIONS", &s.TSPIterations)
	e.float("CVRP_TSP_INITIAL_TEMPERATURE", &s.TSPInitialTemperature)
	e.float("CVRP_TSP_COOLING_RATE", &s.TSPCoolingRate)
	e.int("CVRP_MOVES_PER_ITERATION", &s.MovesPerIteration)
	e.str("CVRP_PERTURBATION", &s.Perturbation)
	e.str("CVRP_CONSTRUCTION", &s.Construction)
	e.str("CVRP_ACCEPTANCE", &s.Acceptance)
	e.int("CVRP_MAX_CONSTRUCTION_ATTEMPTS", &s.MaxConstructionAttempts)
	e.int("CVRP_JITTER_SWAPS", &s.JitterSwaps)
	e.int("CVRP_RESTARTS", &s.Restarts)
	e.int64("CVRP_SEED", &s.Seed)
	e.bool("CVRP_POLISH_2OPT", &s.Polish2Opt)
	e.int("CVRP_SNAPSHOT_EVERY", &s.SnapshotEvery)
	e.bool("CVRP_CHECK_INVARIANTS", &s.CheckInvariants)
	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("env %s=%q: %w", key, v, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

// ToOpt converts the tuning section to a solver configuration.
func (s Solver) ToOpt() opt.Config {
	return opt.Config{
		InitialTemp:             s.InitialTemperature,
		Cooling:                 s.CoolingRate,
		Iterations:              s.Iterations,
		TSPInitialTemp:          s.TSPInitialTemperature,
		TSPCooling:              s.TSPCoolingRate,
		TSPIterations:           s.TSPIterations,
		MovesPerIteration:       s.MovesPerIteration,
		Perturbation:            opt.Perturbation(s.Perturbation),
		Construction:            s.Construction,
		Acceptance:              opt.Acceptance(s.Acceptance),
		MaxConstructionAttempts: s.MaxConstructionAttempts,
		JitterSwaps:             s.JitterSwaps,
		Restarts:                s.Restarts,
		Seed:                    s.Seed,
		Polish2Opt:              s.Polish2Opt,
		SnapshotEvery:           s.SnapshotEvery,
		CheckInvariants:         s.CheckInvariants,
	}
}

// Merge overlays the non-zero fields of per-request options.
func (s Solver) Merge(o model.SolverOptions) Solver {
	if o.InitialTemperature > 0 {
		s.InitialTemperature = o.InitialTemperature
	}
	if o.CoolingRate > 0 {
		s.CoolingRate = o.CoolingRate
	}
	if o.Iterations > 0 {
		s.Iterations = o.Iterations
	}
	if o.TSPIterations > 0 {
		s.TSPIterations = o.TSPIterations
	}
	if o.TSPInitialTemperature > 0 {
		s.TSPInitialTemperature = o.TSPInitialTemperature
	}
	if o.TSPCoolingRate > 0 {
		s.TSPCoolingRate = o.TSPCoolingRate
	}
	if o.MovesPerIteration > 0 {
		s.MovesPerIteration = o.MovesPerIteration
	}
	if o.Perturbation != "" {
		s.Perturbation = o.Perturbation
	}
	if o.Construction != "" {
		s.Construction = o.Construction
	}
	if o.Acceptance != "" {
		s.Acceptance = o.Acceptance
	}
	if o.Restarts > 0 {
		s.Restarts = o.Restarts
	}
	if o.Seed != 0 {
		s.Seed = o.Seed
	}
	if o.Polish2Opt != nil {
		s.Polish2Opt = *o.Polish2Opt
	}
	return s
}
