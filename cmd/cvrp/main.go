// Command cvrp solves a CVRP instance file and writes the initial and best
// solutions next to each other in the output directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"cvrpsolver/internal/buildinfo"
	"cvrpsolver/internal/config"
	"cvrpsolver/internal/instance"
	"cvrpsolver/internal/opt"
	"cvrpsolver/internal/sysinfo"
)

type options struct {
	config  string
	out     string
	format  string
	report  bool
	timeout time.Duration
	verbose bool
	version bool
}

// report is written to <out>/<base>.json with -report.
type report struct {
	Instance    string            `json:"instance"`
	Customers   int               `json:"customers"`
	Vehicles    int               `json:"vehicles"`
	Capacity    int               `json:"capacity"`
	Solver      config.Solver     `json:"solver"`
	InitialCost float64           `json:"initialCost"`
	BestCost    float64           `json:"bestCost"`
	Routes      [][]int           `json:"routes"`
	Metrics     opt.Metrics       `json:"metrics"`
	DurationMs  int64             `json:"durationMs"`
	System      *sysinfo.SysInfo  `json:"system,omitempty"`
	Build       map[string]string `json:"build"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cvrp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.config, "config", "", "path to a YAML solver config")
	fs.StringVar(&o.out, "out", "results", "output directory for .sol files")
	fs.StringVar(&o.format, "format", "text", "stdout format: text or json")
	fs.BoolVar(&o.report, "report", false, "also write <base>.json with run metrics and host info")
	fs.DurationVar(&o.timeout, "timeout", 0, "stop waiting for restarts after this long (0 = no limit)")
	fs.BoolVar(&o.verbose, "v", false, "log progress snapshots")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: cvrp [flags] <instance>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if o.version {
		fmt.Fprintln(stdout, buildinfo.String())
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	if o.format != "text" && o.format != "json" {
		fmt.Fprintf(stderr, "unknown format %q\n", o.format)
		return 2
	}

	logger := log.New(stderr, "", log.LstdFlags)
	if err := solve(fs.Arg(0), o, stdout, logger); err != nil {
		logger.Printf("error: %v", err)
		if errors.Is(err, opt.ErrInfeasibleInstance) {
			return 3
		}
		return 1
	}
	return 0
}

func solve(path string, o options, stdout io.Writer, logger *log.Logger) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	p, err := instance.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	sc := cfg.Solver.ToOpt()
	if o.verbose {
		sc.Observer = func(pr opt.Progress) {
			if pr.Iteration%cfg.Solver.SnapshotEvery == 0 {
				logger.Printf("progress restart=%d iter=%d/%d temp=%.4g best=%.2f current=%.2f", pr.Restart, pr.Iteration, pr.Iterations, pr.Temperature, pr.BestCost, pr.CurrentCost)
			}
		}
	}

	ctx := context.Background()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := opt.Solve(ctx, p, sc)
	if err != nil {
		return err
	}
	dur := time.Since(start)

	base := instance.BaseName(path)
	initPath, bestPath, err := instance.SaveFiles(o.out, base, res.Initial, res.Best)
	if err != nil {
		return err
	}
	logger.Printf("solved instance=%s customers=%d initial=%.2f best=%.2f attempts=%d seed=%d dur=%v", base, len(p.Customers)-1, res.Initial.Cost, res.Best.Cost, res.Metrics.ConstructionAttempts, res.Metrics.Seed, dur)

	rep := report{
		Instance:    base,
		Customers:   len(p.Customers) - 1,
		Vehicles:    p.Vehicles,
		Capacity:    p.Capacity,
		Solver:      cfg.Solver,
		InitialCost: res.Initial.Cost,
		BestCost:    res.Best.Cost,
		Routes:      instance.Routes(res.Best),
		Metrics:     res.Metrics,
		DurationMs:  dur.Milliseconds(),
		Build:       buildinfo.Info(),
	}
	if o.report {
		si := sysinfo.Collect()
		rep.System = &si
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(o.out, base+".json"), b, 0o644); err != nil {
			return err
		}
	}

	switch o.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		fmt.Fprintf(stdout, "initial %.2f -> %s\n", res.Initial.Cost, initPath)
		fmt.Fprintf(stdout, "best    %.2f -> %s\n", res.Best.Cost, bestPath)
		fmt.Fprintln(stdout, instance.Render(res.Best))
	}
	return nil
}
