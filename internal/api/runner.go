package api

import (
	"context"
	"errors"
	"log"
	"time"

	"cvrpsolver/internal/config"
	"cvrpsolver/internal/instance"
	"cvrpsolver/internal/metrics"
	"cvrpsolver/internal/model"
	"cvrpsolver/internal/opt"
)

// job is one accepted solve request.
type job struct {
	run            model.Run
	problem        opt.Problem
	solver         config.Solver
	callbackURL    string
	callbackSecret string
}

// execute solves j, persists the outcome, publishes the terminal event and
// enqueues the callback. It returns the finished run and the solver error.
func (s *Server) execute(ctx context.Context, j job) (model.Run, error) {
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	ctx, cancel := context.WithTimeout(ctx, s.Service.SolveTimeout)
	defer cancel()

	runID := j.run.ID
	cfg := j.solver.ToOpt()
	cfg.Observer = func(p opt.Progress) {
		s.Broker.Publish(runID, SSEEvent{Type: EventProgress, Data: map[string]any{
			"runId":       runID,
			"restart":     p.Restart,
			"iteration":   p.Iteration,
			"iterations":  p.Iterations,
			"temperature": p.Temperature,
			"bestCost":    p.BestCost,
			"currentCost": p.CurrentCost,
			"improved":    p.Improved,
		}})
	}

	start := time.Now()
	done := timeOp(ctx, "solve")
	res, err := opt.Solve(ctx, j.problem, cfg)
	done(&err)
	dur := time.Since(start)
	metrics.SolverDuration.WithLabelValues(j.solver.Construction, j.solver.Perturbation).Observe(dur.Seconds())

	run := j.run
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	var evt SSEEvent
	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			run.Error = "solve timed out after " + s.Service.SolveTimeout.String()
		}
		metrics.SolverRuns.WithLabelValues(outcome(err)).Inc()
		evt = SSEEvent{Type: EventFailed, Data: map[string]any{"runId": runID, "error": run.Error}}
		log.Printf("solve_failed run=%s customers=%d dur=%v err=%v", runID, run.Customers, dur, err)
	} else {
		run.Status = model.RunCompleted
		run.Cost = res.Best.Cost
		run.InitialCost = res.Initial.Cost
		run.Routes = instance.Routes(res.Best)
		run.Rendered = instance.Render(res.Best)
		run.Metrics = runMetrics(res.Metrics, dur)
		metrics.SolverRuns.WithLabelValues("completed").Inc()
		metrics.SolverIterations.Add(float64(res.Metrics.Iterations))
		metrics.ConstructionAttempts.Observe(float64(res.Metrics.ConstructionAttempts))
		metrics.BestCost.Set(res.Best.Cost)
		evt = SSEEvent{Type: EventCompleted, Data: map[string]any{"runId": runID, "cost": run.Cost, "initialCost": run.InitialCost}}
		log.Printf("solve_completed run=%s customers=%d cost=%.2f initial=%.2f seed=%d dur=%v", runID, run.Customers, run.Cost, run.InitialCost, res.Metrics.Seed, dur)
	}

	// a cancelled request context must not prevent the outcome from being recorded
	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer storeCancel()
	if uerr := s.updateRun(storeCtx, run); uerr != nil {
		log.Printf("update run=%s: %v", runID, uerr)
	}
	s.Broker.Publish(runID, evt)

	if j.callbackURL != "" {
		if _, herr := s.Hooks.Emit(storeCtx, j.callbackURL, j.callbackSecret, evt.Type, run); herr != nil {
			log.Printf("enqueue callback run=%s: %v", runID, herr)
		}
	}
	return run, err
}

func (s *Server) updateRun(ctx context.Context, run model.Run) (err error) {
	defer timeOp(ctx, "store.update_run")(&err)
	return s.Store.UpdateRun(ctx, run)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, opt.ErrInfeasibleInstance):
		return "infeasible"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}

func runMetrics(m opt.Metrics, dur time.Duration) *model.RunMetrics {
	out := &model.RunMetrics{
		Seed:                 m.Seed,
		Restart:              m.Restart,
		ConstructionAttempts: m.ConstructionAttempts,
		Iterations:           m.Iterations,
		Improvements:         m.Improvements,
		AcceptedWorse:        m.AcceptedWorse,
		Rejected:             m.Rejected,
		InitialCost:          m.InitialCost,
		BestCost:             m.BestCost,
		FinalCost:            m.FinalCost,
		FinalTemperature:     m.FinalTemperature,
		DurationMs:           dur.Milliseconds(),
	}
	for _, sn := range m.Snapshots {
		out.Snapshots = append(out.Snapshots, model.CostSnapshot{
			Iteration:   sn.Iteration,
			Temperature: sn.Temperature,
			BestCost:    sn.BestCost,
			CurrentCost: sn.CurrentCost,
		})
	}
	return out
}
