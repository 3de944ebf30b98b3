package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cvrpsolver/internal/instance"
	"cvrpsolver/internal/model"
	"cvrpsolver/internal/opt"
	"cvrpsolver/internal/store"
)

// SolveHandler handles POST /v1/solve. The run executes in the background
// and 202 is returned unless ?wait=true is given.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "too many solve requests", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := s.validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	p := instance.ToProblem(req.Instance)
	if err := p.Validate(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	solver := s.Solver.Merge(req.Options)
	if err := s.validate.Struct(solver); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solver options", describe(err).Error(), r.URL.Path)
		return
	}

	run, err := s.Store.CreateRun(r.Context(), model.Run{
		Name:      req.Instance.Name,
		Status:    model.RunRunning,
		Customers: len(req.Instance.Customers) - 1,
		Vehicles:  req.Instance.Vehicles,
		Capacity:  req.Instance.Capacity,
		Options:   req.Options,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}
	j := job{run: run, problem: p, solver: solver, callbackURL: req.CallbackURL, callbackSecret: req.CallbackSecret}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		done, err := s.execute(r.Context(), j)
		switch {
		case errors.Is(err, opt.ErrInfeasibleInstance):
			writeProblem(w, http.StatusUnprocessableEntity, "Infeasible instance", done.Error, "/v1/runs/"+done.ID)
		case errors.Is(err, context.DeadlineExceeded):
			writeProblem(w, http.StatusGatewayTimeout, "Solve timed out", done.Error, "/v1/runs/"+done.ID)
		case err != nil:
			writeProblem(w, http.StatusInternalServerError, "Solve failed", done.Error, "/v1/runs/"+done.ID)
		default:
			writeJSON(w, http.StatusOK, done)
		}
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_, _ = s.execute(context.WithoutCancel(r.Context()), j)
	}()
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": run.Status})
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (model.Run, bool) {
	id := r.PathValue("id")
	run, err := s.getRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", "no run with id "+id, r.URL.Path)
		return model.Run{}, false
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return model.Run{}, false
	}
	return run, true
}

// terminalEvent builds the closing event for a finished run.
func terminalEvent(run model.Run) (SSEEvent, bool) {
	switch run.Status {
	case model.RunCompleted:
		return SSEEvent{Type: EventCompleted, Data: map[string]any{"runId": run.ID, "cost": run.Cost, "initialCost": run.InitialCost}}, true
	case model.RunFailed:
		return SSEEvent{Type: EventFailed, Data: map[string]any{"runId": run.ID, "error": run.Error}}, true
	}
	return SSEEvent{}, false
}

const heartbeatInterval = 15 * time.Second

// RunEventsHandler handles GET /v1/runs/{id}/events/stream as Server-Sent Events.
// The stream ends after run.completed or run.failed.
func (s *Server) RunEventsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// subscribe before reading the run so a completion in between is not lost
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(evt SSEEvent) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", id, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}

	heartbeat()
	if evt, done := terminalEvent(run); done {
		send(evt)
		return
	}
	ticker := time.NewTicker(s.StreamTick)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if evt.Terminal() {
				return
			}
		case <-ticker.C:
			if evt, done := s.finished(r.Context(), id); done {
				send(evt)
				return
			}
			heartbeat()
		}
	}
}

// finished reloads the run and returns its terminal event once it is done.
// Streams use it to recover a terminal event the broker never delivered.
func (s *Server) finished(ctx context.Context, id string) (SSEEvent, bool) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return SSEEvent{}, false
	}
	return terminalEvent(run)
}

// SolverConfigHandler handles GET /v1/solver/config
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Solver)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getRun(ctx context.Context, id string) (run model.Run, err error) {
	defer timeOp(ctx, "store.get_run")(&err)
	return s.Store.GetRun(ctx, id)
}
