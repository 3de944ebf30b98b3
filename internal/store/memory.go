package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cvrpsolver/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	runs  map[string]model.Run
	order []string // run ids in creation order
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.Run{}}
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunRunning
	}
	m.runs[run.ID] = copyRun(run)
	m.order = append(m.order, run.ID)
	return run, nil
}

func (m *Memory) UpdateRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.runs[run.ID]
	if !ok {
		return ErrNotFound
	}
	run.CreatedAt = prev.CreatedAt
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return copyRun(r), nil
}

func (m *Memory) ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Run{}
	for i := start; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, copyRun(m.runs[m.order[i]]))
	}
	var next string
	if len(out) == limit && start+limit < len(m.order) {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// copyRun detaches a run from caller-owned slices, maps and pointers.
func copyRun(r model.Run) model.Run {
	if r.Routes != nil {
		routes := make([][]int, len(r.Routes))
		for i, rt := range r.Routes {
			routes[i] = append([]int{}, rt...)
		}
		r.Routes = routes
	}
	if r.Metrics != nil {
		m := *r.Metrics
		m.Snapshots = append([]model.CostSnapshot(nil), m.Snapshots...)
		r.Metrics = &m
	}
	if r.Options.Polish2Opt != nil {
		v := *r.Options.Polish2Opt
		r.Options.Polish2Opt = &v
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	if r.Labels != nil {
		labels := make(map[string]any, len(r.Labels))
		for k, v := range r.Labels {
			labels[k] = v
		}
		r.Labels = labels
	}
	return r
}
