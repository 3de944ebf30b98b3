package store

import (
	"context"
	"errors"

	"cvrpsolver/internal/model"
)

// RunStore persists solve runs for the API server.
type RunStore interface {
	CreateRun(ctx context.Context, run model.Run) (model.Run, error)
	UpdateRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	// ListRuns pages in creation order. cursor is the ID of the last run of
	// the previous page; next is empty on the final page.
	ListRuns(ctx context.Context, cursor string, limit int) (items []model.Run, next string, err error)
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
