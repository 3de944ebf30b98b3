package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cvrpsolver/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    seq          BIGSERIAL UNIQUE,
    id           UUID PRIMARY KEY,
    name         TEXT,
    status       TEXT NOT NULL,
    customers    INT NOT NULL,
    vehicles     INT NOT NULL,
    capacity     INT NOT NULL,
    options      JSONB NOT NULL DEFAULT '{}'::jsonb,
    cost         DOUBLE PRECISION,
    initial_cost DOUBLE PRECISION,
    routes       JSONB,
    rendered     TEXT,
    metrics      JSONB,
    labels       JSONB,
    error        TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    finished_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status);
`

// Migrate creates the runs table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunRunning
	}
	opts, err := json.Marshal(run.Options)
	if err != nil {
		return model.Run{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, name, status, customers, vehicles, capacity, options, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID, nullIfEmpty(run.Name), run.Status, run.Customers, run.Vehicles, run.Capacity, opts, run.CreatedAt)
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	routes, err := jsonArg(run.Routes)
	if err != nil {
		return err
	}
	metrics, err := jsonArg(run.Metrics)
	if err != nil {
		return err
	}
	labels, err := jsonArg(run.Labels)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$2, cost=$3, initial_cost=$4, routes=$5, rendered=$6, metrics=$7, labels=$8, error=$9, finished_at=$10 WHERE id=$1`,
		run.ID, run.Status, run.Cost, run.InitialCost, routes, nullIfEmpty(run.Rendered), metrics, labels, nullIfEmpty(run.Error), run.FinishedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id::text, name, status, customers, vehicles, capacity, options, cost, initial_cost, routes, rendered, metrics, labels, error, created_at, finished_at`

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE seq > (SELECT seq FROM runs WHERE id::text=$1) ORDER BY seq LIMIT $2`, cursor, limit+1)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq LIMIT $1`, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var (
		r                           model.Run
		name, rendered, errText     sql.NullString
		cost, initialCost           sql.NullFloat64
		opts, routes, metrics, lbls []byte
		finished                    sql.NullTime
	)
	if err := s.Scan(&r.ID, &name, &r.Status, &r.Customers, &r.Vehicles, &r.Capacity, &opts, &cost, &initialCost, &routes, &rendered, &metrics, &lbls, &errText, &r.CreatedAt, &finished); err != nil {
		return model.Run{}, err
	}
	r.Name = name.String
	r.Rendered = rendered.String
	r.Error = errText.String
	r.Cost = cost.Float64
	r.InitialCost = initialCost.Float64
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if err := decodeColumn(opts, &r.Options); err != nil {
		return model.Run{}, fmt.Errorf("run %s options: %w", r.ID, err)
	}
	if err := decodeColumn(routes, &r.Routes); err != nil {
		return model.Run{}, fmt.Errorf("run %s routes: %w", r.ID, err)
	}
	if len(metrics) > 0 {
		r.Metrics = &model.RunMetrics{}
		if err := decodeColumn(metrics, r.Metrics); err != nil {
			return model.Run{}, fmt.Errorf("run %s metrics: %w", r.ID, err)
		}
	}
	if err := decodeColumn(lbls, &r.Labels); err != nil {
		return model.Run{}, fmt.Errorf("run %s labels: %w", r.ID, err)
	}
	return r, nil
}

func decodeColumn(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

// jsonArg encodes v for a JSONB column; nil values map to SQL NULL.
func jsonArg(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case [][]int:
		if x == nil {
			return nil, nil
		}
	case *model.RunMetrics:
		if x == nil {
			return nil, nil
		}
	case map[string]any:
		if x == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
