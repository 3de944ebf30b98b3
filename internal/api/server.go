package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"cvrpsolver/internal/config"
	"cvrpsolver/internal/metrics"
	"cvrpsolver/internal/store"
	"cvrpsolver/internal/webhooks"
)

type Server struct {
	Store   store.RunStore
	Broker  EventBroker
	Hooks   *webhooks.Worker
	Solver  config.Solver
	Service config.Service

	// StreamTick paces SSE heartbeats and WebSocket pings; each tick also
	// rechecks the stored run so a stream never outlives its run.
	StreamTick time.Duration
	limiter    *rate.Limiter
	validate   *validator.Validate
	runs       sync.WaitGroup
}

// NewServer creates a Server. If DatabaseURL is unset, uses in-memory store;
// if RedisURL is unset or unreachable, events stay in process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.RunStore
	if strings.TrimSpace(cfg.Service.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Service.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.Migrate(context.Background()); err != nil {
			return nil, err
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.Service.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.Service.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
		}
	}
	metrics.RegisterDefault()
	return &Server{
		Store:      s,
		Broker:     broker,
		Hooks:      webhooks.NewWorker(webhooks.NewMemoryQueue(), cfg.Service.WebhookMaxAttempts),
		Solver:     cfg.Solver,
		Service:    cfg.Service,
		StreamTick: heartbeatInterval,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Service.RateRPS), cfg.Service.RateBurst),
		validate:   config.Validator(),
	}, nil
}

// Start launches background workers.
func (s *Server) Start() { s.Hooks.Start() }

// Close waits for in-flight runs and stops background workers.
func (s *Server) Close() {
	s.runs.Wait()
	s.Hooks.Close()
	if rb, ok := s.Broker.(*RedisBroker); ok {
		_ = rb.Close()
	}
	if pg, ok := s.Store.(*store.Postgres); ok {
		_ = pg.Close()
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/solve", s.SolveHandler)
	mux.HandleFunc("GET /v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("GET /v1/runs/{id}", s.RunByIDHandler)
	mux.HandleFunc("GET /v1/runs/{id}/events/stream", s.RunEventsHandler)
	mux.HandleFunc("GET /v1/runs/{id}/ws", s.RunWSHandler)
	mux.HandleFunc("GET /v1/solver/config", s.SolverConfigHandler)

	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /debug/info", s.DebugJSON)
	mux.HandleFunc("GET /openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("GET /openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("GET /docs", s.DocsHandler)

	return logMiddleware(mux)
}
