package api

import (
	"net/http"
	"time"

	"cvrpsolver/internal/buildinfo"
	"cvrpsolver/internal/sysinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	_, redis := s.Broker.(*RedisBroker)
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"host":  sysinfo.Collect(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 s.Service.Port,
			"RATE_RPS":             s.Service.RateRPS,
			"RATE_BURST":           s.Service.RateBurst,
			"WEBHOOK_MAX_ATTEMPTS": s.Service.WebhookMaxAttempts,
			"SOLVE_TIMEOUT":        s.Service.SolveTimeout.String(),
			"HAS_DATABASE_URL":     s.Service.DatabaseURL != "",
			"HAS_REDIS_URL":        s.Service.RedisURL != "",
			"REDIS_BROKER":         redis,
		},
	})
}
