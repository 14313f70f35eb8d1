package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sudokulabs/proofd/internal/config"
	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/joblog"
	"github.com/sudokulabs/proofd/internal/observability"
	"github.com/sudokulabs/proofd/internal/runner"
	"github.com/sudokulabs/proofd/internal/ws"
)

func NewRouter(cfg *config.Config, registry job.Registry, trail *joblog.Store, run *runner.Runner, metrics *observability.Metrics, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	wsServer := ws.NewServer(registry, trail, cfg.KeepaliveInterval, cfg.PollInterval, metrics)
	h := NewHandlers(cfg, registry, run)

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/info", h.Info)
	r.Get("/stats", h.Stats)

	// Synchronous checks
	r.Post("/api/validate", h.Validate)
	r.Post("/api/verify", h.Verify)
	r.Post("/api/zkp", h.Zkp)

	// Jobs API
	r.Post("/api/prove", h.Prove)
	r.Get("/api/jobs", h.ListJobs)
	r.Get("/api/jobs/{id}", h.GetJob)

	// Live watchers
	r.Get("/ws/jobs/{id}/status", wsServer.HandleStatus)
	r.Get("/ws/jobs/{id}/logs", wsServer.HandleLogs)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
