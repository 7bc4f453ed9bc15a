package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readiness is the /readyz response body.
type readiness struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Queue     string `json:"queue"`
	Scheduler string `json:"scheduler"`
}

// setupRouter creates the ops router: liveness, readiness and metrics.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Get("/readyz", app.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}

// handleReady reports ready when the database answers. A queue that is down
// or disabled is reported but does not fail readiness: scans keep running
// and reminders are skipped until the broker is back.
func (app *application) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := readiness{
		Status:    "ok",
		Database:  "ok",
		Queue:     app.broker.Status().String(),
		Scheduler: app.scheduler.State().String(),
	}
	code := http.StatusOK

	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Warn("readiness check failed", "error", err)
		body.Status = "unavailable"
		body.Database = "unreachable"
		code = http.StatusServiceUnavailable
	} else if app.broker.Status() != queue.StatusConnected {
		body.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		app.logger.Error("failed to write readiness response", "error", err)
	}
}
