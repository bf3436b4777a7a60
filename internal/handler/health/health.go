// Package health serves the dependency health endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Result is the outcome of one named check.
type Result struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
}

// Response is the body of GET /healthz. Status is "ok" only when every
// check passed.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

type Handler struct {
	checks  map[string]Checker
	logger  *slog.Logger
	timeout time.Duration
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, logger: logger, timeout: 3 * time.Second}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	results := make([]Result, len(names))

	// Checks never return an error to the group, so one failure does not
	// cancel the others.
	var g errgroup.Group
	for i, name := range names {
		c := h.checks[name]
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			results[i] = Result{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				results[i].Status = "error"
			}
			return nil
		})
	}
	g.Wait()

	resp := Response{Status: "ok", Checks: make(map[string]Result, len(names))}
	for i, name := range names {
		resp.Checks[name] = results[i]
		if results[i].Status != "ok" {
			resp.Status = "error"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
