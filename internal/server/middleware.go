package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const ctxKeyRun ctxKey = iota

// runMiddleware resolves {runID} to a hosted run. Runs that have ended are
// no longer hosted and get 404 here.
func runMiddleware(runs *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, ok := runs.Get(chi.URLParam(r, "runID"))
			if !ok {
				writeError(w, http.StatusNotFound, "active run not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyRun, h)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func runFrom(r *http.Request) *hostedRun {
	return r.Context().Value(ctxKeyRun).(*hostedRun)
}

// newStructuredLogger logs one line per request. Health checks log at debug.
// The route pattern and run id are read after the handler returns, once chi
// has filled in the route context.
func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				level := slog.LevelInfo
				if strings.HasPrefix(r.URL.Path, "/healthz") {
					level = slog.LevelDebug
				}
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						attrs = append(attrs, "route", pattern)
					}
					if id := rctx.URLParam("runID"); id != "" {
						attrs = append(attrs, "run_id", id)
					}
				}
				logger.Log(r.Context(), level, "http request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
