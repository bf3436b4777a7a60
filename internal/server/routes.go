package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/pacer/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, opts Options, runs *Registry, broker *Broker) {
	store := opts.Store

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("PACER API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, opts.Checks).Routes())

	r.Route("/api/pacers", func(r chi.Router) {
		r.Get("/", handleListPacers(store))
		r.Post("/", handleCreatePacer(store))
		r.Get("/{pacerID}", handleGetPacer(store))
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", handleStartRun(store, runs))
		r.Get("/", handleListRuns(store, runs))
		r.Get("/{runID}", handleGetRun(store, runs))
		r.Get("/{runID}/stats", handleRunStats(store, runs, opts.Snapshots))
		r.Get("/{runID}/gpx", handleRunGPX(store, runs))

		// Live routes: the run must still be hosted.
		r.Group(func(r chi.Router) {
			r.Use(runMiddleware(runs))
			r.Post("/{runID}/points", handleIngestPoints())
			r.Get("/{runID}/telemetry", handleTelemetry(logger))
			r.Get("/{runID}/events", handleEvents(broker))
			r.Post("/{runID}/end", handleEndRun(runs))
		})
	})
}
