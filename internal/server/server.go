package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/pacer/internal/handler/health"
	"github.com/playperu/pacer/internal/schedule"
	"github.com/playperu/pacer/internal/snapshot"
	"github.com/playperu/pacer/internal/struggle"
)

// Options wire the server to its storage and engine settings.
type Options struct {
	Store       Store
	Snapshots   *snapshot.Cache // nil disables the stats cache
	Checks      map[string]health.Checker
	Detector    struggle.Detector
	Scheduler   schedule.Scheduler // nil uses the wall clock
	MemoBaseURL string
}

type Server struct {
	srv    *http.Server
	runs   *Registry
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	broker := NewBroker()
	runs := NewRegistry(logger, broker, opts)
	addRoutes(r, logger, opts, runs, broker)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		runs:   runs,
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Runs is the registry of active runs.
func (s *Server) Runs() *Registry { return s.runs }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, then ends and archives every run that
// is still active.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	return errors.Join(err, s.runs.Close(ctx))
}
