package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/run"
	"github.com/playperu/pacer/internal/schedule"
	"github.com/playperu/pacer/internal/struggle"
)

// hostedRun is an engine the server is driving.
type hostedRun struct {
	id     string
	engine *run.Engine
}

// Registry hosts the active runs. A run leaves the registry when it ends;
// from then on it is served from the store.
type Registry struct {
	logger *slog.Logger
	broker *Broker
	opts   Options

	mu   sync.RWMutex
	runs map[string]*hostedRun
}

func NewRegistry(logger *slog.Logger, broker *Broker, opts Options) *Registry {
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real{}
	}
	if opts.Detector.Cooldown == nil {
		opts.Detector = struggle.NewDetector(struggle.DefaultConfig(), nil)
	}
	return &Registry{
		logger: logger,
		broker: broker,
		opts:   opts,
		runs:   make(map[string]*hostedRun),
	}
}

// Start begins a run and hosts it. Speech and haptic cues are forwarded to
// the run's event stream.
func (r *Registry) Start(ctx context.Context, o run.Options) (*hostedRun, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Pacers = withMemoURLs(o.Pacers, r.opts.MemoBaseURL)

	logger := r.logger.With("run_id", o.ID)
	detector := r.opts.Detector
	eng, err := run.Start(ctx, o, run.Deps{
		Scheduler: r.opts.Scheduler,
		Speaker:   &cueSpeaker{broker: r.broker, runID: o.ID},
		Haptics: haptics.NewEngine(r.opts.Scheduler,
			pulseActuator{broker: r.broker, runID: o.ID, device: "phone"},
			pulseActuator{broker: r.broker, runID: o.ID, device: "wearable"},
			nil, logger),
		Publisher: &runPublisher{broker: r.broker, snapshots: r.opts.Snapshots, logger: logger},
		Logger:    r.logger,
		Detector:  &detector,
	})
	if err != nil {
		return nil, err
	}

	h := &hostedRun{id: o.ID, engine: eng}
	r.mu.Lock()
	r.runs[h.id] = h
	r.mu.Unlock()
	return h, nil
}

func (r *Registry) Get(id string) (*hostedRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.runs[id]
	// Finish ends the engine before it drops the run from the map.
	if !ok || h.engine.Ended() {
		return nil, false
	}
	return h, true
}

// Active returns the sessions of every hosted run, oldest first.
func (r *Registry) Active() []pacer.RunSession {
	r.mu.RLock()
	out := make([]pacer.RunSession, 0, len(r.runs))
	for _, h := range r.runs {
		if h.engine.Ended() {
			continue
		}
		out = append(out, h.engine.Session())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Finish ends a hosted run, archives it, and stops hosting it.
func (r *Registry) Finish(ctx context.Context, id string) (ArchivedRun, error) {
	h, ok := r.Get(id)
	if !ok {
		return ArchivedRun{}, ErrNotFound
	}
	session, err := h.engine.End()
	if err != nil {
		return ArchivedRun{}, err
	}
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()

	// The ended event already refreshed the snapshot. Once archived, the
	// store is authoritative and the snapshot goes; otherwise the final
	// stats stay cached for the TTL.
	archived := ArchivedRun{Session: session, Stats: h.engine.Stats()}
	saveErr := r.opts.Store.SaveRun(ctx, archived, h.engine.Points())
	if r.opts.Snapshots != nil {
		if saveErr == nil {
			err = r.opts.Snapshots.Delete(ctx, id)
		} else {
			err = r.opts.Snapshots.Put(ctx, id, archived.Stats)
		}
		if err != nil {
			r.logger.Warn("updating stats snapshot", "run_id", id, "error", err)
		}
	}
	if saveErr != nil {
		return archived, fmt.Errorf("%w: %s: %w", ErrNotArchived, id, saveErr)
	}
	return archived, nil
}

// Close ends and archives every hosted run.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if _, err := r.Finish(ctx, id); err != nil && !errors.Is(err, run.ErrRunEnded) && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(ids) > 0 {
		r.logger.Info("ended active runs", "count", len(ids))
	}
	return errors.Join(errs...)
}

// withMemoURLs fills in the recording URL of memos that have none.
func withMemoURLs(pacers []pacer.Pacer, base string) []pacer.Pacer {
	if base == "" {
		return pacers
	}
	base = strings.TrimRight(base, "/")
	out := make([]pacer.Pacer, len(pacers))
	for i, p := range pacers {
		memos := make([]pacer.Memo, len(p.Memos))
		for j, m := range p.Memos {
			if m.URL == "" {
				m.URL = fmt.Sprintf("%s/%s/%s.m4a", base, p.ID, m.ID)
			}
			memos[j] = m
		}
		p.Memos = memos
		out[i] = p
	}
	return out
}
