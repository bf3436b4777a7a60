// Package simulate replays a pace profile through a real run engine on a
// manual clock, so a whole run can be exercised in milliseconds.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playperu/pacer/internal/gps"
	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/run"
	"github.com/playperu/pacer/internal/schedule"
)

// Segment holds a pace from At until the next segment starts.
type Segment struct {
	At   time.Duration
	Pace float64 // minutes per mile
}

// Profile is a run plan ordered by At. The run ends at the last segment.
type Profile []Segment

// DemoProfile is a 25 minute run: warm-up, a steady grind with three
// slowdowns, and a late push.
func DemoProfile() Profile {
	s := func(sec int, pace float64) Segment {
		return Segment{At: time.Duration(sec) * time.Second, Pace: pace}
	}
	return Profile{
		s(0, 10.0), s(60, 10.0), s(120, 9.8), s(180, 9.4), s(240, 9.2), s(300, 9.0), s(360, 8.8),
		s(420, 8.6), s(480, 8.5),
		s(540, 9.2),
		s(600, 8.7), s(720, 8.5), s(840, 8.5),
		s(960, 9.8),
		s(1020, 8.8), s(1140, 8.6),
		s(1200, 9.5),
		s(1260, 8.7), s(1380, 8.5),
		s(1440, 8.8),
		s(1500, 8.4),
	}
}

// PaceAt returns the pace of the segment covering t.
func (p Profile) PaceAt(t time.Duration) float64 {
	pace := 0.0
	for _, s := range p {
		if s.At > t {
			break
		}
		pace = s.Pace
	}
	return pace
}

func (p Profile) Duration() time.Duration {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].At
}

// Config describes one simulated run.
type Config struct {
	Options  run.Options
	Profile  Profile
	Interval time.Duration // between GPS samples, default 5s
	Start    time.Time
	Lat, Lon float64
	Seed     uint64
	Logger   *slog.Logger
}

// Result is what a simulated run produced.
type Result struct {
	Session    pacer.RunSession
	Stats      pacer.RunStats
	Points     []pacer.GPSPoint
	Events     []run.Event
	Utterances []run.Utterance
	Pulses     int
}

// Run drives a complete run and ends it.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if len(cfg.Profile) == 0 {
		cfg.Profile = DemoProfile()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)
	}
	if cfg.Lat == 0 && cfg.Lon == 0 {
		cfg.Lat, cfg.Lon = 39.7392, -104.9903
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Options.EstimatedDuration == 0 {
		cfg.Options.EstimatedDuration = cfg.Profile.Duration()
	}

	clock := schedule.NewManual(cfg.Start)
	rec := &recorder{}
	eng, err := run.Start(ctx, cfg.Options, run.Deps{
		Scheduler: clock,
		Speaker:   rec,
		Haptics:   haptics.NewEngine(clock, rec, nil, rand.New(rand.NewPCG(cfg.Seed, 1)), cfg.Logger),
		Publisher: rec,
		Logger:    cfg.Logger,
		Rand:      rand.New(rand.NewPCG(cfg.Seed, 2)),
	})
	if err != nil {
		return Result{}, err
	}

	walker := gps.NewWalker(cfg.Lat, cfg.Lon, cfg.Start)
	if err := eng.Ingest(walker.Start()); err != nil {
		return Result{}, err
	}
	total := cfg.Profile.Duration()
	for elapsed := time.Duration(0); elapsed < total; elapsed += cfg.Interval {
		if err := ctx.Err(); err != nil {
			_, endErr := eng.End()
			return Result{}, errors.Join(err, endErr)
		}
		pace := cfg.Profile.PaceAt(elapsed)
		clock.Advance(cfg.Interval)
		if err := eng.Ingest(walker.Step(cfg.Interval, pace)); err != nil {
			_, endErr := eng.End()
			return Result{}, errors.Join(fmt.Errorf("ingest at %v: %w", elapsed, err), endErr)
		}
	}

	session, err := eng.End()
	if err != nil {
		return Result{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return Result{
		Session:    session,
		Stats:      eng.Stats(),
		Points:     eng.Points(),
		Events:     rec.events,
		Utterances: rec.spoken,
		Pulses:     rec.pulses,
	}, nil
}

// recorder stands in for the phone: it records speech, haptic pulses and
// published events.
type recorder struct {
	mu     sync.Mutex
	events []run.Event
	spoken []run.Utterance
	pulses int
}

func (r *recorder) Publish(_ string, ev run.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Speak(_ context.Context, u run.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, u)
	return nil
}

func (r *recorder) Stop() {}

func (r *recorder) Impact(haptics.Pulse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulses++
	return nil
}
