// Package run hosts the active run engine: it consumes GPS samples, keeps
// the live stats, and fires hype moments with voice, haptics and overlay.
package run

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pacer/internal/gps"
	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/hype"
	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/schedule"
	"github.com/playperu/pacer/internal/struggle"
)

var (
	ErrNoPacers = errors.New("no pacers selected")
	ErrRunEnded = errors.New("run has ended")
)

const (
	TickInterval    = time.Second
	OverlayDuration = 4 * time.Second
)

// Options configure one run. Pacers are the selected pacers in rotation
// order, with their memo and track pools.
type Options struct {
	ID                string // empty generates one
	RunnerID          string
	Pacers            []pacer.Pacer
	VoiceMode         pacer.VoiceMode
	Vibe              pacer.Vibe
	MusicEnabled      bool
	Haptics           pacer.HapticSettings
	EstimatedDuration time.Duration // 0 disables the late_run trigger
}

// Utterance is what the speaker is asked to play for a hype moment.
type Utterance struct {
	RunID     string          `json:"runId"`
	EventID   string          `json:"eventId"`
	VoiceType pacer.VoiceType `json:"voiceType"`
	PacerID   string          `json:"pacerId"`
	PacerName string          `json:"pacerName"`
	Vibe      pacer.Vibe      `json:"vibe"`
	Text      string          `json:"text"`
	MemoURL   string          `json:"memoUrl,omitempty"`
}

// Speaker plays memos and synthesizes lines. Speak may block until playback
// ends; ctx is cancelled when the moment is superseded or the run ends.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
	Stop()
}

// Haptics is satisfied by *haptics.Engine.
type Haptics interface {
	Play(vibe pacer.Vibe, s pacer.HapticSettings) bool
	Stop()
}

// LocationSource delivers GPS samples until the returned stop func is called.
type LocationSource interface {
	Subscribe(ctx context.Context, fn func(pacer.GPSPoint)) (stop func(), err error)
}

// Deps are the engine's collaborators. Every field is optional.
type Deps struct {
	Scheduler schedule.Scheduler
	Speaker   Speaker
	Haptics   Haptics
	Publisher Publisher
	Location  LocationSource
	Logger    *slog.Logger
	Rand      *rand.Rand
	Lines     hype.LinePool
	Detector  *struggle.Detector
	NewID     func() string
}

type Engine struct {
	opts     Options
	sched    schedule.Scheduler
	speaker  Speaker
	haptics  Haptics
	pub      Publisher
	log      *slog.Logger
	orch     *hype.Orchestrator
	detector struggle.Detector

	ctx    context.Context
	cancel context.CancelFunc

	// pubMu is taken before mu is released, so batches reach the Publisher
	// in the order their state was built. Lock order: mu, then pubMu.
	pubMu sync.Mutex

	mu           sync.Mutex
	session      *pacer.RunSession
	state        *hype.State
	roster       []pacer.Pacer
	est          *gps.Estimator
	stats        pacer.RunStats
	status       pacer.GPSStatus
	overlay      *pacer.HypeEvent
	ended        bool
	hypeGen      uint64
	tick         schedule.Task
	voiceTask    schedule.Task
	overlayTask  schedule.Task
	speechCancel context.CancelFunc
	stopLocation func()
}

// Start begins a run. It fails only when no pacer is selected.
func Start(ctx context.Context, opts Options, deps Deps) (*Engine, error) {
	if len(opts.Pacers) == 0 {
		return nil, ErrNoPacers
	}
	if deps.Scheduler == nil {
		deps.Scheduler = schedule.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Speaker == nil {
		deps.Speaker = nopSpeaker{}
	}
	if deps.Haptics == nil {
		deps.Haptics = nopHaptics{}
	}
	if deps.Publisher == nil {
		deps.Publisher = PublisherFunc(func(string, Event) {})
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	detector := struggle.NewDetector(struggle.DefaultConfig(), nil)
	if deps.Detector != nil {
		detector = *deps.Detector
	}

	orch := hype.New(deps.Lines, deps.Rand)
	orch.NewID = deps.NewID

	ids := make([]string, len(opts.Pacers))
	names := make([]string, len(opts.Pacers))
	for i, p := range opts.Pacers {
		ids[i] = p.ID
		names[i] = p.Name
	}
	if opts.ID == "" {
		opts.ID = deps.NewID()
	}
	session := &pacer.RunSession{
		ID:           opts.ID,
		RunnerID:     opts.RunnerID,
		PacerIDs:     ids,
		PacerNames:   names,
		VoiceMode:    opts.VoiceMode,
		Vibe:         opts.Vibe,
		MusicEnabled: opts.MusicEnabled,
		StartTime:    deps.Scheduler.Now(),
		HypeEvents:   []pacer.HypeEvent{},
		RecapTracks:  []pacer.RecapTrack{},
	}

	e := &Engine{
		opts:     opts,
		sched:    deps.Scheduler,
		speaker:  deps.Speaker,
		haptics:  deps.Haptics,
		pub:      deps.Publisher,
		log:      deps.Logger.With("run_id", session.ID),
		orch:     orch,
		detector: detector,
		session:  session,
		state:    hype.NewState(),
		roster:   append([]pacer.Pacer(nil), opts.Pacers...),
		est:      gps.NewEstimator(),
		status:   pacer.GPSRequesting,
		stats:    pacer.RunStats{IsRunning: true},
	}
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.tick = e.sched.Every(TickInterval, e.onTick)
	e.mu.Unlock()

	if deps.Location != nil {
		stop, err := deps.Location.Subscribe(e.ctx, func(p pacer.GPSPoint) {
			if err := e.Ingest(p); err != nil && !errors.Is(err, ErrRunEnded) {
				e.log.Warn("ingest gps point", "error", err)
			}
		})
		if err != nil {
			// Time-only tracking: distance stays zero, elapsed keeps ticking.
			e.log.Warn("location unavailable", "error", err)
			e.setStatus(pacer.GPSError)
		} else {
			e.mu.Lock()
			e.stopLocation = stop
			e.mu.Unlock()
		}
	}

	e.log.Info("run started",
		"pacers", len(ids),
		"voice_mode", opts.VoiceMode,
		"vibe", opts.Vibe,
		"music", opts.MusicEnabled,
	)
	return e, nil
}

// Ingest records one GPS sample and evaluates the struggle detector.
func (e *Engine) Ingest(p pacer.GPSPoint) error {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return ErrRunEnded
	}
	now := e.sched.Now()
	elapsed := now.Sub(e.session.StartTime)
	u := e.est.Add(p, elapsed)
	if !u.Accepted {
		e.mu.Unlock()
		e.log.Debug("gps point dropped", "timestamp", p.Timestamp)
		return nil
	}

	var out []Event
	if e.status != pacer.GPSTracking {
		e.status = pacer.GPSTracking
		out = append(out, Event{Type: EventGPSStatus, GPSStatus: e.status})
	}
	e.stats = pacer.RunStats{
		ElapsedSeconds:        elapsed.Seconds(),
		DistanceMiles:         u.DistanceMiles,
		CurrentPaceMinPerMile: u.CurrentPace,
		RollingPaceMinPerMile: u.RollingPace,
		IsRunning:             true,
	}
	if u.BaselineCaptured {
		e.log.Debug("baseline captured", "pace", u.Baseline)
	}
	out = append(out, e.statsEvent())
	out = e.evaluateLocked(now, out)
	e.unlockAndPublish(out)
	return nil
}

func (e *Engine) onTick() {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return
	}
	now := e.sched.Now()
	e.stats.ElapsedSeconds = now.Sub(e.session.StartTime).Seconds()
	out := []Event{e.statsEvent()}
	out = e.evaluateLocked(now, out)
	e.unlockAndPublish(out)
}

// evaluateLocked runs the detector and fires a hype moment on a trigger.
// Caller holds e.mu.
func (e *Engine) evaluateLocked(now time.Time, out []Event) []Event {
	baseline, _ := e.est.Baseline()
	trigger, ok := e.detector.Evaluate(struggle.Input{
		Stats:          e.stats,
		BaselinePace:   baseline,
		LastEventTime:  e.state.LastEventTime,
		EventCount:     e.state.EventCount,
		EstimatedTotal: e.opts.EstimatedDuration,
		Intensity:      e.opts.Haptics.Intensity,
		Now:            now,
	})
	if !ok {
		return out
	}
	ev, ok := e.orch.Fire(e.session, e.state, e.roster, trigger, now)
	if !ok {
		e.log.Debug("hype turn aborted", "trigger", trigger, "pacer_index", e.state.LastPacerIndex+1)
		return out
	}
	e.log.Info("hype fired",
		"trigger", ev.TriggerType,
		"voice", ev.VoiceType,
		"pacer_id", ev.PacerID,
		"track_id", ev.TrackID,
		"count", e.state.EventCount,
	)

	e.supersedeLocked()
	e.hypeGen++
	g := e.hypeGen
	shown := ev
	e.overlay = &shown

	e.haptics.Play(e.opts.Vibe, e.opts.Haptics)
	e.voiceTask = e.sched.AfterFunc(haptics.LeadTime, func() { e.speak(g, ev) })
	e.overlayTask = e.sched.AfterFunc(OverlayDuration, func() { e.hideOverlay(g) })

	return append(out, Event{Type: EventHype, Hype: &ev, HypeCount: e.state.EventCount})
}

// supersedeLocked cancels the voice and overlay of the previous moment.
// Haptics.Play replaces the previous pattern itself.
func (e *Engine) supersedeLocked() {
	if e.voiceTask != nil {
		e.voiceTask.Stop()
		e.voiceTask = nil
	}
	if e.overlayTask != nil {
		e.overlayTask.Stop()
		e.overlayTask = nil
	}
	if e.speechCancel != nil {
		e.speechCancel()
		e.speechCancel = nil
		e.speaker.Stop()
	}
}

func (e *Engine) speak(g uint64, ev pacer.HypeEvent) {
	e.mu.Lock()
	if e.ended || g != e.hypeGen {
		e.mu.Unlock()
		return
	}
	e.voiceTask = nil
	ctx, cancel := context.WithCancel(e.ctx)
	e.speechCancel = cancel
	u := Utterance{
		RunID:     e.session.ID,
		EventID:   ev.ID,
		VoiceType: ev.VoiceType,
		PacerID:   ev.PacerID,
		PacerName: ev.PacerName,
		Vibe:      e.session.Vibe,
		Text:      ev.GeneratedText,
		MemoURL:   e.memoURL(ev.PacerID, ev.MemoID),
	}
	e.mu.Unlock()

	if err := e.speaker.Speak(ctx, u); err != nil && ctx.Err() == nil {
		e.log.Warn("playback failed", "event_id", ev.ID, "voice", ev.VoiceType, "error", err)
	}
}

// memoURL looks up the recording for a real memo. Caller holds e.mu.
func (e *Engine) memoURL(pacerID, memoID string) string {
	if memoID == "" {
		return ""
	}
	for _, p := range e.roster {
		if p.ID != pacerID {
			continue
		}
		for _, m := range p.Memos {
			if m.ID == memoID {
				return m.URL
			}
		}
	}
	return ""
}

func (e *Engine) hideOverlay(g uint64) {
	e.mu.Lock()
	if e.ended || g != e.hypeGen {
		e.mu.Unlock()
		return
	}
	e.overlayTask = nil
	e.overlay = nil
	e.unlockAndPublish([]Event{{Type: EventOverlayHidden}})
}

func (e *Engine) setStatus(s pacer.GPSStatus) {
	e.mu.Lock()
	if e.status == s {
		e.mu.Unlock()
		return
	}
	e.status = s
	e.unlockAndPublish([]Event{{Type: EventGPSStatus, GPSStatus: s}})
}

// End tears the run down and returns the closed session. Location, the
// stats tick, haptics, speech and the overlay are all stopped before the
// session totals are computed.
func (e *Engine) End() (pacer.RunSession, error) {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return pacer.RunSession{}, ErrRunEnded
	}
	e.ended = true
	stopLocation := e.stopLocation
	e.stopLocation = nil
	e.mu.Unlock()

	// The location callback takes e.mu, so stop it unlocked. Samples that
	// race in now are refused with ErrRunEnded.
	if stopLocation != nil {
		stopLocation()
	}

	e.mu.Lock()
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
	e.haptics.Stop()
	if e.voiceTask != nil {
		e.voiceTask.Stop()
		e.voiceTask = nil
	}
	if e.speechCancel != nil {
		e.speechCancel()
		e.speechCancel = nil
	}
	e.speaker.Stop()

	var out []Event
	if e.overlayTask != nil {
		e.overlayTask.Stop()
		e.overlayTask = nil
	}
	if e.overlay != nil {
		e.overlay = nil
		out = append(out, Event{Type: EventOverlayHidden})
	}

	now := e.sched.Now()
	e.stats.ElapsedSeconds = now.Sub(e.session.StartTime).Seconds()
	e.stats.IsRunning = false
	if err := e.session.Close(now, e.stats); err != nil {
		e.mu.Unlock()
		return pacer.RunSession{}, err
	}
	e.cancel()
	closed := e.session.Clone()
	stats := e.stats
	out = append(out, Event{Type: EventEnded, Stats: &stats, Session: &closed})
	e.unlockAndPublish(out)

	e.log.Info("run ended",
		"distance_miles", stats.DistanceMiles,
		"elapsed_s", int(stats.ElapsedSeconds),
		"hype_events", len(closed.HypeEvents),
	)
	return closed, nil
}

// UpdateRoster swaps the pacer pools mid-run. Selected pacers missing from
// the new roster make their hype turns abort until they return.
func (e *Engine) UpdateRoster(pacers []pacer.Pacer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return ErrRunEnded
	}
	e.roster = append([]pacer.Pacer(nil), pacers...)
	return nil
}

func (e *Engine) ID() string { return e.session.ID }

func (e *Engine) Stats() pacer.RunStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) Session() pacer.RunSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Overlay returns the hype moment currently on screen.
func (e *Engine) Overlay() (pacer.HypeEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.overlay == nil {
		return pacer.HypeEvent{}, false
	}
	return *e.overlay, true
}

// Points returns the accepted samples in time order.
func (e *Engine) Points() []pacer.GPSPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.est.Points()
}

func (e *Engine) GPSStatus() pacer.GPSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) Baseline() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.est.Baseline()
}

func (e *Engine) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// statsEvent snapshots the current stats. Caller holds e.mu.
func (e *Engine) statsEvent() Event {
	s := e.stats
	return Event{Type: EventStats, Stats: &s, HypeCount: e.state.EventCount}
}

// unlockAndPublish releases e.mu and hands events to the Publisher. A batch
// built before End is delivered before the ended event. Caller holds e.mu.
func (e *Engine) unlockAndPublish(events []Event) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	id := e.session.ID
	e.mu.Unlock()
	for _, ev := range events {
		e.pub.Publish(id, ev)
	}
}

type nopSpeaker struct{}

func (nopSpeaker) Speak(context.Context, Utterance) error { return nil }
func (nopSpeaker) Stop()                                  {}

type nopHaptics struct{}

func (nopHaptics) Play(pacer.Vibe, pacer.HapticSettings) bool { return false }
func (nopHaptics) Stop()                                      {}
