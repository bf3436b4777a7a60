package run

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/playperu/pacer/internal/gps"
	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/schedule"
)

var t0 = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

const sampleEvery = 5 * time.Second

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ string, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []Utterance
	stopped int
	err     error
}

func (s *fakeSpeaker) Speak(_ context.Context, u Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, u)
	return s.err
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

type pulseCounter struct {
	mu sync.Mutex
	n  int
}

func (c *pulseCounter) Impact(haptics.Pulse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *pulseCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type harness struct {
	t       *testing.T
	clock   *schedule.Manual
	eng     *Engine
	pub     *recordingPublisher
	speaker *fakeSpeaker
	phone   *pulseCounter
	walker  *gps.Walker
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPacers() []pacer.Pacer {
	return []pacer.Pacer{
		{
			ID: "ashley", Name: "Ashley",
			Memos:  []pacer.Memo{{ID: "m1", Name: "Go go go", URL: "https://cdn.example/m1.m4a", Vibe: pacer.VibeFiredUp}},
			Tracks: []pacer.Track{{ID: "t1", Name: "Lose Yourself", Artist: "Eminem"}},
		},
		{
			ID: "kevin", Name: "Kevin",
			Tracks: []pacer.Track{{ID: "t2", Name: "Eye of the Tiger", Artist: "Survivor"}},
		},
	}
}

func testOptions() Options {
	return Options{
		RunnerID:     "runner-1",
		Pacers:       testPacers(),
		VoiceMode:    pacer.VoiceModeMix,
		Vibe:         pacer.VibeFiredUp,
		MusicEnabled: true,
		Haptics:      pacer.DefaultHapticSettings(),
	}
}

func newHarness(t *testing.T, opts Options, mods ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   schedule.NewManual(t0),
		pub:     &recordingPublisher{},
		speaker: &fakeSpeaker{},
		phone:   &pulseCounter{},
		walker:  gps.NewWalker(40.0, -105.0, t0),
	}
	logger := quietLogger()
	deps := Deps{
		Scheduler: h.clock,
		Speaker:   h.speaker,
		Haptics:   haptics.NewEngine(h.clock, h.phone, nil, rand.New(rand.NewPCG(3, 4)), logger),
		Publisher: h.pub,
		Logger:    logger,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	}
	for _, m := range mods {
		m(&deps)
	}
	eng, err := Start(context.Background(), opts, deps)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.eng = eng
	return h
}

// slowAfter runs at 9:00/mi, then at 12:00/mi from the given point on.
func slowAfter(at time.Duration) func(time.Duration) float64 {
	return func(elapsed time.Duration) float64 {
		if elapsed < at {
			return 9
		}
		return 12
	}
}

// run feeds one sample every five seconds for d.
func (h *harness) run(d time.Duration, pace func(time.Duration) float64) {
	h.t.Helper()
	if h.eng.Stats().DistanceMiles == 0 && len(h.eng.Points()) == 0 {
		if err := h.eng.Ingest(h.walker.Start()); err != nil {
			h.t.Fatalf("Ingest: %v", err)
		}
	}
	for end := h.clock.Now().Add(d); h.clock.Now().Before(end); {
		elapsed := h.clock.Now().Sub(t0)
		h.clock.Advance(sampleEvery)
		if err := h.eng.Ingest(h.walker.Step(sampleEvery, pace(elapsed))); err != nil {
			h.t.Fatalf("Ingest: %v", err)
		}
	}
}

// runUntilHype feeds samples until the session holds n hype events.
func (h *harness) runUntilHype(n int, pace func(time.Duration) float64) {
	h.t.Helper()
	for i := 0; len(h.eng.Session().HypeEvents) < n; i++ {
		if i > 1000 {
			h.t.Fatalf("no hype event after %v", h.clock.Now().Sub(t0))
		}
		h.run(sampleEvery, pace)
	}
}

func TestStartWithoutPacers(t *testing.T) {
	opts := testOptions()
	opts.Pacers = nil
	if _, err := Start(context.Background(), opts, Deps{Scheduler: schedule.NewManual(t0)}); !errors.Is(err, ErrNoPacers) {
		t.Fatalf("err = %v, want ErrNoPacers", err)
	}
}

func TestStartUsesGivenID(t *testing.T) {
	opts := testOptions()
	opts.ID = "run-42"
	h := newHarness(t, opts)
	if h.eng.ID() != "run-42" || h.eng.Session().ID != "run-42" {
		t.Errorf("id = %q, session id = %q", h.eng.ID(), h.eng.Session().ID)
	}
}

func TestCooldownAndMaxEvents(t *testing.T) {
	h := newHarness(t, testOptions())
	h.run(60*time.Minute, slowAfter(8*time.Minute))

	events := h.eng.Session().HypeEvents
	if len(events) != 6 {
		t.Fatalf("hype events = %d, want 6", len(events))
	}
	for i := 1; i < len(events); i++ {
		if gap := events[i].Timestamp.Sub(events[i-1].Timestamp); gap < 180*time.Second {
			t.Errorf("events %d and %d only %v apart", i-1, i, gap)
		}
	}
	if events[0].TriggerType != pacer.TriggerPaceDrop {
		t.Errorf("first trigger = %s, want pace_drop", events[0].TriggerType)
	}
	for i, ev := range events {
		want := testPacers()[i%2].ID
		if ev.PacerID != want {
			t.Errorf("event %d pacer = %s, want %s", i, ev.PacerID, want)
		}
	}
	if base, ok := h.eng.Baseline(); !ok || base < 8.99 || base > 9.01 {
		t.Errorf("baseline = %v, %v; want 9", base, ok)
	}
}

func TestSteadyRunNeverFires(t *testing.T) {
	h := newHarness(t, testOptions())
	h.run(30*time.Minute, func(time.Duration) float64 { return 9 })
	if n := len(h.eng.Session().HypeEvents); n != 0 {
		t.Errorf("hype events = %d on a steady run", n)
	}
}

func TestLateRunFires(t *testing.T) {
	opts := testOptions()
	opts.EstimatedDuration = 20 * time.Minute
	h := newHarness(t, opts)
	h.run(18*time.Minute, func(time.Duration) float64 { return 9 })

	events := h.eng.Session().HypeEvents
	if len(events) != 1 || events[0].TriggerType != pacer.TriggerLateRun {
		t.Fatalf("events = %+v, want one late_run", events)
	}
	if at := events[0].Timestamp.Sub(t0); at < 17*time.Minute {
		t.Errorf("late_run at %v, before the final 15%%", at)
	}
}

func TestHypeMomentPlaysVoiceAfterHaptics(t *testing.T) {
	h := newHarness(t, testOptions())
	h.runUntilHype(1, slowAfter(8*time.Minute))

	if h.phone.count() != 0 || len(h.speaker.spoken) != 0 {
		t.Fatalf("cues before any time passed")
	}
	h.clock.Advance(100 * time.Millisecond)
	if h.phone.count() == 0 {
		t.Errorf("haptics did not start immediately")
	}
	if len(h.speaker.spoken) != 0 {
		t.Errorf("voice started before the haptic lead time")
	}
	h.clock.Advance(100 * time.Millisecond)
	if len(h.speaker.spoken) != 1 {
		t.Fatalf("spoken = %d, want 1", len(h.speaker.spoken))
	}

	u := h.speaker.spoken[0]
	if u.VoiceType != pacer.VoiceReal || u.MemoURL != "https://cdn.example/m1.m4a" || u.PacerName != "Ashley" {
		t.Errorf("utterance = %+v", u)
	}

	if _, shown := h.eng.Overlay(); !shown {
		t.Errorf("overlay hidden during the hype moment")
	}
	h.clock.Advance(OverlayDuration)
	if _, shown := h.eng.Overlay(); shown {
		t.Errorf("overlay still shown after %v", OverlayDuration)
	}
}

func TestPlaybackFailureDoesNotBlockOverlay(t *testing.T) {
	h := newHarness(t, testOptions())
	h.speaker.err = errors.New("audio session busy")
	h.runUntilHype(1, slowAfter(8*time.Minute))

	h.clock.Advance(5 * time.Second)
	if _, shown := h.eng.Overlay(); shown {
		t.Errorf("overlay stuck after playback failure")
	}
	if h.phone.count() == 0 {
		t.Errorf("haptics blocked by playback failure")
	}
	var hidden bool
	for _, typ := range h.pub.types() {
		if typ == EventOverlayHidden {
			hidden = true
		}
	}
	if !hidden {
		t.Errorf("overlay_hidden not published")
	}
}

func TestEndMidPatternStopsEverything(t *testing.T) {
	opts := testOptions()
	opts.Vibe = pacer.VibeHarshCoach
	opts.Haptics.BeatPushEnabled = true
	h := newHarness(t, opts)
	h.runUntilHype(1, slowAfter(8*time.Minute))
	h.clock.Advance(time.Second)

	if h.phone.count() == 0 {
		t.Fatalf("pattern never started")
	}
	session, err := h.eng.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	pulses := h.phone.count()
	spoken := len(h.speaker.spoken)

	h.clock.Advance(time.Minute)

	if h.phone.count() != pulses {
		t.Errorf("haptic pulses after teardown: %d -> %d", pulses, h.phone.count())
	}
	if len(h.speaker.spoken) != spoken {
		t.Errorf("speech after teardown")
	}
	if h.speaker.stopped == 0 {
		t.Errorf("speaker not stopped")
	}
	if n := h.clock.Pending(); n != 0 {
		t.Errorf("pending tasks after teardown = %d", n)
	}
	if _, shown := h.eng.Overlay(); shown {
		t.Errorf("overlay shown after teardown")
	}

	types := h.pub.types()
	if n := len(types); n < 2 || types[n-2] != EventOverlayHidden || types[n-1] != EventEnded {
		t.Errorf("final events = %v, want overlay_hidden then ended", types[max(0, n-3):])
	}

	if session.EndTime == nil || session.TotalDistance == nil || session.TotalDuration == nil {
		t.Fatalf("session not closed: %+v", session)
	}
	if *session.TotalDuration != 8 {
		t.Errorf("total duration = %d min, want 8", *session.TotalDuration)
	}
	if h.eng.Stats().IsRunning {
		t.Errorf("stats still running")
	}
}

func TestEndTwice(t *testing.T) {
	h := newHarness(t, testOptions())
	if h.eng.Ended() {
		t.Fatal("fresh run reports ended")
	}
	if _, err := h.eng.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if !h.eng.Ended() {
		t.Error("Ended = false after End")
	}
	if _, err := h.eng.End(); !errors.Is(err, ErrRunEnded) {
		t.Errorf("second End err = %v", err)
	}
	if err := h.eng.Ingest(h.walker.Start()); !errors.Is(err, ErrRunEnded) {
		t.Errorf("Ingest after End err = %v", err)
	}
	if err := h.eng.UpdateRoster(nil); !errors.Is(err, ErrRunEnded) {
		t.Errorf("UpdateRoster after End err = %v", err)
	}
}

func TestOutOfOrderPointDropped(t *testing.T) {
	h := newHarness(t, testOptions())
	h.run(time.Minute, func(time.Duration) float64 { return 9 })
	before := h.eng.Stats()
	n := len(h.eng.Points())

	stale := h.walker.Start()
	stale.Timestamp = t0.Add(10 * time.Second)
	if err := h.eng.Ingest(stale); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(h.eng.Points()) != n || h.eng.Stats() != before {
		t.Errorf("stale sample changed the run")
	}
	pts := h.eng.Points()
	for i := 1; i < len(pts); i++ {
		if !pts[i].Timestamp.After(pts[i-1].Timestamp) {
			t.Fatalf("points out of order at %d", i)
		}
	}
}

func TestRosterChangeAbortsTurn(t *testing.T) {
	h := newHarness(t, testOptions())
	h.runUntilHype(1, slowAfter(8*time.Minute))

	if err := h.eng.UpdateRoster(testPacers()[:1]); err != nil {
		t.Fatalf("UpdateRoster: %v", err)
	}
	h.run(15*time.Minute, slowAfter(8*time.Minute))

	if n := len(h.eng.Session().HypeEvents); n != 1 {
		t.Errorf("hype events = %d; turns for the missing pacer should abort", n)
	}

	if err := h.eng.UpdateRoster(testPacers()); err != nil {
		t.Fatalf("UpdateRoster: %v", err)
	}
	h.run(10*time.Second, slowAfter(8*time.Minute))
	events := h.eng.Session().HypeEvents
	if len(events) != 2 || events[1].PacerID != "kevin" {
		t.Errorf("after restore events = %+v", events)
	}
}

type failingSource struct{}

func (failingSource) Subscribe(context.Context, func(pacer.GPSPoint)) (func(), error) {
	return nil, errors.New("location permission denied")
}

func TestLocationFailureKeepsTime(t *testing.T) {
	h := newHarness(t, testOptions(), func(d *Deps) { d.Location = failingSource{} })

	if s := h.eng.GPSStatus(); s != pacer.GPSError {
		t.Fatalf("status = %s, want error", s)
	}
	h.clock.Advance(7 * time.Minute)

	st := h.eng.Stats()
	if st.ElapsedSeconds != 420 || st.DistanceMiles != 0 {
		t.Errorf("stats = %+v", st)
	}
	session, err := h.eng.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(session.HypeEvents) != 0 || *session.TotalDuration != 7 {
		t.Errorf("session = %+v", session)
	}
}

type pushSource struct {
	mu      sync.Mutex
	fn      func(pacer.GPSPoint)
	stopped bool
}

func (s *pushSource) Subscribe(_ context.Context, fn func(pacer.GPSPoint)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopped = true
	}, nil
}

func TestLocationSourceFeedsEngine(t *testing.T) {
	src := &pushSource{}
	h := newHarness(t, testOptions(), func(d *Deps) { d.Location = src })

	if s := h.eng.GPSStatus(); s != pacer.GPSRequesting {
		t.Fatalf("status = %s, want requesting", s)
	}
	src.fn(h.walker.Start())
	h.clock.Advance(sampleEvery)
	src.fn(h.walker.Step(sampleEvery, 9))

	if s := h.eng.GPSStatus(); s != pacer.GPSTracking {
		t.Errorf("status = %s, want tracking", s)
	}
	if n := len(h.eng.Points()); n != 2 {
		t.Errorf("points = %d", n)
	}

	if _, err := h.eng.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if !src.stopped {
		t.Errorf("location subscription not stopped")
	}
	src.fn(h.walker.Step(sampleEvery, 9))
	if n := len(h.eng.Points()); n != 2 {
		t.Errorf("sample accepted after End")
	}
}

// parkingPublisher blocks inside the first stats publish until released.
type parkingPublisher struct {
	recordingPublisher
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (p *parkingPublisher) Publish(runID string, ev Event) {
	if ev.Type == EventStats {
		p.once.Do(func() {
			close(p.parked)
			<-p.release
		})
	}
	p.recordingPublisher.Publish(runID, ev)
}

func TestEndedIsPublishedLast(t *testing.T) {
	pub := &parkingPublisher{parked: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, testOptions(), func(d *Deps) { d.Publisher = pub })

	ingested := make(chan error, 1)
	go func() { ingested <- h.eng.Ingest(h.walker.Start()) }()
	<-pub.parked

	ended := make(chan error, 1)
	go func() {
		_, err := h.eng.End()
		ended <- err
	}()
	select {
	case err := <-ended:
		t.Fatalf("End returned (%v) while an earlier batch was still being published", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	if err := <-ingested; err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := <-ended; err != nil {
		t.Fatalf("End: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	last := pub.events[len(pub.events)-1]
	if last.Type != EventEnded {
		t.Fatalf("last event = %s, want ended", last.Type)
	}
	for i, ev := range pub.events[:len(pub.events)-1] {
		if ev.Type == EventEnded {
			t.Errorf("ended published at %d of %d", i, len(pub.events))
		}
	}
	if last.Stats == nil || last.Stats.IsRunning {
		t.Errorf("ended stats = %+v", last.Stats)
	}
}
