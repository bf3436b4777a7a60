package haptics

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/schedule"
)

// Actuator drives one physical device.
type Actuator interface {
	Impact(p Pulse) error
}

// ActuatorFunc adapts a function to Actuator.
type ActuatorFunc func(Pulse) error

func (f ActuatorFunc) Impact(p Pulse) error { return f(p) }

// Engine plays at most one primary pattern and one beat push at a time.
// Stop cancels both; once Stop returns no actuator is called again until the
// next Play.
type Engine struct {
	sched    schedule.Scheduler
	phone    Actuator
	wearable Actuator
	rng      *rand.Rand
	log      *slog.Logger

	mu      sync.Mutex
	gen     uint64
	primary schedule.Task
	beat    schedule.Task
}

// NewEngine builds an engine. wearable may be nil.
func NewEngine(sched schedule.Scheduler, phone, wearable Actuator, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Engine{sched: sched, phone: phone, wearable: wearable, rng: rng, log: logger}
}

// Play starts the pattern for vibe, replacing anything already playing. It
// reports false and does nothing when haptics are disabled.
func (e *Engine) Play(vibe pacer.Vibe, s pacer.HapticSettings) bool {
	if !s.Enabled || s.DeviceMode == pacer.DeviceOff {
		return false
	}
	targets := e.targets(s.DeviceMode)
	if len(targets) == 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	g := e.gen

	plan := PrimaryPlan(vibe, s.Intensity)
	e.primary = e.chain(g, &e.primary, plan.Pulses, 0, 0, targets)

	if s.BeatPushEnabled {
		bpm := BPMBuckets[e.rng.IntN(len(BPMBuckets))]
		push := BeatPushPlan(s.Intensity, bpm)
		start := plan.Duration + BeatPushBuffer
		for i := range push.Pulses {
			push.Pulses[i].Offset += start
		}
		e.beat = e.chain(g, &e.beat, push.Pulses, 0, 0, targets)
		e.log.Debug("beat push scheduled", "bpm", bpm, "start_ms", start.Milliseconds())
	}
	return true
}

// Stop cancels the primary pattern and the beat push.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// Active reports whether any pulse is still pending.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.primary != nil || e.beat != nil
}

func (e *Engine) stopLocked() {
	e.gen++
	if e.primary != nil {
		e.primary.Stop()
		e.primary = nil
	}
	if e.beat != nil {
		e.beat.Stop()
		e.beat = nil
	}
}

func (e *Engine) targets(mode pacer.DeviceMode) []Actuator {
	var out []Actuator
	if e.phone != nil {
		out = append(out, e.phone)
	}
	if mode == pacer.DevicePhoneAndWearable && e.wearable != nil {
		out = append(out, e.wearable)
	}
	return out
}

// chain schedules pulses[i] relative to the previous pulse at prev and
// returns the pending task. Each pulse schedules the next, so a slot never
// holds more than one task. Caller holds e.mu.
func (e *Engine) chain(g uint64, slot *schedule.Task, pulses []Pulse, i int, prev time.Duration, targets []Actuator) schedule.Task {
	if i >= len(pulses) {
		return nil
	}
	p := pulses[i]
	return e.sched.AfterFunc(p.Offset-prev, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if g != e.gen {
			return
		}
		for _, a := range targets {
			if err := a.Impact(p); err != nil {
				e.log.Warn("haptic impact failed", "kind", p.Kind, "error", err)
			}
		}
		*slot = e.chain(g, slot, pulses, i+1, p.Offset, targets)
	})
}
