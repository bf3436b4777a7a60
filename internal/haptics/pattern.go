// Package haptics plans and plays the tactile pattern that accompanies a
// hype moment.
package haptics

import (
	"encoding/json"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

// Style is the impact weight of a single pulse.
type Style string

const (
	Light  Style = "light"
	Medium Style = "medium"
	Heavy  Style = "heavy"
)

type Kind string

const (
	KindTap       Kind = "tap"
	KindPulse     Kind = "pulse"
	KindDoubleTap Kind = "double_tap"
	KindBuzz      Kind = "buzz"
	KindHit       Kind = "hit"
	KindBeat      Kind = "beat"
)

const (
	// LeadTime is how far haptics start ahead of the spoken line.
	LeadTime = 200 * time.Millisecond

	MaxPrimaryDuration  = 6000 * time.Millisecond
	MaxBeatPushDuration = 8000 * time.Millisecond
	BeatPushBuffer      = 1500 * time.Millisecond

	doubleTapGap   = 80 * time.Millisecond
	buzzStep       = 50 * time.Millisecond
	buzzBase       = 2000 * time.Millisecond
	buzzMax        = 2500 * time.Millisecond
	hitGap         = 500 * time.Millisecond
	beatPushLength = 6000 * time.Millisecond
)

// BPMBuckets are the cadences a beat push can nudge toward.
var BPMBuckets = []int{100, 120, 140, 160}

// Pulse is one actuator impact at Offset from the start of its plan.
// On the wire Offset is whole milliseconds.
type Pulse struct {
	Offset    time.Duration `json:"-"`
	Style     Style         `json:"style"`
	Amplitude float64       `json:"amplitude"`
	Kind      Kind          `json:"kind"`
}

type pulseJSON struct {
	OffsetMs  int64   `json:"offsetMs"`
	Style     Style   `json:"style"`
	Amplitude float64 `json:"amplitude"`
	Kind      Kind    `json:"kind"`
}

func (p Pulse) MarshalJSON() ([]byte, error) {
	return json.Marshal(pulseJSON{p.Offset.Milliseconds(), p.Style, p.Amplitude, p.Kind})
}

func (p *Pulse) UnmarshalJSON(data []byte) error {
	var v pulseJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Pulse{Offset: time.Duration(v.OffsetMs) * time.Millisecond, Style: v.Style, Amplitude: v.Amplitude, Kind: v.Kind}
	return nil
}

// Plan is a fully resolved pattern: every pulse and the total length.
type Plan struct {
	Pulses   []Pulse
	Duration time.Duration
}

// Multiplier scales a pattern for one intensity level.
type Multiplier struct {
	Amplitude float64
	Pulse     float64 // > 1 shortens the interval
	Duration  float64
}

var multipliers = map[pacer.Intensity]Multiplier{
	pacer.IntensityLow:    {Amplitude: 0.6, Pulse: 0.7, Duration: 0.8},
	pacer.IntensityMedium: {Amplitude: 1.0, Pulse: 1.0, Duration: 1.0},
	pacer.IntensityHigh:   {Amplitude: 1.2, Pulse: 1.3, Duration: 1.2},
}

// MultiplierFor falls back to medium for unknown levels.
func MultiplierFor(i pacer.Intensity) Multiplier {
	if m, ok := multipliers[i]; ok {
		return m
	}
	return multipliers[pacer.IntensityMedium]
}

// Pattern is the archetype of a vibe before intensity scaling.
type Pattern struct {
	Kind        Kind
	Interval    time.Duration
	Duration    time.Duration
	Style       Style
	Description string
}

var patterns = map[pacer.Vibe]Pattern{
	pacer.VibeCheerful:   {KindTap, 700 * time.Millisecond, 3000 * time.Millisecond, Light, "Light taps"},
	pacer.VibeFiredUp:    {KindPulse, 300 * time.Millisecond, 4500 * time.Millisecond, Medium, "Fast pulses"},
	pacer.VibeAngry:      {KindDoubleTap, 800 * time.Millisecond, 4000 * time.Millisecond, Heavy, "Sharp double-taps"},
	pacer.VibeHarshCoach: {KindBuzz, 500 * time.Millisecond, 4500 * time.Millisecond, Heavy, "Strong buzz + hits"},
	pacer.VibeCalm:       {KindPulse, 1050 * time.Millisecond, 4500 * time.Millisecond, Light, "Slow steady pulses"},
}

// PatternFor returns the archetype for vibe, falling back to cheerful.
func PatternFor(v pacer.Vibe) Pattern {
	if p, ok := patterns[v]; ok {
		return p
	}
	return patterns[pacer.VibeCheerful]
}

// Describe is the short label shown next to the vibe in settings.
func Describe(v pacer.Vibe) string {
	return PatternFor(v).Description
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

// PrimaryPlan resolves the vibe pattern at the given intensity.
func PrimaryPlan(v pacer.Vibe, i pacer.Intensity) Plan {
	pat := PatternFor(v)
	m := MultiplierFor(i)
	if pat.Kind == KindBuzz {
		return buzzPlan(pat, i, m)
	}

	interval := time.Duration(float64(pat.Interval) / m.Pulse)
	total := min(scale(pat.Duration, m.Duration), MaxPrimaryDuration)

	var plan Plan
	for off := time.Duration(0); off < total; off += interval {
		plan.Pulses = append(plan.Pulses, Pulse{Offset: off, Style: pat.Style, Amplitude: m.Amplitude, Kind: pat.Kind})
		if pat.Kind == KindDoubleTap {
			plan.Pulses = append(plan.Pulses, Pulse{Offset: off + doubleTapGap, Style: pat.Style, Amplitude: m.Amplitude, Kind: pat.Kind})
		}
	}
	plan.Duration = total
	return plan
}

// buzzPlan is a sustained run of rapid pulses followed by a few hard hits.
func buzzPlan(pat Pattern, i pacer.Intensity, m Multiplier) Plan {
	buzz := min(scale(buzzBase, m.Duration), buzzMax)
	var plan Plan
	steps := int(buzz / buzzStep)
	for n := range steps {
		plan.Pulses = append(plan.Pulses, Pulse{Offset: time.Duration(n) * buzzStep, Style: pat.Style, Amplitude: m.Amplitude, Kind: KindBuzz})
	}
	end := time.Duration(steps) * buzzStep

	hits := 2
	if i == pacer.IntensityHigh {
		hits = 3
	}
	for n := 1; n <= hits; n++ {
		off := end + time.Duration(n)*hitGap
		if off > MaxPrimaryDuration {
			break
		}
		plan.Pulses = append(plan.Pulses, Pulse{Offset: off, Style: Heavy, Amplitude: m.Amplitude, Kind: KindHit})
		plan.Duration = off
	}
	return plan
}

// BeatPushPlan is a run of light taps at bpm, starting one beat in.
func BeatPushPlan(i pacer.Intensity, bpm int) Plan {
	m := MultiplierFor(i)
	if bpm <= 0 {
		bpm = BPMBuckets[0]
	}
	interval := time.Minute / time.Duration(bpm)
	total := min(scale(beatPushLength, m.Duration), MaxBeatPushDuration)

	var plan Plan
	for off := interval; off < total; off += interval {
		plan.Pulses = append(plan.Pulses, Pulse{Offset: off, Style: Light, Amplitude: m.Amplitude, Kind: KindBeat})
	}
	plan.Duration = total
	return plan
}
