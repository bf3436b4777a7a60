// Package struggle decides, once per stats update, whether a hype moment
// should fire.
package struggle

import (
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

// Config holds the eligibility and trigger thresholds.
type Config struct {
	MinElapsed            time.Duration // no trigger before this much running time
	MinDistanceMiles      float64       // ... or this much distance
	PaceDropThreshold     float64       // fraction slower than baseline
	LateRunPercentage     float64       // final share of the estimated duration
	StallPaceThreshold    float64       // fraction slower than baseline
	StallMinDistanceMiles float64       // stall only after this distance
	MaxEvents             int           // per run
}

func DefaultConfig() Config {
	return Config{
		MinElapsed:            6 * time.Minute,
		MinDistanceMiles:      0.75,
		PaceDropThreshold:     0.07,
		LateRunPercentage:     0.15,
		StallPaceThreshold:    0.15,
		StallMinDistanceMiles: 2,
		MaxEvents:             6,
	}
}

// DefaultCooldown is the fixed spacing between hype events.
const DefaultCooldown = 180 * time.Second

// CooldownPolicy yields the minimum spacing between two hype events.
type CooldownPolicy interface {
	Cooldown(intensity pacer.Intensity) time.Duration
}

// FixedCooldown ignores intensity.
type FixedCooldown time.Duration

func (f FixedCooldown) Cooldown(pacer.Intensity) time.Duration { return time.Duration(f) }

// IntensityCooldown spaces events more tightly at higher intensity.
type IntensityCooldown map[pacer.Intensity]time.Duration

func DefaultIntensityCooldown() IntensityCooldown {
	return IntensityCooldown{
		pacer.IntensityLow:    240 * time.Second,
		pacer.IntensityMedium: 180 * time.Second,
		pacer.IntensityHigh:   120 * time.Second,
	}
}

func (c IntensityCooldown) Cooldown(i pacer.Intensity) time.Duration {
	if d, ok := c[i]; ok {
		return d
	}
	return c[pacer.IntensityMedium]
}

// Input is everything one evaluation reads. The detector keeps no state.
type Input struct {
	Stats          pacer.RunStats
	BaselinePace   float64       // 0 until captured
	LastEventTime  time.Time     // zero when no event has fired
	EventCount     int
	EstimatedTotal time.Duration // 0 when unknown
	Intensity      pacer.Intensity
	Now            time.Time
}

type Detector struct {
	Config   Config
	Cooldown CooldownPolicy
}

func NewDetector(cfg Config, cooldown CooldownPolicy) Detector {
	if cooldown == nil {
		cooldown = FixedCooldown(DefaultCooldown)
	}
	return Detector{Config: cfg, Cooldown: cooldown}
}

// Evaluate returns the trigger for this update, if any. Gates are checked
// first (cooldown, max events, eligibility), then late_run, stall and
// pace_drop in that order; the first match wins.
//
// Stall is checked ahead of pace_drop. Any slowdown at or past
// StallPaceThreshold is also past PaceDropThreshold, so with pace_drop first
// a stall could never be reported. A slowdown between the two thresholds, or
// one before StallMinDistanceMiles, is a pace_drop.
func (d Detector) Evaluate(in Input) (pacer.TriggerType, bool) {
	cfg := d.Config

	if !in.LastEventTime.IsZero() && in.Now.Sub(in.LastEventTime) < d.Cooldown.Cooldown(in.Intensity) {
		return "", false
	}
	if in.EventCount >= cfg.MaxEvents {
		return "", false
	}
	if in.Stats.Elapsed() < cfg.MinElapsed || in.Stats.DistanceMiles < cfg.MinDistanceMiles {
		return "", false
	}

	if in.EstimatedTotal > 0 && in.Stats.ElapsedSeconds > 0 {
		progress := in.Stats.ElapsedSeconds / in.EstimatedTotal.Seconds()
		if progress >= 1-cfg.LateRunPercentage {
			return pacer.TriggerLateRun, true
		}
	}

	slowdown, ok := paceIncrease(in.Stats.RollingPaceMinPerMile, in.BaselinePace)
	if !ok {
		return "", false
	}
	if in.Stats.DistanceMiles >= cfg.StallMinDistanceMiles && slowdown >= cfg.StallPaceThreshold {
		return pacer.TriggerStall, true
	}
	if slowdown >= cfg.PaceDropThreshold {
		return pacer.TriggerPaceDrop, true
	}
	return "", false
}

// paceIncrease is how much slower rolling is than baseline, as a fraction.
func paceIncrease(rolling, baseline float64) (float64, bool) {
	if baseline <= 0 || rolling <= 0 {
		return 0, false
	}
	return (rolling - baseline) / baseline, true
}
