package gps

import (
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

// BaselineWarmup is how long a run must last before its baseline pace is captured.
const BaselineWarmup = 6 * time.Minute

// Update is the estimator's view after one sample.
type Update struct {
	Accepted         bool
	DistanceMiles    float64
	CurrentPace      float64
	RollingPace      float64
	Baseline         float64
	BaselineCaptured bool // true only on the sample that captured it
}

// Estimator owns the recorded point sequence of one run and the baseline
// pace captured after warm-up. It is not safe for concurrent use; the run
// engine serializes access.
type Estimator struct {
	window   int
	warmup   time.Duration
	points   []pacer.GPSPoint
	distance float64
	baseline float64
}

func NewEstimator() *Estimator {
	return &Estimator{window: DefaultWindow, warmup: BaselineWarmup}
}

// Add records p. Samples not strictly newer than the last accepted one are
// dropped so the sequence stays time-ordered.
func (e *Estimator) Add(p pacer.GPSPoint, elapsed time.Duration) Update {
	if n := len(e.points); n > 0 && !p.Timestamp.After(e.points[n-1].Timestamp) {
		return Update{
			DistanceMiles: e.distance,
			RollingPace:   RollingPace(e.points, e.window),
			Baseline:      e.baseline,
		}
	}

	if n := len(e.points); n > 0 {
		e.distance += DistanceBetween(e.points[n-1], p)
	}
	e.points = append(e.points, p)

	rolling := RollingPace(e.points, e.window)
	current := SpeedToPace(p.SpeedOrZero())
	if current == 0 {
		current = rolling
	}

	u := Update{
		Accepted:      true,
		DistanceMiles: e.distance,
		CurrentPace:   current,
		RollingPace:   rolling,
	}
	if e.baseline == 0 && elapsed >= e.warmup && rolling > 0 {
		e.baseline = rolling
		u.BaselineCaptured = true
	}
	u.Baseline = e.baseline
	return u
}

// Baseline returns the captured baseline pace; ok is false until warm-up completes.
func (e *Estimator) Baseline() (float64, bool) {
	return e.baseline, e.baseline > 0
}

func (e *Estimator) Distance() float64 { return e.distance }

func (e *Estimator) Len() int { return len(e.points) }

// Points returns a copy of the recorded sequence.
func (e *Estimator) Points() []pacer.GPSPoint {
	return append([]pacer.GPSPoint(nil), e.points...)
}
