package gps

import (
	"math"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

// Walker synthesizes samples for a runner heading due north at a chosen
// pace. Moving along a meridian keeps Haversine distance exact, which makes
// the generated tracks predictable.
type Walker struct {
	lat, lon float64
	at       time.Time
}

func NewWalker(lat, lon float64, start time.Time) *Walker {
	return &Walker{lat: lat, lon: lon, at: start}
}

// Start returns the sample at the walker's current position without moving.
func (w *Walker) Start() pacer.GPSPoint {
	return pacer.GPSPoint{Latitude: w.lat, Longitude: w.lon, Timestamp: w.at}
}

// Step advances dt at pace (minutes per mile) and returns the new sample.
// A non-positive pace leaves the position unchanged.
func (w *Walker) Step(dt time.Duration, pace float64) pacer.GPSPoint {
	w.at = w.at.Add(dt)
	var speed float64
	if pace > 0 {
		miles := dt.Minutes() / pace
		w.lat += miles / EarthRadiusMiles * 180 / math.Pi
		speed = MetersPerMile / (pace * 60)
	}
	return pacer.GPSPoint{
		Latitude:  w.lat,
		Longitude: w.lon,
		Timestamp: w.at,
		Speed:     &speed,
	}
}
