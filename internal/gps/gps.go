// Package gps turns raw location samples into distance and pace figures.
//
// The pure functions assume a time-ordered sequence. Estimator enforces
// that ordering for the points it accepts.
package gps

import (
	"fmt"
	"math"

	"github.com/playperu/pacer/internal/pacer"
)

const (
	EarthRadiusMiles = 3958.8
	MetersPerMile    = 1609.34

	// DefaultWindow is the number of trailing samples averaged for rolling pace.
	DefaultWindow = 10
)

// DistanceBetween returns the great-circle distance in miles (Haversine).
func DistanceBetween(a, b pacer.GPSPoint) float64 {
	return haversineMiles(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// TotalDistance sums pairwise distances; 0 for fewer than 2 points.
func TotalDistance(points []pacer.GPSPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceBetween(points[i-1], points[i])
	}
	return total
}

// SpeedToPace converts meters per second to minutes per mile.
func SpeedToPace(mps float64) float64 {
	if mps <= 0 || math.IsNaN(mps) {
		return 0
	}
	return (MetersPerMile / mps) / 60
}

// AveragePace is elapsed minutes between the first and last sample divided
// by the distance covered. Returns 0 when it cannot be computed.
func AveragePace(points []pacer.GPSPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	distance := TotalDistance(points)
	if distance == 0 {
		return 0
	}
	minutes := points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Minutes()
	return minutes / distance
}

// RollingPace is AveragePace over the last window samples.
func RollingPace(points []pacer.GPSPoint, window int) float64 {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(points) > window {
		points = points[len(points)-window:]
	}
	return AveragePace(points)
}

type Box struct {
	MinLat, MaxLat       float64
	MinLon, MaxLon       float64
	CenterLat, CenterLon float64
}

// BoundingBox returns the extent of points; ok is false when empty.
func BoundingBox(points []pacer.GPSPoint) (box Box, ok bool) {
	if len(points) == 0 {
		return Box{}, false
	}
	box = Box{
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
		MinLon: points[0].Longitude, MaxLon: points[0].Longitude,
	}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Latitude)
		box.MaxLat = math.Max(box.MaxLat, p.Latitude)
		box.MinLon = math.Min(box.MinLon, p.Longitude)
		box.MaxLon = math.Max(box.MaxLon, p.Longitude)
	}
	box.CenterLat = (box.MinLat + box.MaxLat) / 2
	box.CenterLon = (box.MinLon + box.MaxLon) / 2
	return box, true
}

// FormatPace renders minutes per mile as "m:ss", or "--:--" when unknown.
func FormatPace(minPerMile float64) string {
	if minPerMile <= 0 || minPerMile > 60 || math.IsNaN(minPerMile) {
		return "--:--"
	}
	mins := int(minPerMile)
	secs := int(math.Round((minPerMile - float64(mins)) * 60))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatDuration renders seconds as "m:ss" or "h:mm:ss".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	hrs := total / 3600
	mins := (total % 3600) / 60
	secs := total % 60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func FormatDistance(miles float64) string {
	return fmt.Sprintf("%.2f", miles)
}
