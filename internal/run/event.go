package run

import "github.com/playperu/pacer/internal/pacer"

type EventType string

const (
	EventStats         EventType = "stats"
	EventHype          EventType = "hype"
	EventOverlayHidden EventType = "overlay_hidden"
	EventGPSStatus     EventType = "gps_status"
	EventEnded         EventType = "ended"
)

// Event is one change published by an engine. Only the fields relevant to
// Type are set.
type Event struct {
	Type      EventType         `json:"type"`
	Stats     *pacer.RunStats   `json:"stats,omitempty"`
	Hype      *pacer.HypeEvent  `json:"hype,omitempty"`
	HypeCount int               `json:"hypeCount"`
	GPSStatus pacer.GPSStatus   `json:"gpsStatus,omitempty"`
	Session   *pacer.RunSession `json:"session,omitempty"`
}

// Publisher receives engine events outside the engine lock, in the order
// the engine produced them. Publish must not call back into the Engine.
type Publisher interface {
	Publish(runID string, ev Event)
}

type PublisherFunc func(runID string, ev Event)

func (f PublisherFunc) Publish(runID string, ev Event) { f(runID, ev) }
