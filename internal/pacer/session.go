package pacer

import (
	"errors"
	"time"
)

// MaxRecapTracks caps the songs highlighted on the recap screen.
const MaxRecapTracks = 3

var ErrSessionClosed = errors.New("run session already closed")

// RunSession is the record of one run. It is created at run start and
// closed exactly once at run end.
type RunSession struct {
	ID           string       `json:"id"`
	RunnerID     string       `json:"runnerId"`
	PacerIDs     []string     `json:"pacerIds"`
	PacerNames   []string     `json:"pacerNames"`
	VoiceMode    VoiceMode    `json:"voiceMode"`
	Vibe         Vibe         `json:"vibe"`
	MusicEnabled bool         `json:"musicEnabled"`
	StartTime    time.Time    `json:"startTime"`
	EndTime      *time.Time   `json:"endTime,omitempty"`
	HypeEvents   []HypeEvent  `json:"hypeEvents"`
	RecapTracks  []RecapTrack `json:"recapTracks"`

	TotalDistance *float64 `json:"totalDistance,omitempty"` // miles
	TotalDuration *int     `json:"totalDuration,omitempty"` // whole minutes
}

func (s *RunSession) Closed() bool { return s.EndTime != nil }

// Close stamps the end time and totals. The session is immutable afterwards.
func (s *RunSession) Close(end time.Time, stats RunStats) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	distance := stats.DistanceMiles
	minutes := int(stats.ElapsedSeconds / 60)
	s.EndTime = &end
	s.TotalDistance = &distance
	s.TotalDuration = &minutes
	return nil
}

// AddRecapTrack appends t unless the list is full or already holds the id.
// Order of first use is preserved.
func (s *RunSession) AddRecapTrack(t RecapTrack) bool {
	if t.TrackID == "" || len(s.RecapTracks) >= MaxRecapTracks {
		return false
	}
	for _, existing := range s.RecapTracks {
		if existing.TrackID == t.TrackID {
			return false
		}
	}
	s.RecapTracks = append(s.RecapTracks, t)
	return true
}

// Clone returns a deep copy safe to hand to readers outside the engine.
func (s RunSession) Clone() RunSession {
	out := s
	out.PacerIDs = append([]string(nil), s.PacerIDs...)
	out.PacerNames = append([]string(nil), s.PacerNames...)
	out.HypeEvents = append([]HypeEvent(nil), s.HypeEvents...)
	out.RecapTracks = append([]RecapTrack(nil), s.RecapTracks...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	if s.TotalDistance != nil {
		d := *s.TotalDistance
		out.TotalDistance = &d
	}
	if s.TotalDuration != nil {
		m := *s.TotalDuration
		out.TotalDuration = &m
	}
	return out
}
