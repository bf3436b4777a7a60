// Package pacer defines the core domain types shared by the run engine and
// its collaborators.
package pacer

import "time"

// Vibe is the single motivational tone selected for an entire run.
type Vibe string

const (
	VibeCheerful   Vibe = "cheerful"
	VibeFiredUp    Vibe = "fired_up"
	VibeAngry      Vibe = "angry"
	VibeHarshCoach Vibe = "harsh_coach"
	VibeCalm       Vibe = "calm"
)

// Vibes lists every vibe in display order.
var Vibes = []Vibe{VibeCheerful, VibeFiredUp, VibeAngry, VibeHarshCoach, VibeCalm}

func (v Vibe) Valid() bool {
	switch v {
	case VibeCheerful, VibeFiredUp, VibeAngry, VibeHarshCoach, VibeCalm:
		return true
	}
	return false
}

// Emoji returns the icon shown next to the vibe in recaps.
func (v Vibe) Emoji() string {
	switch v {
	case VibeCheerful:
		return "😊"
	case VibeFiredUp:
		return "🔥"
	case VibeAngry:
		return "😤"
	case VibeHarshCoach:
		return "🧱"
	case VibeCalm:
		return "😌"
	}
	return ""
}

type VoiceMode string

const (
	VoiceModeRealOnly VoiceMode = "real_only"
	VoiceModeAIOnly   VoiceMode = "ai_only"
	VoiceModeMix      VoiceMode = "mix"
)

func (m VoiceMode) Valid() bool {
	switch m {
	case VoiceModeRealOnly, VoiceModeAIOnly, VoiceModeMix:
		return true
	}
	return false
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

type TriggerType string

const (
	TriggerPaceDrop TriggerType = "pace_drop"
	TriggerLateRun  TriggerType = "late_run"
	TriggerStall    TriggerType = "stall"
)

type VoiceType string

const (
	VoiceReal VoiceType = "real"
	VoiceAI   VoiceType = "ai"
)

type DeviceMode string

const (
	DeviceOff              DeviceMode = "off"
	DevicePhoneOnly        DeviceMode = "phone_only"
	DevicePhoneAndWearable DeviceMode = "phone_and_wearable"
)

func (d DeviceMode) Valid() bool {
	switch d {
	case DeviceOff, DevicePhoneOnly, DevicePhoneAndWearable:
		return true
	}
	return false
}

// GPSStatus is the location acquisition state surfaced to the runner.
type GPSStatus string

const (
	GPSRequesting GPSStatus = "requesting"
	GPSTracking   GPSStatus = "tracking"
	GPSError      GPSStatus = "error"
)

// HapticSettings is supplied by the surrounding app and is read-only to the engine.
type HapticSettings struct {
	Enabled         bool       `json:"enabled"`
	DeviceMode      DeviceMode `json:"deviceMode"`
	Intensity       Intensity  `json:"intensity"`
	BeatPushEnabled bool       `json:"beatPushEnabled"`
}

func DefaultHapticSettings() HapticSettings {
	return HapticSettings{
		Enabled:    true,
		DeviceMode: DevicePhoneOnly,
		Intensity:  IntensityMedium,
	}
}

// GPSPoint is one location sample. Immutable once recorded.
type GPSPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"` // meters per second
}

// SpeedOrZero returns the reported speed, or 0 when the provider gave none.
func (p GPSPoint) SpeedOrZero() float64 {
	if p.Speed == nil {
		return 0
	}
	return *p.Speed
}

type RunStats struct {
	ElapsedSeconds        float64 `json:"elapsedSeconds"`
	DistanceMiles         float64 `json:"distanceMiles"`
	CurrentPaceMinPerMile float64 `json:"currentPaceMinPerMile"`
	RollingPaceMinPerMile float64 `json:"rollingPaceMinPerMile"`
	IsRunning             bool    `json:"isRunning"`
}

// Elapsed returns ElapsedSeconds as a duration.
func (s RunStats) Elapsed() time.Duration {
	return time.Duration(s.ElapsedSeconds * float64(time.Second))
}

type Memo struct {
	ID              string `json:"id" toml:"id"`
	Name            string `json:"name" toml:"name"`
	URL             string `json:"url,omitempty" toml:"url"`
	Vibe            Vibe   `json:"vibe" toml:"vibe"`
	DurationSeconds int    `json:"durationSeconds,omitempty" toml:"duration_seconds"`
}

type Track struct {
	ID     string `json:"id" toml:"id"`
	Name   string `json:"name" toml:"name"`
	Artist string `json:"artist" toml:"artist"`
}

// Pacer is a roster entry: a voice with its recorded memos and music picks.
type Pacer struct {
	ID     string  `json:"id" toml:"id"`
	Name   string  `json:"name" toml:"name"`
	Memos  []Memo  `json:"memos" toml:"memos"`
	Tracks []Track `json:"tracks" toml:"tracks"`
}

type HypeEvent struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	TriggerType   TriggerType `json:"triggerType"`
	VoiceType     VoiceType   `json:"voiceType"`
	PacerID       string      `json:"pacerId"`
	PacerName     string      `json:"pacerName"`
	MemoID        string      `json:"memoId,omitempty"`
	GeneratedText string      `json:"generatedText,omitempty"`
	TrackID       string      `json:"trackId,omitempty"`
	TrackName     string      `json:"trackName,omitempty"`
	ArtistName    string      `json:"artistName,omitempty"`
}

type RecapTrack struct {
	TrackID    string `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	PacerName  string `json:"pacerName"`
}
