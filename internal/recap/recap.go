// Package recap summarizes a finished run for the recap screen and for the
// activity uploaded to a fitness platform.
package recap

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/playperu/pacer/internal/gps"
	"github.com/playperu/pacer/internal/pacer"
)

// Summary is everything the recap screen renders.
type Summary struct {
	RunID         string                    `json:"runId"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	Vibe          pacer.Vibe                `json:"vibe"`
	VibeLabel     string                    `json:"vibeLabel"`
	Pacers        []string                  `json:"pacers"`
	DistanceMiles float64                   `json:"distanceMiles"`
	Seconds       float64                   `json:"durationSeconds"`
	AveragePace   float64                   `json:"averagePace"`
	HypeCount     int                       `json:"hypeCount"`
	ByTrigger     map[pacer.TriggerType]int `json:"byTrigger"`
	ByVoice       map[pacer.VoiceType]int   `json:"byVoice"`
	Tracks        []pacer.RecapTrack        `json:"tracks"`
}

// Build summarizes a closed session with its final stats.
func Build(s pacer.RunSession, stats pacer.RunStats) Summary {
	pace := averagePace(stats.ElapsedSeconds, stats.DistanceMiles)
	sum := Summary{
		RunID:         s.ID,
		Vibe:          s.Vibe,
		VibeLabel:     VibeLabel(s.Vibe),
		Pacers:        append([]string(nil), s.PacerNames...),
		DistanceMiles: stats.DistanceMiles,
		Seconds:       stats.ElapsedSeconds,
		AveragePace:   pace,
		HypeCount:     len(s.HypeEvents),
		ByTrigger:     make(map[pacer.TriggerType]int),
		ByVoice:       make(map[pacer.VoiceType]int),
		Tracks:        append([]pacer.RecapTrack(nil), s.RecapTracks...),
	}
	for _, ev := range s.HypeEvents {
		sum.ByTrigger[ev.TriggerType]++
		sum.ByVoice[ev.VoiceType]++
	}
	sum.Title = Title(stats.DistanceMiles, pace, s.PacerNames)
	sum.Description = Description(DescriptionInput{
		DistanceMiles: stats.DistanceMiles,
		Duration:      stats.Elapsed(),
		Pace:          pace,
		HypeCount:     len(s.HypeEvents),
		Pacers:        s.PacerNames,
		Vibe:          s.Vibe,
	})
	return sum
}

func averagePace(seconds, miles float64) float64 {
	if miles <= 0 || seconds <= 0 {
		return 0
	}
	return seconds / 60 / miles
}

// Title is the activity name: "3.10 mi • 8:30/mi • w/ Ashley + Kevin".
func Title(miles, pace float64, pacers []string) string {
	return fmt.Sprintf("%s mi • %s/mi • w/ %s", gps.FormatDistance(miles), gps.FormatPace(pace), strings.Join(pacers, " + "))
}

type DescriptionInput struct {
	DistanceMiles float64
	Duration      time.Duration
	Pace          float64
	HypeCount     int
	Pacers        []string
	Vibe          pacer.Vibe
}

// Description is the activity body listing the run totals.
func Description(in DescriptionInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pushed by %s %s\n\n", strings.Join(in.Pacers, " & "), in.Vibe.Emoji())
	fmt.Fprintf(&b, "Distance: %s mi\n", gps.FormatDistance(in.DistanceMiles))
	fmt.Fprintf(&b, "Duration: %s\n", shortDuration(in.Duration))
	fmt.Fprintf(&b, "Pace: %s/mi\n", gps.FormatPace(in.Pace))
	fmt.Fprintf(&b, "Hype Moments: %d\n", in.HypeCount)
	if label := VibeLabel(in.Vibe); label != "" {
		fmt.Fprintf(&b, "Vibe: %s\n", label)
	}
	b.WriteString("\nPowered by PACER")
	return b.String()
}

// shortDuration renders whole minutes as "42m" or "1h 5m".
func shortDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %dm", h, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// VibeLabel turns "harsh_coach" into "Harsh Coach".
func VibeLabel(v pacer.Vibe) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(v), "_", " "))
}
