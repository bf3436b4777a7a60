package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/run"
	"github.com/playperu/pacer/internal/snapshot"
)

// SSE event names beyond the engine's own event types.
const (
	eventSpeak     = "speak"
	eventSpeakStop = "speak_stop"
	eventHaptic    = "haptic"
	eventEnded     = string(run.EventEnded)
)

// HapticCue is one pulse for the client to play on the named device.
type HapticCue struct {
	Device string        `json:"device"`
	Pulse  haptics.Pulse `json:"pulse"`
}

// cueSpeaker hands speech to the phone over the event stream. Playback
// happens on the device, so Speak returns once the cue is queued.
type cueSpeaker struct {
	broker *Broker
	runID  string
}

func (s *cueSpeaker) Speak(ctx context.Context, u run.Utterance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.broker.Publish(s.runID, SSEEvent{Name: eventSpeak, Data: u})
	return nil
}

func (s *cueSpeaker) Stop() {
	s.broker.Publish(s.runID, SSEEvent{Name: eventSpeakStop, Data: struct{}{}})
}

// pulseActuator forwards each haptic pulse as it is due.
type pulseActuator struct {
	broker *Broker
	runID  string
	device string
}

func (a pulseActuator) Impact(p haptics.Pulse) error {
	a.broker.Publish(a.runID, SSEEvent{Name: eventHaptic, Data: HapticCue{Device: a.device, Pulse: p}})
	return nil
}

// runPublisher fans engine events out to SSE subscribers and keeps the
// stats snapshot current.
type runPublisher struct {
	broker    *Broker
	snapshots *snapshot.Cache
	logger    *slog.Logger
}

func (p *runPublisher) Publish(runID string, ev run.Event) {
	p.broker.Publish(runID, SSEEvent{Name: string(ev.Type), Data: ev})

	if p.snapshots == nil || ev.Stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.snapshots.Put(ctx, runID, *ev.Stats); err != nil {
		p.logger.Warn("caching stats snapshot", "error", err)
	}
}
