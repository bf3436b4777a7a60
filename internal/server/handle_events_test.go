package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/playperu/pacer/internal/gps"
	"github.com/playperu/pacer/internal/haptics"
	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/run"
)

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	id := env.startRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/runs/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	w := gps.NewWalker(40, -105, t0)
	env.clock.Advance(time.Second)
	body, _ := json.Marshal(IngestRequest{Points: []pacer.GPSPoint{w.Start()}})
	post, err := http.Post(ts.URL+"/api/runs/"+id+"/points", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post points: %v", err)
	}
	post.Body.Close()
	end, err := http.Post(ts.URL+"/api/runs/"+id+"/end", "application/json", nil)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	end.Body.Close()

	// The stream closes itself after the ended event.
	var names []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			names = append(names, name)
		}
	}
	want := []string{"stats", "gps_status", "stats", "speak_stop", "ended"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", names, want)
	}
}

func TestCuesReachStream(t *testing.T) {
	broker := NewBroker()
	ch := broker.Subscribe("run-1")
	defer broker.Unsubscribe("run-1", ch)

	speaker := &cueSpeaker{broker: broker, runID: "run-1"}
	if err := speaker.Speak(context.Background(), run.Utterance{RunID: "run-1", Text: "Go!"}); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	speaker.Stop()
	act := pulseActuator{broker: broker, runID: "run-1", device: "wearable"}
	if err := act.Impact(haptics.Pulse{Style: haptics.Heavy, Amplitude: 1}); err != nil {
		t.Fatalf("Impact: %v", err)
	}

	var got []sseMessage
	for range 3 {
		got = append(got, <-ch)
	}
	if got[0].name != eventSpeak || !strings.Contains(string(got[0].data), `"text":"Go!"`) {
		t.Errorf("speak = %s %s", got[0].name, got[0].data)
	}
	if got[1].name != eventSpeakStop {
		t.Errorf("stop = %s", got[1].name)
	}
	var cue HapticCue
	if err := json.Unmarshal(got[2].data, &cue); err != nil || got[2].name != eventHaptic {
		t.Fatalf("haptic = %s %s (%v)", got[2].name, got[2].data, err)
	}
	if cue.Device != "wearable" || cue.Pulse.Style != haptics.Heavy {
		t.Errorf("cue = %+v", cue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := speaker.Speak(ctx, run.Utterance{}); err == nil {
		t.Error("Speak with a cancelled context succeeded")
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r")
	for i := range 20 {
		b.Publish("r", SSEEvent{Name: "stats", Data: i})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
	b.Unsubscribe("r", ch)
	if n := b.Subscribers("r"); n != 0 {
		t.Errorf("subscribers = %d", n)
	}
}
