package hype

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

var t0 = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

func testOrchestrator() *Orchestrator {
	o := New(nil, rand.New(rand.NewPCG(1, 2)))
	n := 0
	o.NewID = func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}
	return o
}

func testRoster() []pacer.Pacer {
	return []pacer.Pacer{
		{
			ID: "p1", Name: "Ashley",
			Memos: []pacer.Memo{
				{ID: "m1", Name: "Let's go!", Vibe: pacer.VibeFiredUp},
				{ID: "m2", Name: "Breathe", Vibe: pacer.VibeCalm},
				{ID: "m3", Name: "Keep going", Vibe: pacer.VibeFiredUp},
			},
			Tracks: []pacer.Track{
				{ID: "t1", Name: "Lose Yourself", Artist: "Eminem"},
				{ID: "t2", Name: "Stronger", Artist: "Kanye West"},
			},
		},
		{
			ID: "p2", Name: "Kevin",
			Memos: []pacer.Memo{
				{ID: "m4", Name: "You got this", Vibe: pacer.VibeFiredUp},
			},
			Tracks: []pacer.Track{
				{ID: "t3", Name: "Eye of the Tiger", Artist: "Survivor"},
			},
		},
		{ID: "p3", Name: "Maya"},
	}
}

func testSession(mode pacer.VoiceMode, ids ...string) *pacer.RunSession {
	return &pacer.RunSession{
		ID:           "run-1",
		PacerIDs:     ids,
		VoiceMode:    mode,
		Vibe:         pacer.VibeFiredUp,
		MusicEnabled: true,
		StartTime:    t0,
	}
}

func TestDecideSource(t *testing.T) {
	tests := []struct {
		mode     pacer.VoiceMode
		memo     bool
		realUsed int
		want     ChoiceKind
	}{
		{pacer.VoiceModeAIOnly, true, 0, SynthesizedLine},
		{pacer.VoiceModeRealOnly, true, 10, RealMemo},
		{pacer.VoiceModeRealOnly, false, 0, SynthesizedLine},
		{pacer.VoiceModeMix, true, 0, RealMemo},
		{pacer.VoiceModeMix, true, 3, RealMemo},
		{pacer.VoiceModeMix, true, 4, SynthesizedLine},
		{pacer.VoiceModeMix, false, 0, SynthesizedLine},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%s/memo=%v/used=%d", tt.mode, tt.memo, tt.realUsed)
		t.Run(name, func(t *testing.T) {
			if got := decideSource(tt.mode, tt.memo, tt.realUsed); got != tt.want {
				t.Errorf("decideSource = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRealOnlyFallsBackToAI(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeRealOnly, "p1")
	st := NewState()
	roster := testRoster()

	want := []pacer.VoiceType{pacer.VoiceReal, pacer.VoiceReal, pacer.VoiceAI, pacer.VoiceAI}
	for i, w := range want {
		ev, ok := o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0.Add(time.Duration(i)*3*time.Minute))
		if !ok {
			t.Fatalf("turn %d aborted", i)
		}
		if ev.VoiceType != w {
			t.Errorf("turn %d voice = %s, want %s", i, ev.VoiceType, w)
		}
		if w == pacer.VoiceAI && (ev.MemoID != "" || ev.GeneratedText == "") {
			t.Errorf("turn %d: ai event = %+v", i, ev)
		}
	}
	if s.HypeEvents[0].MemoID != "m1" || s.HypeEvents[1].MemoID != "m3" {
		t.Errorf("memo order = %s, %s; want m1, m3", s.HypeEvents[0].MemoID, s.HypeEvents[1].MemoID)
	}
}

func TestMixModeCap(t *testing.T) {
	o := testOrchestrator()
	roster := []pacer.Pacer{{ID: "p1", Name: "Ashley"}}
	for i := range 8 {
		roster[0].Memos = append(roster[0].Memos, pacer.Memo{
			ID: fmt.Sprintf("m%d", i), Name: "memo", Vibe: pacer.VibeFiredUp,
		})
	}
	s := testSession(pacer.VoiceModeMix, "p1")
	st := NewState()

	var real int
	for i := range 6 {
		ev, ok := o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0.Add(time.Duration(i)*time.Minute))
		if !ok {
			t.Fatalf("turn %d aborted", i)
		}
		if ev.VoiceType == pacer.VoiceReal {
			real++
		} else if i < MixRealCap {
			t.Errorf("turn %d used ai before the cap", i)
		}
	}
	if real != MixRealCap {
		t.Errorf("real memos = %d, want %d", real, MixRealCap)
	}
}

func TestAIOnlyLinesDoNotRepeat(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeAIOnly, "p1")
	st := NewState()
	roster := testRoster()

	seen := make(map[string]bool)
	pool := len(DefaultLines()[pacer.VibeFiredUp])
	for i := range pool {
		ev, _ := o.Fire(s, st, roster, pacer.TriggerStall, t0)
		if seen[ev.GeneratedText] {
			t.Fatalf("turn %d repeated line %q", i, ev.GeneratedText)
		}
		seen[ev.GeneratedText] = true
	}
	// Pool exhausted: reuse is allowed rather than aborting.
	if _, ok := o.Fire(s, st, roster, pacer.TriggerStall, t0); !ok {
		t.Errorf("exhausted pool aborted the turn")
	}
}

func TestRotationFairness(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeAIOnly, "p1", "p2", "p3")
	st := NewState()
	roster := testRoster()

	const n = 10
	counts := make(map[string]int)
	prev := ""
	for i := range n {
		ev, ok := o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0)
		if !ok {
			t.Fatalf("turn %d aborted", i)
		}
		if ev.PacerID == prev {
			t.Errorf("turn %d repeated pacer %s", i, prev)
		}
		prev = ev.PacerID
		counts[ev.PacerID]++
	}
	for _, id := range s.PacerIDs {
		if c := counts[id]; c < n/3 || c > n/3+1 {
			t.Errorf("pacer %s chosen %d times", id, c)
		}
	}
}

func TestRecapTracksDedupAndCap(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeAIOnly, "p1", "p2")
	st := NewState()
	roster := testRoster()

	for range 6 {
		o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0)
	}
	if len(s.RecapTracks) > pacer.MaxRecapTracks {
		t.Fatalf("recap tracks = %d", len(s.RecapTracks))
	}
	ids := make(map[string]bool)
	for _, rt := range s.RecapTracks {
		if ids[rt.TrackID] {
			t.Errorf("duplicate recap track %s", rt.TrackID)
		}
		ids[rt.TrackID] = true
	}
	// Two pacers own three tracks in total; all of them get used.
	if len(s.RecapTracks) != 3 {
		t.Errorf("recap tracks = %+v, want 3 entries", s.RecapTracks)
	}
	for _, ev := range s.HypeEvents {
		if ev.PacerID == "p2" && ev.TrackID != "t3" {
			t.Errorf("kevin played %s, want his own track", ev.TrackID)
		}
	}
}

func TestMusicDisabledHasNoTrack(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeAIOnly, "p1")
	s.MusicEnabled = false
	ev, _ := o.Fire(s, NewState(), testRoster(), pacer.TriggerPaceDrop, t0)
	if ev.TrackID != "" || len(s.RecapTracks) != 0 {
		t.Errorf("event carries a track with music off: %+v", ev)
	}
}

func TestUnknownPacerAbortsWithoutMutation(t *testing.T) {
	o := testOrchestrator()
	s := testSession(pacer.VoiceModeMix, "p1", "gone")
	st := NewState()
	roster := testRoster()

	if _, ok := o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0); !ok {
		t.Fatalf("first turn aborted")
	}
	before := *st
	usedMemos := len(st.UsedMemoIDs)

	if _, ok := o.Fire(s, st, roster, pacer.TriggerPaceDrop, t0.Add(time.Minute)); ok {
		t.Fatalf("turn for unknown pacer fired")
	}
	if st.LastPacerIndex != before.LastPacerIndex || st.EventCount != before.EventCount ||
		!st.LastEventTime.Equal(before.LastEventTime) || len(st.UsedMemoIDs) != usedMemos {
		t.Errorf("state mutated on abort: %+v", st)
	}
	if len(s.HypeEvents) != 1 {
		t.Errorf("events = %d, want 1", len(s.HypeEvents))
	}
}
