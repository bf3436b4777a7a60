// Package hype turns a fired struggle trigger into a concrete hype moment:
// which pacer speaks, what they say, and which of their tracks plays.
package hype

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pacer/internal/pacer"
)

// MixRealCap is how many real memos a mix-mode run plays before it switches
// to synthesized lines for the rest of the run.
const MixRealCap = 4

// State is the per-run rotation and dedup bookkeeping. The run engine owns
// it and only the orchestrator mutates it.
type State struct {
	LastPacerIndex int
	UsedMemoIDs    map[string]struct{}
	UsedTrackIDs   map[string]struct{}
	UsedLines      map[string]struct{}
	RealMemosUsed  int
	LastEventTime  time.Time
	EventCount     int
}

func NewState() *State {
	return &State{
		LastPacerIndex: -1,
		UsedMemoIDs:    make(map[string]struct{}),
		UsedTrackIDs:   make(map[string]struct{}),
		UsedLines:      make(map[string]struct{}),
	}
}

// ChoiceKind tags where the spoken content of a hype moment comes from.
type ChoiceKind int

const (
	RealMemo ChoiceKind = iota
	SynthesizedLine
)

func (k ChoiceKind) String() string {
	if k == RealMemo {
		return "real_memo"
	}
	return "synthesized_line"
}

// VoiceType maps the choice onto the recorded event field.
func (k ChoiceKind) VoiceType() pacer.VoiceType {
	if k == RealMemo {
		return pacer.VoiceReal
	}
	return pacer.VoiceAI
}

// Choice is the resolved content of one turn. Memo is set for RealMemo,
// Line for SynthesizedLine.
type Choice struct {
	Kind ChoiceKind
	Memo pacer.Memo
	Line string
}

// decideSource picks the content source for a turn. memoAvailable reports
// whether the speaking pacer has an unused memo for the run's vibe.
func decideSource(mode pacer.VoiceMode, memoAvailable bool, realUsed int) ChoiceKind {
	switch mode {
	case pacer.VoiceModeRealOnly:
		if memoAvailable {
			return RealMemo
		}
	case pacer.VoiceModeMix:
		if memoAvailable && realUsed < MixRealCap {
			return RealMemo
		}
	}
	return SynthesizedLine
}

type Orchestrator struct {
	Lines LinePool
	Rand  *rand.Rand
	NewID func() string
}

// New returns an orchestrator using the default line table when lines is nil.
func New(lines LinePool, rng *rand.Rand) *Orchestrator {
	if lines == nil {
		lines = DefaultLines()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Orchestrator{Lines: lines, Rand: rng, NewID: uuid.NewString}
}

// Fire resolves and records one hype moment. It returns false, leaving
// session and state untouched, when the next pacer in the rotation is not in
// the roster.
func (o *Orchestrator) Fire(session *pacer.RunSession, st *State, roster []pacer.Pacer, trigger pacer.TriggerType, now time.Time) (pacer.HypeEvent, bool) {
	if len(session.PacerIDs) == 0 {
		return pacer.HypeEvent{}, false
	}
	idx := (st.LastPacerIndex + 1) % len(session.PacerIDs)
	p, ok := findPacer(roster, session.PacerIDs[idx])
	if !ok {
		return pacer.HypeEvent{}, false
	}

	memo, memoOK := unusedMemo(p, session.Vibe, st.UsedMemoIDs)
	choice := Choice{Kind: decideSource(session.VoiceMode, memoOK, st.RealMemosUsed)}
	if choice.Kind == RealMemo {
		choice.Memo = memo
	} else {
		choice.Line = o.Lines.pick(session.Vibe, st.UsedLines, o.Rand)
	}

	var track pacer.Track
	var hasTrack bool
	if session.MusicEnabled {
		track, hasTrack = o.pickTrack(p, st.UsedTrackIDs)
	}

	ev := pacer.HypeEvent{
		ID:          o.NewID(),
		Timestamp:   now,
		TriggerType: trigger,
		VoiceType:   choice.Kind.VoiceType(),
		PacerID:     p.ID,
		PacerName:   p.Name,
	}
	switch choice.Kind {
	case RealMemo:
		ev.MemoID = choice.Memo.ID
		ev.GeneratedText = choice.Memo.Name
		st.UsedMemoIDs[choice.Memo.ID] = struct{}{}
		st.RealMemosUsed++
	case SynthesizedLine:
		ev.GeneratedText = choice.Line
		st.UsedLines[choice.Line] = struct{}{}
	}
	if hasTrack {
		ev.TrackID = track.ID
		ev.TrackName = track.Name
		ev.ArtistName = track.Artist
		st.UsedTrackIDs[track.ID] = struct{}{}
		session.AddRecapTrack(pacer.RecapTrack{
			TrackID:    track.ID,
			TrackName:  track.Name,
			ArtistName: track.Artist,
			PacerName:  p.Name,
		})
	}

	session.HypeEvents = append(session.HypeEvents, ev)
	st.LastPacerIndex = idx
	st.LastEventTime = now
	st.EventCount++
	return ev, true
}

func findPacer(roster []pacer.Pacer, id string) (pacer.Pacer, bool) {
	for _, p := range roster {
		if p.ID == id {
			return p, true
		}
	}
	return pacer.Pacer{}, false
}

// unusedMemo returns the first memo of p tagged with vibe that has not played.
func unusedMemo(p pacer.Pacer, vibe pacer.Vibe, used map[string]struct{}) (pacer.Memo, bool) {
	for _, m := range p.Memos {
		if m.Vibe != vibe {
			continue
		}
		if _, ok := used[m.ID]; !ok {
			return m, true
		}
	}
	return pacer.Memo{}, false
}

// pickTrack draws a random unused track from p. When every track has played
// the whole list is eligible again.
func (o *Orchestrator) pickTrack(p pacer.Pacer, used map[string]struct{}) (pacer.Track, bool) {
	if len(p.Tracks) == 0 {
		return pacer.Track{}, false
	}
	unused := make([]pacer.Track, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if _, ok := used[t.ID]; !ok {
			unused = append(unused, t)
		}
	}
	if len(unused) == 0 {
		unused = p.Tracks
	}
	return unused[o.Rand.IntN(len(unused))], true
}
