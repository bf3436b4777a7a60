// Package roster loads the pacers a runner can pick from: the built-in demo
// roster or a TOML roster file.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/playperu/pacer/internal/pacer"
)

var (
	ErrEmptyRoster  = errors.New("roster lists no pacers")
	ErrUnknownPacer = errors.New("unknown pacer")
)

// File is the on-disk roster layout:
//
//	[[pacers]]
//	id = "pacer_ashley"
//	name = "Ashley"
//
//	[[pacers.memos]]
//	id = "memo_1"
//	name = "You got this!"
//	vibe = "cheerful"
type File struct {
	Pacers []pacer.Pacer `toml:"pacers"`
}

// Load reads and validates a roster file.
func Load(path string) ([]pacer.Pacer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Parse is Decode for an in-memory document.
func Parse(data []byte) ([]pacer.Pacer, error) {
	return Decode(bytes.NewReader(data))
}

func Decode(r io.Reader) ([]pacer.Pacer, error) {
	var file File
	if err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if err := Validate(file.Pacers); err != nil {
		return nil, err
	}
	return file.Pacers, nil
}

// Validate checks ids are present and unique and memo vibes are known.
func Validate(pacers []pacer.Pacer) error {
	if len(pacers) == 0 {
		return ErrEmptyRoster
	}
	seen := make(map[string]bool, len(pacers))
	for i, p := range pacers {
		if p.ID == "" {
			return fmt.Errorf("pacer %d: missing id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("pacer %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			return fmt.Errorf("pacer %q: missing name", p.ID)
		}
		for _, m := range p.Memos {
			if m.ID == "" {
				return fmt.Errorf("pacer %q: memo without id", p.ID)
			}
			if !m.Vibe.Valid() {
				return fmt.Errorf("pacer %q memo %q: unknown vibe %q", p.ID, m.ID, m.Vibe)
			}
		}
		for _, t := range p.Tracks {
			if t.ID == "" {
				return fmt.Errorf("pacer %q: track without id", p.ID)
			}
		}
	}
	return nil
}

// Select returns the pacers with the given ids, in the order of ids.
func Select(all []pacer.Pacer, ids []string) ([]pacer.Pacer, error) {
	byID := make(map[string]pacer.Pacer, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	out := make([]pacer.Pacer, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPacer, id)
		}
		out = append(out, p)
	}
	return out, nil
}

// Demo is the sample roster used when nothing else is configured.
func Demo() []pacer.Pacer {
	return []pacer.Pacer{
		{
			ID:   "pacer_ashley",
			Name: "Ashley",
			Memos: []pacer.Memo{
				{ID: "memo_1", Name: "You got this!", Vibe: pacer.VibeCheerful, DurationSeconds: 8},
				{ID: "memo_2", Name: "Push through!", Vibe: pacer.VibeFiredUp, DurationSeconds: 10},
				{ID: "memo_3", Name: "Steady pace", Vibe: pacer.VibeCalm, DurationSeconds: 12},
				{ID: "memo_4", Name: "No excuses", Vibe: pacer.VibeHarshCoach, DurationSeconds: 7},
				{ID: "memo_5", Name: "Prove it", Vibe: pacer.VibeAngry, DurationSeconds: 9},
				{ID: "memo_6", Name: "Final push", Vibe: pacer.VibeFiredUp, DurationSeconds: 11},
			},
			Tracks: []pacer.Track{
				{ID: "track_1", Name: "Blinding Lights", Artist: "The Weeknd"},
				{ID: "track_3", Name: "Lose Yourself", Artist: "Eminem"},
				{ID: "track_5", Name: "Stronger", Artist: "Kanye West"},
				{ID: "track_7", Name: "Can't Hold Us", Artist: "Macklemore"},
			},
		},
		{
			ID:   "pacer_kevin",
			Name: "Kevin",
			Tracks: []pacer.Track{
				{ID: "track_2", Name: "Levitating", Artist: "Dua Lipa"},
				{ID: "track_4", Name: "Till I Collapse", Artist: "Eminem"},
				{ID: "track_6", Name: "Eye of the Tiger", Artist: "Survivor"},
				{ID: "track_8", Name: "Unstoppable", Artist: "Sia"},
			},
		},
	}
}
