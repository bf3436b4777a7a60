package hype

import (
	"math/rand/v2"

	"github.com/playperu/pacer/internal/pacer"
)

// LinePool holds the synthesized lines available per vibe.
type LinePool map[pacer.Vibe][]string

// DefaultLines is the built-in line table.
func DefaultLines() LinePool {
	return LinePool{
		pacer.VibeCheerful: {
			"You're doing amazing! Keep that smile going!",
			"Look at you crushing it! So proud of you!",
			"Every step is progress. You're incredible!",
			"This is YOUR moment. Enjoy every stride!",
		},
		pacer.VibeFiredUp: {
			"LET'S GO! This is what you trained for!",
			"No stopping now! You're a MACHINE!",
			"Feel that fire? That's your power!",
			"THIS is the moment! PUSH IT!",
		},
		pacer.VibeAngry: {
			"You think this is hard? PROVE you're tougher!",
			"Pain is temporary. Don't you DARE stop!",
			"You wanted this. Now EARN it!",
			"Show me what you're made of!",
		},
		pacer.VibeHarshCoach: {
			"Dig deeper. You have more in the tank.",
			"Excuses won't finish this run. You will.",
			"This is where champions are made. Move.",
			"Your legs aren't tired. Your mind is. Override it.",
		},
		pacer.VibeCalm: {
			"Breathe. You've got this. One step at a time.",
			"Stay steady. Trust your training.",
			"Find your rhythm. You're right where you need to be.",
			"Relax your shoulders. You're doing great.",
		},
	}
}

// fallbackLine is spoken when a vibe has no lines at all.
const fallbackLine = "You've got this!"

// pick returns a random line for vibe that is not in used. Once every line
// has been used the whole pool is eligible again.
func (p LinePool) pick(vibe pacer.Vibe, used map[string]struct{}, rng *rand.Rand) string {
	lines := p[vibe]
	if len(lines) == 0 {
		return fallbackLine
	}
	unused := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := used[l]; !ok {
			unused = append(unused, l)
		}
	}
	if len(unused) == 0 {
		unused = lines
	}
	return unused[rng.IntN(len(unused))]
}
