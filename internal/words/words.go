// Package words holds the title word pools used by the escalation system.
// The pools are an opaque string source: the engine only ever picks from,
// shuffles, or membership-checks them.
package words

import "math/rand"

// Normal is the level-1 pool: mildly notable epithets.
var Normal = []string{
	"Whispered-About", "Restless", "Wide-Eyed", "Jumpy", "Gossiping",
	"Overeager", "Fidgety", "Nosy", "Excitable", "Daydreaming",
	"Loitering", "Grinning", "Humming", "Wandering", "Chatty",
	"Late-Night", "Caffeinated", "Distracted", "Curious", "Brooding",
}

// Suspect is the level-2 pool: openly suspicious epithets.
var Suspect = []string{
	"Shifty", "Dubious", "Sketchy", "Evasive", "Two-Faced",
	"Slippery", "Scheming", "Smirking", "Alibi-Less", "Fast-Talking",
	"Shadowing", "Eavesdropping", "Trench-Coated", "Sneaking", "Lurking",
	"Unaccounted-For", "Suspiciously Calm", "Glove-Wearing", "Muttering",
}

// Danger is the level-3 pool: outright damning epithets. One of these is
// also bound to the culprit card at deal time as the round's danger word.
var Danger = []string{
	"Notorious", "Most-Wanted", "Red-Handed", "Infamous", "Irredeemable",
	"Wanted-Poster", "Serially Suspected", "Courtroom-Bound", "Confessed",
	"Fingerprinted", "Blacklisted", "Case-File", "Prime-Suspect",
	"Habitual", "Incorrigible", "Unrepentant",
}

// Decoration is the level-4 pool: prefixes stacked in front of a danger word
// for display only. The stored assigned word never carries the decoration.
var Decoration = []string{
	"True ", "Legendary ", "Grand ", "Unstoppable ", "Certified ",
	"Peerless ", "Eternal ", "Supreme ", "Arch-", "Ultra-",
	"One and Only ", "Fully Awakened ", "Undisputed ",
}

// DefaultNeutral is the fallback title for level 0 and unknown levels.
const DefaultNeutral = "Ordinary"

// Pick returns a uniformly random word from the pool, or the fallback when
// the pool is empty.
func Pick(rng *rand.Rand, pool []string, fallback string) string {
	if len(pool) == 0 {
		return fallback
	}
	word := pool[rng.Intn(len(pool))]
	if word == "" {
		return fallback
	}
	return word
}

// Contains reports pool membership, used to decide whether a carried word
// may be reused for the same level.
func Contains(pool []string, word string) bool {
	for _, w := range pool {
		if w == word {
			return true
		}
	}
	return false
}

// Resolve reuses the carried word when it already belongs to the pool,
// otherwise picks a fresh one. This keeps a player's title stable across
// rounds while they stay at the same level.
func Resolve(rng *rand.Rand, pool []string, carried, fallback string) string {
	if carried != "" && Contains(pool, carried) {
		return carried
	}
	return Pick(rng, pool, fallback)
}
