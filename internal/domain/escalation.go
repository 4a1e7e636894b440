package domain

import (
	"math/rand"

	"culpritdance/internal/words"
)

const (
	// EscalationMin and EscalationMax bound the level; every recomputation
	// clamps into this range.
	EscalationMin = 0
	EscalationMax = 4
)

// NextLevel maps (current level, a player's round result, the round's
// victory) to the player's new escalation level.
//
// Culprit-faction win: the escaped culprit resets to 0; a winning accomplice
// steps down one; other winners hold; every loser steps up one.
// Detective-faction win: the unmasked culprit is forced to 3 (4 if already
// at 3 or above); a losing accomplice steps up one; winners step down one;
// any other loser holds.
func NextLevel(current int, result PlayerResult, victory VictoryInfo) int {
	level := current

	if victory.WinnerFaction == FactionCulprit {
		if result.IsWinner {
			switch {
			case result.IsMVP:
				level = EscalationMin
			case result.UsedAccomplice:
				level--
			}
		} else {
			level++
		}
	} else {
		switch {
		case result.PlayerID == victory.TargetPlayerID:
			if current >= 3 {
				level = EscalationMax
			} else {
				level = 3
			}
		case result.UsedAccomplice:
			level++
		case result.IsWinner:
			level--
		}
	}

	if level < EscalationMin {
		level = EscalationMin
	}
	if level > EscalationMax {
		level = EscalationMax
	}
	return level
}

// Title binds an escalation level to a display title.
type Title struct {
	// DisplayName is the full title prefixed to the player name.
	DisplayName string
	// AssignedWord is the word stored for next-round continuity. For level 4
	// it is the undecorated base word; the decoration is display-only.
	AssignedWord string
	// FullTitle is the prefix alone, decoration included.
	FullTitle string
}

// TitleFor generates the themed title for a level. Levels 1 and 2 reuse the
// carried word when it still belongs to that level's pool; level 3 keeps any
// carried word verbatim; level 4 keeps the base danger word and randomizes
// only the decorative prefix.
func TitleFor(rng *rand.Rand, level int, playerName, carriedWord string) Title {
	var assigned, full string

	switch level {
	case 1:
		assigned = words.Resolve(rng, words.Normal, carriedWord, "Whispered-About")
		full = assigned
	case 2:
		assigned = words.Resolve(rng, words.Suspect, carriedWord, "Shifty")
		full = assigned
	case 3:
		if carriedWord != "" {
			assigned = carriedWord
		} else {
			assigned = words.Pick(rng, words.Danger, "Notorious")
		}
		full = assigned
	case 4:
		base := carriedWord
		if base == "" {
			base = words.Pick(rng, words.Danger, "Notorious")
		}
		assigned = base
		full = words.Pick(rng, words.Decoration, "True ") + base
	default:
		assigned = ""
		full = words.DefaultNeutral
	}

	return Title{
		DisplayName:  full + " " + playerName,
		AssignedWord: assigned,
		FullTitle:    full,
	}
}

// RandomDangerWord picks the round-global danger word bound to the culprit
// card at deal time.
func RandomDangerWord(rng *rand.Rand) string {
	return words.Pick(rng, words.Danger, "Notorious")
}
