package domain

import (
	"math/rand"
	"strings"
	"testing"

	"culpritdance/internal/words"
)

func TestNextLevelCulpritWin(t *testing.T) {
	victory := VictoryInfo{WinnerFaction: FactionCulprit}

	tests := []struct {
		name    string
		current int
		result  PlayerResult
		want    int
	}{
		{"escaped culprit resets", 3, PlayerResult{IsWinner: true, IsMVP: true}, 0},
		{"winning accomplice steps down", 2, PlayerResult{IsWinner: true, UsedAccomplice: true}, 1},
		{"winning accomplice clamps at zero", 0, PlayerResult{IsWinner: true, UsedAccomplice: true}, 0},
		{"other winner holds", 2, PlayerResult{IsWinner: true}, 2},
		{"loser steps up", 1, PlayerResult{}, 2},
		{"loser clamps at max", 4, PlayerResult{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextLevel(tt.current, tt.result, victory); got != tt.want {
				t.Errorf("NextLevel(%d) = %d, want %d", tt.current, got, tt.want)
			}
		})
	}
}

func TestNextLevelDetectiveWin(t *testing.T) {
	victory := VictoryInfo{WinnerFaction: FactionDetective, TargetPlayerID: "p2"}

	tests := []struct {
		name    string
		current int
		result  PlayerResult
		want    int
	}{
		{"unmasked culprit forced to three", 0, PlayerResult{PlayerID: "p2"}, 3},
		{"unmasked culprit at three forced to max", 3, PlayerResult{PlayerID: "p2"}, 4},
		{"unmasked culprit at max stays", 4, PlayerResult{PlayerID: "p2"}, 4},
		{"losing accomplice steps up", 2, PlayerResult{PlayerID: "p3", UsedAccomplice: true}, 3},
		{"winner steps down", 2, PlayerResult{PlayerID: "p1", IsWinner: true}, 1},
		{"winner clamps at zero", 0, PlayerResult{PlayerID: "p1", IsWinner: true}, 0},
		{"other loser holds", 2, PlayerResult{PlayerID: "p4"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextLevel(tt.current, tt.result, victory); got != tt.want {
				t.Errorf("NextLevel(%d) = %d, want %d", tt.current, got, tt.want)
			}
		})
	}
}

func TestTitleForContinuity(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	// Levels 1 and 2 reuse a carried word only while it belongs to the pool.
	l1 := TitleFor(rng, 1, "Ann", words.Normal[0])
	if l1.AssignedWord != words.Normal[0] {
		t.Errorf("level 1 carried in-pool word: got %q, want %q", l1.AssignedWord, words.Normal[0])
	}
	l1 = TitleFor(rng, 1, "Ann", "NotInAnyPool")
	if l1.AssignedWord == "NotInAnyPool" {
		t.Error("level 1 reused a word that is not in the pool")
	}
	if !words.Contains(words.Normal, l1.AssignedWord) {
		t.Errorf("level 1 assigned %q, not in pool", l1.AssignedWord)
	}

	l2 := TitleFor(rng, 2, "Ann", words.Suspect[3])
	if l2.AssignedWord != words.Suspect[3] {
		t.Errorf("level 2 carried in-pool word: got %q, want %q", l2.AssignedWord, words.Suspect[3])
	}

	// Level 3 keeps any carried word verbatim, even one from another pool.
	l3 := TitleFor(rng, 3, "Ann", "CarriedVerbatim")
	if l3.AssignedWord != "CarriedVerbatim" || l3.FullTitle != "CarriedVerbatim" {
		t.Errorf("level 3 carry: got %q / %q", l3.AssignedWord, l3.FullTitle)
	}
	l3 = TitleFor(rng, 3, "Ann", "")
	if !words.Contains(words.Danger, l3.AssignedWord) {
		t.Errorf("level 3 fresh word %q not from the danger pool", l3.AssignedWord)
	}

	// Level 4 stores the undecorated base; the decoration is display-only.
	l4 := TitleFor(rng, 4, "Ann", "Red-Handed")
	if l4.AssignedWord != "Red-Handed" {
		t.Errorf("level 4 stored %q, want undecorated base", l4.AssignedWord)
	}
	if !strings.Contains(l4.FullTitle, "Red-Handed") || l4.FullTitle == "Red-Handed" {
		t.Errorf("level 4 full title %q should decorate the base word", l4.FullTitle)
	}

	l0 := TitleFor(rng, 0, "Ann", "Anything")
	if l0.FullTitle != words.DefaultNeutral || l0.AssignedWord != "" {
		t.Errorf("level 0: got %q / %q", l0.FullTitle, l0.AssignedWord)
	}
}

func TestTitleForDisplayName(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	title := TitleFor(rng, 3, "Bea", "Infamous")
	if title.DisplayName != "Infamous Bea" {
		t.Errorf("DisplayName = %q, want %q", title.DisplayName, "Infamous Bea")
	}
}

func TestRandomDangerWord(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 10; i++ {
		if w := RandomDangerWord(rng); !words.Contains(words.Danger, w) {
			t.Errorf("danger word %q not from the danger pool", w)
		}
	}
}
