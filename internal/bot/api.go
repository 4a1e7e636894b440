package bot

import (
	"culpritdance/internal/domain"
)

// Brain is the interface all NPC strategies implement. Every method decides
// for the given player against the full authoritative state; a returned
// empty id means the brain has no legal move.
type Brain interface {
	// ChoosePlay picks the card id to play from the player's hand.
	ChoosePlay(state *domain.GameState, player *domain.Player) (string, error)

	// ChooseTarget picks the player id for a pending target selection.
	ChooseTarget(state *domain.GameState, player *domain.Player) (string, error)

	// ChooseGuess picks a card id out of the target's hand for the pending
	// card guess.
	ChooseGuess(state *domain.GameState, target *domain.Player) (string, error)

	// ChooseExchangeCard picks the card id to surrender in an exchange.
	ChooseExchangeCard(state *domain.GameState, player *domain.Player) (string, error)
}

// SkillLevel selects a strategy.
type SkillLevel string

const (
	SkillCasual SkillLevel = "casual"
	SkillSmart  SkillLevel = "smart"
)
