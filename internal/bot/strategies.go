package bot

import (
	"errors"
	"math/rand"

	"culpritdance/internal/domain"
)

var ErrNoMove = errors.New("no legal move available")

func legalPlays(state *domain.GameState, player *domain.Player) []domain.Card {
	var legal []domain.Card
	for _, c := range player.Hand {
		if domain.CanPlayCard(state, player, c) {
			legal = append(legal, c)
		}
	}
	return legal
}

func validTargets(state *domain.GameState, selfID string) []string {
	var ids []string
	for i := range state.Players {
		p := &state.Players[i]
		if p.ID == selfID || !p.IsAlive {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

// CasualBot plays uniformly at random among its legal options.
type CasualBot struct {
	rng *rand.Rand
}

func NewCasualBot(rng *rand.Rand) *CasualBot {
	return &CasualBot{rng: rng}
}

func (b *CasualBot) ChoosePlay(state *domain.GameState, player *domain.Player) (string, error) {
	legal := legalPlays(state, player)
	if len(legal) == 0 {
		return "", ErrNoMove
	}
	return legal[b.rng.Intn(len(legal))].ID, nil
}

func (b *CasualBot) ChooseTarget(state *domain.GameState, player *domain.Player) (string, error) {
	targets := validTargets(state, player.ID)
	if len(targets) == 0 {
		return "", ErrNoMove
	}
	return targets[b.rng.Intn(len(targets))], nil
}

func (b *CasualBot) ChooseGuess(state *domain.GameState, target *domain.Player) (string, error) {
	if len(target.Hand) == 0 {
		return "", ErrNoMove
	}
	return target.Hand[b.rng.Intn(len(target.Hand))].ID, nil
}

func (b *CasualBot) ChooseExchangeCard(state *domain.GameState, player *domain.Player) (string, error) {
	if len(player.Hand) == 0 {
		return "", ErrNoMove
	}
	return player.Hand[b.rng.Intn(len(player.Hand))].ID, nil
}

// SmartBot plays with full knowledge of the authoritative state: it hunts
// the unprotected culprit holder, dumps the culprit card through exchanges,
// and holds on to its alibi.
type SmartBot struct {
	rng *rand.Rand
}

func NewSmartBot(rng *rand.Rand) *SmartBot {
	return &SmartBot{rng: rng}
}

// playPreference orders kinds from most to least disposable. Lower index
// plays first; the alibi is kept as protection and the culprit stays until
// it can win.
var playPreference = []domain.Kind{
	domain.KindFirstDiscoverer,
	domain.KindBoy,
	domain.KindCommon,
	domain.KindRumor,
	domain.KindInformation,
	domain.KindTrade,
	domain.KindWitness,
	domain.KindDog,
	domain.KindDetective,
	domain.KindAccomplice,
	domain.KindAlibi,
	domain.KindCulprit,
}

func (b *SmartBot) ChoosePlay(state *domain.GameState, player *domain.Player) (string, error) {
	legal := legalPlays(state, player)
	if len(legal) == 0 {
		return "", ErrNoMove
	}
	best := legal[0]
	bestRank := len(playPreference)
	for _, c := range legal {
		for rank, kind := range playPreference {
			if c.Kind == kind && rank < bestRank {
				best, bestRank = c, rank
				break
			}
		}
	}
	return best.ID, nil
}

func (b *SmartBot) ChooseTarget(state *domain.GameState, player *domain.Player) (string, error) {
	targets := validTargets(state, player.ID)
	if len(targets) == 0 {
		return "", ErrNoMove
	}
	// Point accusations at the culprit holder when the alibi cannot save
	// them; otherwise fall back to a random seat.
	if holder := state.CulpritHolder(); holder != nil && holder.ID != player.ID {
		if !holder.HoldsKind(domain.KindAlibi) || state.Pending == nil || state.Pending.CardKind != domain.KindDetective {
			for _, id := range targets {
				if id == holder.ID {
					return id, nil
				}
			}
		}
	}
	return targets[b.rng.Intn(len(targets))], nil
}

func (b *SmartBot) ChooseGuess(state *domain.GameState, target *domain.Player) (string, error) {
	if len(target.Hand) == 0 {
		return "", ErrNoMove
	}
	for _, c := range target.Hand {
		if c.Kind == domain.KindCulprit {
			return c.ID, nil
		}
	}
	return target.Hand[b.rng.Intn(len(target.Hand))].ID, nil
}

func (b *SmartBot) ChooseExchangeCard(state *domain.GameState, player *domain.Player) (string, error) {
	if len(player.Hand) == 0 {
		return "", ErrNoMove
	}
	// Hot potato: push the culprit card out whenever an exchange allows it.
	for _, c := range player.Hand {
		if c.Kind == domain.KindCulprit {
			return c.ID, nil
		}
	}
	best := player.Hand[0]
	bestRank := len(playPreference)
	for _, c := range player.Hand {
		for rank, kind := range playPreference {
			if c.Kind == kind && rank < bestRank {
				best, bestRank = c, rank
				break
			}
		}
	}
	return best.ID, nil
}
