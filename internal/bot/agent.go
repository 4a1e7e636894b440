package bot

import (
	"culpritdance/internal/domain"
)

// Agent represents one autonomous NPC player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Command is one decided NPC action, expressed in engine terms so the match
// loop can feed it straight into the service layer.
type Command struct {
	Type     CommandType
	PlayerID string
	CardID   string
	TargetID string
}

type CommandType string

const (
	CommandPlayCard       CommandType = "play_card"
	CommandSelectTarget   CommandType = "select_target"
	CommandSelectCard     CommandType = "select_card"
	CommandExchangeChoice CommandType = "exchange_choice"
)

// Decide inspects the state and returns the agent's next command, or nil
// when nothing is asked of this agent right now.
func (a *Agent) Decide(state *domain.GameState) (*Command, error) {
	player := state.PlayerByID(a.ID)
	if player == nil || !player.IsAlive {
		return nil, nil
	}

	switch state.Phase {
	case domain.PhaseWaitingForPlay:
		if state.ActivePlayer() == nil || state.ActivePlayer().ID != a.ID {
			return nil, nil
		}
		cardID, err := a.Strategy.ChoosePlay(state, player)
		if err != nil {
			return nil, err
		}
		return &Command{Type: CommandPlayCard, PlayerID: a.ID, CardID: cardID}, nil

	case domain.PhaseSelectingTarget:
		if state.Pending == nil || state.Pending.PlayerID != a.ID {
			return nil, nil
		}
		targetID, err := a.Strategy.ChooseTarget(state, player)
		if err != nil {
			return nil, err
		}
		return &Command{Type: CommandSelectTarget, PlayerID: a.ID, TargetID: targetID}, nil

	case domain.PhaseSelectingCard:
		if state.Pending == nil || state.Pending.PlayerID != a.ID || len(state.Pending.TargetIDs) == 0 {
			return nil, nil
		}
		target := state.PlayerByID(state.Pending.TargetIDs[0])
		if target == nil {
			return nil, nil
		}
		cardID, err := a.Strategy.ChooseGuess(state, target)
		if err != nil {
			return nil, err
		}
		return &Command{Type: CommandSelectCard, PlayerID: a.ID, CardID: cardID}, nil

	case domain.PhaseExchange:
		if state.Exchange == nil {
			return nil, nil
		}
		if _, submitted := state.Exchange.Selections[a.ID]; submitted {
			return nil, nil
		}
		participant := false
		for _, id := range state.Exchange.Participants {
			if id == a.ID {
				participant = true
				break
			}
		}
		if !participant {
			return nil, nil
		}
		cardID, err := a.Strategy.ChooseExchangeCard(state, player)
		if err != nil {
			return nil, err
		}
		return &Command{Type: CommandExchangeChoice, PlayerID: a.ID, CardID: cardID}, nil
	}
	return nil, nil
}
