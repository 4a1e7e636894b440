package nakama

import (
	"culpritdance/internal/domain"
	"culpritdance/internal/ports"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartRound     int64 = 1
	OpPlayCard       int64 = 2
	OpSelectTarget   int64 = 3
	OpSelectCard     int64 = 4
	OpExchangeChoice int64 = 5
	OpAnimationDone  int64 = 6
	OpSetReady       int64 = 7

	// Server -> Client events
	OpRoomState        int64 = 101
	OpRoundStarted     int64 = 102
	OpHandDealt        int64 = 103 // sent privately
	OpStateChanged     int64 = 104
	OpCardPlayed       int64 = 105
	OpExchangeOpened   int64 = 106
	OpExchangeResolved int64 = 107
	OpArrestAnimation  int64 = 108
	OpEscapeAnimation  int64 = 109
	OpRoundEnded       int64 = 110
	OpRejected         int64 = 111
)

// Client request payloads, all JSON.

type PlayCardRequest struct {
	CardID string `json:"card_id"`
}

type SelectTargetRequest struct {
	TargetID string `json:"target_id"`
}

type SelectCardRequest struct {
	CardID string `json:"card_id"`
}

type ExchangeChoiceRequest struct {
	CardID string `json:"card_id"`
}

type AnimationDoneRequest struct {
	// Animation is "arrest" or "escape".
	Animation string `json:"animation"`
}

type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// PlayerView is the redacted per-seat view: hands collapse to a count for
// everyone but the viewer.
type PlayerView struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	IsNPC           bool          `json:"is_npc"`
	IsAlive         bool          `json:"is_alive"`
	CardCount       int           `json:"card_count"`
	Hand            []domain.Card `json:"hand,omitempty"`
	EscalationLevel int           `json:"escalation_level"`
	CurrentTitle    string        `json:"current_title"`
	Color           string        `json:"color"`
}

// StateView is the redacted game state broadcast to one viewer. Team
// membership and the culprit's location never leave the server.
type StateView struct {
	Phase             domain.Phase            `json:"phase"`
	Players           []PlayerView            `json:"players"`
	ActivePlayerIndex int                     `json:"active_player_index"`
	TurnCount         int                     `json:"turn_count"`
	RoundNumber       int                     `json:"round_number"`
	TableCards        []domain.Card           `json:"table_cards"`
	Pending           *domain.PendingAction   `json:"pending_action,omitempty"`
	Exchange          *ExchangeView           `json:"exchange,omitempty"`
	LastExchange      *domain.ExchangeInfo    `json:"last_exchange,omitempty"`
	SystemMessage     string                  `json:"system_message,omitempty"`
	PlayedLog         []domain.PlayLogEntry   `json:"played_log"`
	Arrest            *domain.ArrestAnimation `json:"arrest_animation,omitempty"`
	Escape            *domain.EscapeAnimation `json:"escape_animation,omitempty"`
	Victory           *domain.VictoryInfo     `json:"victory,omitempty"`
}

// ExchangeView hides what the other participants picked: the viewer sees
// only who has already submitted.
type ExchangeView struct {
	Kind         domain.ExchangeKind `json:"kind"`
	Participants []string            `json:"participants"`
	Submitted    []string            `json:"submitted"`
	OwnChoice    string              `json:"own_choice,omitempty"`
}

// RoomSnapshot is the lobby-level broadcast.
type RoomSnapshot struct {
	RoomID   string             `json:"room_id"`
	RoomCode string             `json:"room_code"`
	HostID   string             `json:"host_id"`
	Status   ports.RoomStatus   `json:"status"`
	Players  []ports.RoomPlayer `json:"players"`
}

// ViewFor builds the redacted state for one viewer. The viewer keeps their
// own full hand; every other hand is reduced to a count. Cards on the table
// and in the play log are public by definition.
func ViewFor(state *domain.GameState, viewerID string) StateView {
	players := make([]PlayerView, len(state.Players))
	for i := range state.Players {
		p := &state.Players[i]
		pv := PlayerView{
			ID:              p.ID,
			Name:            p.Name,
			IsNPC:           p.IsNPC,
			IsAlive:         p.IsAlive,
			CardCount:       len(p.Hand),
			EscalationLevel: p.EscalationLevel,
			CurrentTitle:    p.CurrentTitle,
			Color:           p.Color,
		}
		if p.ID == viewerID {
			pv.Hand = p.Hand
		}
		players[i] = pv
	}

	view := StateView{
		Phase:             state.Phase,
		Players:           players,
		ActivePlayerIndex: state.ActivePlayerIndex,
		TurnCount:         state.TurnCount,
		RoundNumber:       state.RoundNumber,
		TableCards:        state.TableCards,
		Pending:           state.Pending,
		LastExchange:      state.LastExchange,
		SystemMessage:     state.SystemMessage,
		PlayedLog:         state.PlayedLog,
		Arrest:            state.Arrest,
		Escape:            state.Escape,
		Victory:           state.Victory,
	}
	if state.Exchange != nil {
		ev := &ExchangeView{
			Kind:         state.Exchange.Kind,
			Participants: state.Exchange.Participants,
			OwnChoice:    state.Exchange.Selections[viewerID],
		}
		for _, id := range state.Exchange.Participants {
			if _, ok := state.Exchange.Selections[id]; ok {
				ev.Submitted = append(ev.Submitted, id)
			}
		}
		view.Exchange = ev
	}
	return view
}
