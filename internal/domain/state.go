package domain

import "errors"

// ErrDeckConfig marks a deck configuration inconsistency. Deck generation
// cannot recover from one; callers treat it as fatal for the round.
var ErrDeckConfig = errors.New("invalid deck configuration")

// Phase is the lifecycle stage of a round. Phases form a strict cycle per
// turn; a phase that waits on input simply does not auto-advance.
type Phase string

const (
	PhaseSetup           Phase = "SETUP"
	PhaseTurnStart       Phase = "TURN_START"
	PhaseWaitingForPlay  Phase = "WAITING_FOR_PLAY"
	PhaseSelectingTarget Phase = "SELECTING_TARGET"
	PhaseSelectingCard   Phase = "SELECTING_CARD"
	PhaseResolvingEffect Phase = "RESOLVING_EFFECT"
	PhaseExchange        Phase = "EXCHANGE_PHASE"
	PhaseTurnEnd         Phase = "TURN_END"
	PhaseGameOver        Phase = "GAME_OVER"
)

// Team is a player's current allegiance. It changes only when the player
// discards the accomplice card.
type Team string

const (
	TeamCitizen Team = "CITIZEN"
	TeamCulprit Team = "CULPRIT_FACTION"
)

// Faction identifies the winning side of a finished round.
type Faction string

const (
	FactionCulprit   Faction = "CULPRIT_FACTION"
	FactionDetective Faction = "DETECTIVE_FACTION"
)

// VictoryType records which card effect ended the round.
type VictoryType string

const (
	VictoryDetective     VictoryType = "DETECTIVE"
	VictoryDog           VictoryType = "DOG"
	VictoryCulpritEscape VictoryType = "CULPRIT_ESCAPE"
)

// Player is one seat in the rotation. The id is stable across rounds within
// a room; hand and team reset every round, escalation state carries over.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Hand  []Card `json:"hand"`
	IsNPC bool   `json:"is_npc"`

	// IsAlive tracks whether the player is still in the active rotation.
	IsAlive bool `json:"is_alive"`

	Team Team `json:"team"`

	// Escalation meta-progression, carried across rounds.
	EscalationLevel   int    `json:"escalation_level"`
	CurrentTitle      string `json:"current_title,omitempty"`
	AssignedTitleWord string `json:"assigned_title_word,omitempty"`

	Color string `json:"color,omitempty"`
}

// HoldsKind reports whether the player's hand contains a card of the kind.
func (p *Player) HoldsKind(kind Kind) bool {
	for _, c := range p.Hand {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// CardByID returns the index of the card with the given id, or -1.
func (p *Player) CardByID(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// PendingType distinguishes the selection sub-protocol a pending action is in.
type PendingType string

const (
	PendingSelectTarget PendingType = "SELECT_TARGET"
	PendingSelectCard   PendingType = "SELECT_CARD"
)

// PendingAction carries the in-flight selection for SELECTING_TARGET and
// SELECTING_CARD. It is nil in every other phase.
type PendingAction struct {
	Type      PendingType `json:"type"`
	PlayerID  string      `json:"player_id"`
	CardKind  Kind        `json:"card_kind"`
	TargetIDs []string    `json:"target_ids,omitempty"`
}

// ExchangeState collects one card choice per participant during
// EXCHANGE_PHASE. Selections is the one sub-structure concurrent remote
// clients write into simultaneously; the synchronization layer merges it
// entry-wise instead of overwriting the whole document.
type ExchangeState struct {
	Kind         ExchangeKind      `json:"kind"`
	Participants []string          `json:"participants"`
	Selections   map[string]string `json:"selections"` // player id -> card id
	InitiatorID  string            `json:"initiator_id,omitempty"`
	TargetID     string            `json:"target_id,omitempty"`
}

// Complete reports whether every required participant has chosen.
func (e *ExchangeState) Complete() bool {
	for _, id := range e.Participants {
		if _, ok := e.Selections[id]; !ok {
			return false
		}
	}
	return true
}

// ExchangeMove is one card relocation performed by an exchange effect.
type ExchangeMove struct {
	FromPlayerID string `json:"from_player_id"`
	ToPlayerID   string `json:"to_player_id"`
	CardID       string `json:"card_id"`
}

// ExchangeInfo replays the movements of the most recent exchange for the
// presentation layer.
type ExchangeInfo struct {
	Kind  ExchangeKind   `json:"kind"`
	Moves []ExchangeMove `json:"moves"`
}

// ArrestAnimation marks a detective or dog resolution whose outcome is held
// until the presentation layer confirms the animation finished. The engine
// treats it as an external synchronization barrier, not a wait.
type ArrestAnimation struct {
	CardKind         Kind   `json:"card_kind"`
	SourcePlayerID   string `json:"source_player_id"`
	TargetPlayerID   string `json:"target_player_id"`
	SelectedCardID   string `json:"selected_card_id,omitempty"`
	SelectedCardKind Kind   `json:"selected_card_kind,omitempty"`
	Success          bool   `json:"success"`
}

// EscapeAnimation marks a culprit escape whose win declaration is deferred
// the same way.
type EscapeAnimation struct {
	CulpritPlayerID string `json:"culprit_player_id"`
	DangerWord      string `json:"danger_word,omitempty"`
}

// PlayLogEntry is one appended record of a card leaving a hand.
type PlayLogEntry struct {
	CardID   string `json:"card_id"`
	Kind     Kind   `json:"kind"`
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
}

// PlayerResult is one player's outcome for a finished round, including the
// escalation transition and the title they will carry into the next round.
type PlayerResult struct {
	PlayerID           string `json:"player_id"`
	PlayerName         string `json:"player_name"`
	Team               Team   `json:"team"`
	IsWinner           bool   `json:"is_winner"`
	IsMVP              bool   `json:"is_mvp"`
	IsAccompliceWinner bool   `json:"is_accomplice_winner"`
	UsedAccomplice     bool   `json:"used_accomplice"`

	OldLevel         int    `json:"old_level"`
	NewLevel         int    `json:"new_level"`
	NextTitle        string `json:"next_title,omitempty"`
	NextAssignedWord string `json:"next_assigned_word,omitempty"`
}

// VictoryInfo is produced exactly once, when a win is detected, and never
// changes afterwards.
type VictoryInfo struct {
	WinnerFaction  Faction        `json:"winner_faction"`
	VictoryType    VictoryType    `json:"victory_type,omitempty"`
	MVPPlayerID    string         `json:"mvp_player_id,omitempty"`
	TargetPlayerID string         `json:"target_player_id,omitempty"`
	Results        []PlayerResult `json:"results"`
}

// GameState is the root aggregate for one round. Every transition replaces it
// wholesale; no function patches a shared instance in place.
type GameState struct {
	Phase             Phase          `json:"phase"`
	Players           []Player       `json:"players"`
	ActivePlayerIndex int            `json:"active_player_index"`
	TurnCount         int            `json:"turn_count"`
	RoundNumber       int            `json:"round_number"`
	TableCards        []Card         `json:"table_cards"`
	WinnerFaction     Faction        `json:"winner_faction,omitempty"`
	Victory           *VictoryInfo   `json:"victory,omitempty"`
	Pending           *PendingAction `json:"pending,omitempty"`
	DangerWord        string         `json:"danger_word,omitempty"`
	SystemMessage     string         `json:"system_message,omitempty"`

	Exchange     *ExchangeState `json:"exchange,omitempty"`
	LastExchange *ExchangeInfo  `json:"last_exchange,omitempty"`

	PlayedLog []PlayLogEntry `json:"played_log,omitempty"`

	Arrest *ArrestAnimation `json:"arrest,omitempty"`
	Escape *EscapeAnimation `json:"escape,omitempty"`
}

// ActivePlayer returns the player whose turn it is.
func (s *GameState) ActivePlayer() *Player {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.ActivePlayerIndex]
}

// PlayerByID returns the player with the given id, or nil.
func (s *GameState) PlayerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// playerIndex returns the rotation index for a player id, or -1.
func (s *GameState) playerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// CulpritHolder returns the player currently holding the culprit card, or nil.
func (s *GameState) CulpritHolder() *Player {
	for i := range s.Players {
		if s.Players[i].HoldsKind(KindCulprit) {
			return &s.Players[i]
		}
	}
	return nil
}

// CulpritCard returns the culprit card instance wherever it currently sits.
func (s *GameState) CulpritCard() *Card {
	for i := range s.Players {
		for j := range s.Players[i].Hand {
			if s.Players[i].Hand[j].Kind == KindCulprit {
				return &s.Players[i].Hand[j]
			}
		}
	}
	for i := range s.TableCards {
		if s.TableCards[i].Kind == KindCulprit {
			return &s.TableCards[i]
		}
	}
	return nil
}

// aliveCount returns the number of players still in the rotation.
func (s *GameState) aliveCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].IsAlive {
			n++
		}
	}
	return n
}

// currentRound derives the round from the discard pile before any in-flight
// play is appended: floor(table cards / players) + 1.
func (s *GameState) currentRound() int {
	if len(s.Players) == 0 {
		return 1
	}
	return len(s.TableCards)/len(s.Players) + 1
}

// clone deep-copies the state so a transition can mutate its own copy and
// return it, leaving the input untouched.
func (s *GameState) clone() *GameState {
	out := *s

	out.Players = make([]Player, len(s.Players))
	copy(out.Players, s.Players)
	for i := range out.Players {
		out.Players[i].Hand = cloneCards(s.Players[i].Hand)
	}

	out.TableCards = cloneCards(s.TableCards)

	if s.Victory != nil {
		v := *s.Victory
		v.Results = append([]PlayerResult(nil), s.Victory.Results...)
		out.Victory = &v
	}
	if s.Pending != nil {
		p := *s.Pending
		p.TargetIDs = append([]string(nil), s.Pending.TargetIDs...)
		out.Pending = &p
	}
	if s.Exchange != nil {
		e := *s.Exchange
		e.Participants = append([]string(nil), s.Exchange.Participants...)
		e.Selections = make(map[string]string, len(s.Exchange.Selections))
		for k, v := range s.Exchange.Selections {
			e.Selections[k] = v
		}
		out.Exchange = &e
	}
	if s.LastExchange != nil {
		le := *s.LastExchange
		le.Moves = append([]ExchangeMove(nil), s.LastExchange.Moves...)
		out.LastExchange = &le
	}
	out.PlayedLog = append([]PlayLogEntry(nil), s.PlayedLog...)
	if s.Arrest != nil {
		a := *s.Arrest
		out.Arrest = &a
	}
	if s.Escape != nil {
		e := *s.Escape
		out.Escape = &e
	}
	return &out
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := range out {
		if out[i].Trade != nil {
			t := *out[i].Trade
			out[i].Trade = &t
		}
	}
	return out
}
