package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"culpritdance/internal/domain"
)

// Service contains the round use-cases operating on domain state. All
// methods are pure with respect to their inputs: the returned state is a new
// value and the input state is never mutated.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

var (
	ErrTooFewPlayers  = errors.New("not enough players to start")
	ErrTooManyPlayers = errors.New("too many players to start")
	ErrRejected       = errors.New("command rejected")
	ErrRoundOver      = errors.New("round already over")
)

// StartRound deals a fresh round for the roster and returns the initial
// state together with the start events: a broadcast round start and one
// targeted hand reveal per player.
func (s *Service) StartRound(roster []domain.Player, cfg domain.DeckConfig) (*domain.GameState, []Event, error) {
	if len(roster) < domain.MinPlayers {
		return nil, nil, ErrTooFewPlayers
	}
	if len(roster) > domain.MaxPlayers {
		return nil, nil, ErrTooManyPlayers
	}

	state, err := domain.InitializeGame(s.rng, roster, cfg)
	if err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, len(state.Players)+1)
	events = append(events, Event{
		Kind:    EventRoundStarted,
		Payload: RoundStartedPayload{ActivePlayerID: state.ActivePlayer().ID},
	})
	for _, p := range state.Players {
		if p.IsNPC {
			continue
		}
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{PlayerID: p.ID, Hand: p.Hand},
			Recipients: []string{p.ID},
		})
	}
	return state, events, nil
}

// Advance drives the automatic phase transitions to their fixpoint: SETUP
// through TURN_START into WAITING_FOR_PLAY, and effect resolution into the
// next turn. Phases waiting on a command, or on an animation barrier, stop
// the drive.
func (s *Service) Advance(state *domain.GameState) (*domain.GameState, []Event) {
	out := state
	for {
		next := domain.AdvancePhase(out)
		if next == out {
			break
		}
		out = next
	}
	if out == state {
		return state, nil
	}
	return out, []Event{{Kind: EventStateChanged, Payload: out}}
}

// PlayCard applies the active player's card play and reports the outcome
// events. A rejected play returns ErrRejected with the state untouched.
func (s *Service) PlayCard(state *domain.GameState, playerID, cardID string) (*domain.GameState, []Event, error) {
	if state.Phase == domain.PhaseGameOver {
		return state, nil, ErrRoundOver
	}
	next := domain.PlayCard(s.rng, state, playerID, cardID)
	if next == state {
		return state, rejectionEvents(playerID, "illegal play"), fmt.Errorf("%w: play %s by %s", ErrRejected, cardID, playerID)
	}

	events := []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			PlayerID: playerID,
			Card:     next.TableCards[len(next.TableCards)-1],
			Phase:    next.Phase,
		},
	}}
	return next, append(events, outcomeEvents(state, next)...), nil
}

// SelectTarget applies the pending action's target choice.
func (s *Service) SelectTarget(state *domain.GameState, playerID, targetID string) (*domain.GameState, []Event, error) {
	if state.Pending == nil || state.Pending.PlayerID != playerID {
		return state, rejectionEvents(playerID, "no pending selection"), fmt.Errorf("%w: no pending selection for %s", ErrRejected, playerID)
	}
	next := domain.SelectTarget(s.rng, state, targetID)
	if next == state {
		return state, rejectionEvents(playerID, "invalid target"), fmt.Errorf("%w: target %s", ErrRejected, targetID)
	}
	return next, outcomeEvents(state, next), nil
}

// SelectCard applies the pending card guess.
func (s *Service) SelectCard(state *domain.GameState, playerID, cardID string) (*domain.GameState, []Event, error) {
	if state.Pending == nil || state.Pending.PlayerID != playerID {
		return state, rejectionEvents(playerID, "no pending selection"), fmt.Errorf("%w: no pending selection for %s", ErrRejected, playerID)
	}
	next := domain.SelectCard(state, cardID)
	if next == state {
		return state, rejectionEvents(playerID, "invalid card"), fmt.Errorf("%w: card %s", ErrRejected, cardID)
	}
	return next, outcomeEvents(state, next), nil
}

// SubmitExchangeChoice records one participant's exchange selection,
// resolving the exchange when it was the last outstanding one.
func (s *Service) SubmitExchangeChoice(state *domain.GameState, playerID, cardID string) (*domain.GameState, []Event, error) {
	next := domain.SubmitExchangeChoice(state, playerID, cardID)
	if next == state {
		return state, rejectionEvents(playerID, "invalid exchange choice"), fmt.Errorf("%w: exchange choice %s by %s", ErrRejected, cardID, playerID)
	}
	return next, outcomeEvents(state, next), nil
}

// CompleteArrestAnimation releases the arrest barrier.
func (s *Service) CompleteArrestAnimation(state *domain.GameState) (*domain.GameState, []Event, error) {
	next := domain.CompleteArrestAnimation(s.rng, state)
	if next == state {
		return state, nil, fmt.Errorf("%w: no arrest animation in progress", ErrRejected)
	}
	return next, outcomeEvents(state, next), nil
}

// CompleteEscapeAnimation releases the escape barrier.
func (s *Service) CompleteEscapeAnimation(state *domain.GameState) (*domain.GameState, []Event, error) {
	next := domain.CompleteEscapeAnimation(s.rng, state)
	if next == state {
		return state, nil, fmt.Errorf("%w: no escape animation in progress", ErrRejected)
	}
	return next, outcomeEvents(state, next), nil
}

func rejectionEvents(playerID, reason string) []Event {
	return []Event{{
		Kind:       EventCommandRejected,
		Payload:    CommandRejectedPayload{PlayerID: playerID, Reason: reason},
		Recipients: []string{playerID},
	}}
}

// outcomeEvents derives the broadcast events from a state transition:
// exchange openings and resolutions, animation barriers, and round end.
func outcomeEvents(before, after *domain.GameState) []Event {
	var events []Event

	if after.Exchange != nil && before.Exchange == nil {
		events = append(events, Event{
			Kind: EventExchangeOpened,
			Payload: ExchangeOpenedPayload{
				Kind:         after.Exchange.Kind,
				Participants: after.Exchange.Participants,
			},
		})
	}
	// LastExchange is set exactly once per turn and cleared at rotation, so
	// nil-to-non-nil means a resolution happened in this transition.
	if after.LastExchange != nil && before.LastExchange == nil {
		events = append(events, Event{
			Kind:    EventExchangeResolved,
			Payload: ExchangeResolvedPayload{Info: after.LastExchange},
		})
	}
	if after.Arrest != nil && before.Arrest == nil {
		events = append(events, Event{
			Kind:    EventArrestAnimation,
			Payload: ArrestAnimationPayload{Arrest: after.Arrest},
		})
	}
	if after.Escape != nil && before.Escape == nil {
		events = append(events, Event{
			Kind:    EventEscapeAnimation,
			Payload: EscapeAnimationPayload{Escape: after.Escape},
		})
	}
	if after.Phase == domain.PhaseGameOver && after.Victory != nil && before.Victory == nil {
		events = append(events, Event{
			Kind:    EventRoundEnded,
			Payload: RoundEndedPayload{Victory: after.Victory},
		})
	}
	return events
}
