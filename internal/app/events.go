package app

import "culpritdance/internal/domain"

// EventKind identifies emitted domain events for match dispatch.
type EventKind string

const (
	EventRoundStarted     EventKind = "round_started"
	EventHandDealt        EventKind = "hand_dealt"
	EventStateChanged     EventKind = "state_changed"
	EventCardPlayed       EventKind = "card_played"
	EventExchangeOpened   EventKind = "exchange_opened"
	EventExchangeResolved EventKind = "exchange_resolved"
	EventArrestAnimation  EventKind = "arrest_animation"
	EventEscapeAnimation  EventKind = "escape_animation"
	EventRoundEnded       EventKind = "round_ended"
	EventCommandRejected  EventKind = "command_rejected"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type RoundStartedPayload struct {
	ActivePlayerID string
}

type HandDealtPayload struct {
	PlayerID string
	Hand     []domain.Card
}

type CardPlayedPayload struct {
	PlayerID string
	Card     domain.Card
	Phase    domain.Phase
}

type ExchangeOpenedPayload struct {
	Kind         domain.ExchangeKind
	Participants []string
}

type ExchangeResolvedPayload struct {
	Info *domain.ExchangeInfo
}

type ArrestAnimationPayload struct {
	Arrest *domain.ArrestAnimation
}

type EscapeAnimationPayload struct {
	Escape *domain.EscapeAnimation
}

type RoundEndedPayload struct {
	Victory *domain.VictoryInfo
}

type CommandRejectedPayload struct {
	PlayerID string
	Reason   string
}
