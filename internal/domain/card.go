package domain

import "sort"

// Kind identifies one of the twelve card kinds. The engine dispatches card
// effects on this closed set.
type Kind string

const (
	KindFirstDiscoverer Kind = "first_discoverer"
	KindCulprit         Kind = "culprit"
	KindDetective       Kind = "detective"
	KindAlibi           Kind = "alibi"
	KindAccomplice      Kind = "accomplice"
	KindWitness         Kind = "witness"
	KindInformation     Kind = "information"
	KindRumor           Kind = "rumor"
	KindDog             Kind = "dog"
	KindBoy             Kind = "boy"
	KindTrade           Kind = "trade"
	KindCommon          Kind = "common"
)

// TargetShape describes what a card effect points at when played.
type TargetShape string

const (
	TargetNone         TargetShape = "none"
	TargetSinglePlayer TargetShape = "single_player"
	TargetAllPlayers   TargetShape = "all_players"
)

// CardSpec is the static catalog entry for a kind: presentation fields plus
// the sort key used for hand ordering.
type CardSpec struct {
	Name        string
	Description string
	Target      TargetShape
	SortOrder   int
	Icon        string
}

// Catalog is the static card catalog. The culprit sorts last so it sits at
// the far end of every hand.
var Catalog = map[Kind]CardSpec{
	KindFirstDiscoverer: {
		Name:        "First Discoverer",
		Description: "Opens the round and reveals the rumor about the culprit.",
		Target:      TargetNone,
		SortOrder:   10,
		Icon:        "magnifier",
	},
	KindDetective: {
		Name:        "Detective",
		Description: "Accuse a player. An alibi protects them.",
		Target:      TargetSinglePlayer,
		SortOrder:   20,
		Icon:        "badge",
	},
	KindAlibi: {
		Name:        "Alibi",
		Description: "No effect when played; protects against accusations while held.",
		Target:      TargetNone,
		SortOrder:   30,
		Icon:        "clock",
	},
	KindAccomplice: {
		Name:        "Accomplice",
		Description: "Join the culprit's side for the rest of the round.",
		Target:      TargetNone,
		SortOrder:   40,
		Icon:        "mask",
	},
	KindWitness: {
		Name:        "Witness",
		Description: "Look at one player's hand.",
		Target:      TargetSinglePlayer,
		SortOrder:   50,
		Icon:        "eye",
	},
	KindInformation: {
		Name:        "Information Exchange",
		Description: "Everyone passes one chosen card along the table.",
		Target:      TargetAllPlayers,
		SortOrder:   60,
		Icon:        "envelope",
	},
	KindRumor: {
		Name:        "Rumor",
		Description: "Everyone draws a random card from their neighbor.",
		Target:      TargetAllPlayers,
		SortOrder:   65,
		Icon:        "speech",
	},
	KindDog: {
		Name:        "Police Dog",
		Description: "Sniff one card in a player's hand; a culprit hit ends the round.",
		Target:      TargetSinglePlayer,
		SortOrder:   70,
		Icon:        "dog",
	},
	KindBoy: {
		Name:        "Observant Boy",
		Description: "Privately learn who holds the culprit card.",
		Target:      TargetNone,
		SortOrder:   75,
		Icon:        "boy",
	},
	KindTrade: {
		Name:        "Trade",
		Description: "Swap one chosen card with a chosen player.",
		Target:      TargetSinglePlayer,
		SortOrder:   80,
		Icon:        "swap",
	},
	KindCommon: {
		Name:        "Commoner",
		Description: "Nothing happens.",
		Target:      TargetNone,
		SortOrder:   90,
		Icon:        "person",
	},
	KindCulprit: {
		Name:        "Culprit",
		Description: "Escape by playing this as your last card.",
		Target:      TargetNone,
		SortOrder:   99,
		Icon:        "shadow",
	},
}

// Kinds returns every kind in catalog sort order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(Catalog))
	for k := range Catalog {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return Catalog[kinds[i]].SortOrder < Catalog[kinds[j]].SortOrder
	})
	return kinds
}

// ExchangeKind distinguishes the three card relocation protocols.
type ExchangeKind string

const (
	ExchangeInformation ExchangeKind = "INFORMATION"
	ExchangeRumor       ExchangeKind = "RUMOR"
	ExchangeTrade       ExchangeKind = "TRADE"
)

// TradeProvenance marks a card that changed hands in a direct trade, for
// display on the card face.
type TradeProvenance struct {
	Kind     ExchangeKind `json:"kind"`
	FromName string       `json:"from_name"`
	ToName   string       `json:"to_name"`
}

// Card is one dealt card instance. IDs are unique within a round. The
// culprit instance carries the round's danger word; Trade records the last
// direct exchange it went through.
type Card struct {
	ID                 string           `json:"id"`
	Kind               Kind             `json:"kind"`
	AssignedDangerWord string           `json:"assigned_danger_word,omitempty"`
	Trade              *TradeProvenance `json:"trade,omitempty"`
}

// Spec returns the catalog entry for the card's kind.
func (c Card) Spec() CardSpec {
	return Catalog[c.Kind]
}

// SortHand orders a hand in place by catalog sort order, stable so equal
// kinds keep their relative order.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		return Catalog[hand[i].Kind].SortOrder < Catalog[hand[j].Kind].SortOrder
	})
}
