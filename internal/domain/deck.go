package domain

import (
	"fmt"
	"math/rand"
)

const (
	// MinPlayers and MaxPlayers bound the supported table sizes.
	MinPlayers = 3
	MaxPlayers = 8

	// CardsPerPlayer is fixed: every deck holds exactly 4 cards per seat.
	CardsPerPlayer = 4

	// InventoryTotal is the full card pool used for an 8-player game.
	InventoryTotal = MaxPlayers * CardsPerPlayer
)

// DeckConfig describes the card pool a deck is drawn from: the total
// inventory and, per player count, the cards that must always be present.
type DeckConfig struct {
	Inventory map[Kind]int         `json:"inventory"`
	Mandatory map[int]map[Kind]int `json:"mandatory"`
}

// DefaultDeckConfig returns the standard 32-card inventory and the
// per-player-count mandatory tables. Smaller tables always get the first
// discoverer, the culprit and a spine of detective, alibi and accomplice
// cards; eight players play the full inventory.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		Inventory: map[Kind]int{
			KindFirstDiscoverer: 1,
			KindCulprit:         1,
			KindDetective:       4,
			KindAlibi:           5,
			KindAccomplice:      2,
			KindRumor:           3,
			KindInformation:     3,
			KindDog:             4,
			KindBoy:             4,
			KindWitness:         3,
			KindTrade:           2,
			KindCommon:          0,
		},
		Mandatory: map[int]map[Kind]int{
			3: {KindFirstDiscoverer: 1, KindCulprit: 1, KindDetective: 1, KindAlibi: 2},
			4: {KindFirstDiscoverer: 1, KindCulprit: 1, KindDetective: 1, KindAlibi: 2, KindAccomplice: 1},
			5: {KindFirstDiscoverer: 1, KindCulprit: 1, KindDetective: 1, KindAlibi: 2, KindAccomplice: 1},
			6: {KindFirstDiscoverer: 1, KindCulprit: 1, KindDetective: 2, KindAlibi: 2, KindAccomplice: 2},
			7: {KindFirstDiscoverer: 1, KindCulprit: 1, KindDetective: 2, KindAlibi: 3, KindAccomplice: 2},
		},
	}
}

// Validate checks the configured inventory against the invariants the engine
// relies on: a 32-card pool with exactly one culprit and one first discoverer,
// and mandatory tables that never exceed inventory or the deck size.
func (cfg DeckConfig) Validate() error {
	total := 0
	for _, n := range cfg.Inventory {
		total += n
	}
	if total != InventoryTotal {
		return fmt.Errorf("%w: inventory holds %d cards, want %d", ErrDeckConfig, total, InventoryTotal)
	}
	if cfg.Inventory[KindCulprit] != 1 {
		return fmt.Errorf("%w: inventory must hold exactly one culprit card", ErrDeckConfig)
	}
	if cfg.Inventory[KindFirstDiscoverer] != 1 {
		return fmt.Errorf("%w: inventory must hold exactly one first discoverer card", ErrDeckConfig)
	}
	for count, table := range cfg.Mandatory {
		mandatoryTotal := 0
		for kind, n := range table {
			if n > cfg.Inventory[kind] {
				return fmt.Errorf("%w: %d-player table requires %d %q cards, inventory has %d",
					ErrDeckConfig, count, n, kind, cfg.Inventory[kind])
			}
			mandatoryTotal += n
		}
		if mandatoryTotal > count*CardsPerPlayer {
			return fmt.Errorf("%w: %d-player mandatory table holds %d cards, deck size is %d",
				ErrDeckConfig, count, mandatoryTotal, count*CardsPerPlayer)
		}
	}
	return nil
}

// cardSequence issues card instance ids for one deck generation. A fresh
// sequence per GenerateDeck call keeps ids stable within a round without any
// process-wide counter leaking across rounds.
type cardSequence struct {
	next map[Kind]int
}

func newCardSequence() *cardSequence {
	return &cardSequence{next: make(map[Kind]int)}
}

func (s *cardSequence) issue(kind Kind) Card {
	s.next[kind]++
	return Card{
		ID:   fmt.Sprintf("%s-%d", kind, s.next[kind]),
		Kind: kind,
	}
}

func (s *cardSequence) issueAll(kind Kind, n int) []Card {
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, s.issue(kind))
	}
	return cards
}

// GenerateDeck builds a shuffled deck of exactly 4 cards per player.
//
// With 8 players the deck is the full inventory. Otherwise the per-count
// mandatory cards are drawn first and the remainder is filled from a uniform
// shuffle of what is left in the inventory. Any inconsistency between the
// mandatory table and the inventory is a configuration error, returned as a
// fatal error rather than silently patched over.
func GenerateDeck(rng *rand.Rand, playerCount int, cfg DeckConfig) ([]Card, error) {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return nil, fmt.Errorf("%w: player count %d outside %d..%d",
			ErrDeckConfig, playerCount, MinPlayers, MaxPlayers)
	}

	seq := newCardSequence()
	target := playerCount * CardsPerPlayer

	// Full-pool play: every inventory card, dealt once each.
	if playerCount == MaxPlayers {
		deck := make([]Card, 0, target)
		for _, kind := range Kinds() {
			deck = append(deck, seq.issueAll(kind, cfg.Inventory[kind])...)
		}
		if len(deck) != target {
			return nil, fmt.Errorf("%w: full inventory holds %d cards, want %d",
				ErrDeckConfig, len(deck), target)
		}
		shuffleCards(rng, deck)
		return deck, nil
	}

	table, ok := cfg.Mandatory[playerCount]
	if !ok {
		return nil, fmt.Errorf("%w: no mandatory table for %d players", ErrDeckConfig, playerCount)
	}

	mandatory := make([]Card, 0, target)
	used := make(map[Kind]int, len(table))
	for _, kind := range Kinds() {
		n := table[kind]
		if n == 0 {
			continue
		}
		if n > cfg.Inventory[kind] {
			return nil, fmt.Errorf("%w: mandatory %q count %d exceeds inventory %d",
				ErrDeckConfig, kind, n, cfg.Inventory[kind])
		}
		mandatory = append(mandatory, seq.issueAll(kind, n)...)
		used[kind] = n
	}

	needed := target - len(mandatory)
	if needed < 0 {
		return nil, fmt.Errorf("%w: mandatory cards (%d) exceed deck size (%d)",
			ErrDeckConfig, len(mandatory), target)
	}

	pool := make([]Card, 0, InventoryTotal-len(mandatory))
	for _, kind := range Kinds() {
		remaining := cfg.Inventory[kind] - used[kind]
		if remaining > 0 {
			pool = append(pool, seq.issueAll(kind, remaining)...)
		}
	}
	if len(pool) < needed {
		return nil, fmt.Errorf("%w: random pool holds %d cards, need %d",
			ErrDeckConfig, len(pool), needed)
	}

	shuffleCards(rng, pool)
	deck := append(mandatory, pool[:needed]...)
	shuffleCards(rng, deck)
	return deck, nil
}

// Deal distributes a deck round-robin into playerCount hands, each sorted by
// catalog order. Card i goes to hand i mod playerCount.
func Deal(deck []Card, playerCount int) [][]Card {
	hands := make([][]Card, playerCount)
	for i, card := range deck {
		seat := i % playerCount
		hands[seat] = append(hands[seat], card)
	}
	for _, hand := range hands {
		SortHand(hand)
	}
	return hands
}

// FirstDiscovererIndex locates the hand holding the first discoverer card.
// That player moves first. Falls back to 0 for a malformed deal; this should
// never happen with a validated config.
func FirstDiscovererIndex(hands [][]Card) int {
	for i, hand := range hands {
		for _, card := range hand {
			if card.Kind == KindFirstDiscoverer {
				return i
			}
		}
	}
	return 0
}

func shuffleCards(rng *rand.Rand, cards []Card) {
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}
