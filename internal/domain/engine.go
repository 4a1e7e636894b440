package domain

import (
	"fmt"
	"math/rand"
)

// Every function in this file is a total, synchronous transition: it takes
// the current state and a command and returns a new state, or the input
// state unchanged (pointer-equal) when the command is illegal. The engine
// never blocks; a phase that waits on input simply refuses to auto-advance.

// InitializeGame deals a fresh round for the given roster. Rotation order is
// the roster order and never changes mid-round. Hands, teams and liveness are
// reset; escalation level and title continuity carry over from the roster.
func InitializeGame(rng *rand.Rand, roster []Player, cfg DeckConfig) (*GameState, error) {
	deck, err := GenerateDeck(rng, len(roster), cfg)
	if err != nil {
		return nil, err
	}
	hands := Deal(deck, len(roster))

	dangerWord := RandomDangerWord(rng)
	for i := range hands {
		for j := range hands[i] {
			if hands[i][j].Kind == KindCulprit {
				hands[i][j].AssignedDangerWord = dangerWord
			}
		}
	}

	players := make([]Player, len(roster))
	copy(players, roster)
	for i := range players {
		players[i].Hand = hands[i]
		players[i].IsAlive = true
		players[i].Team = TeamCitizen

		title := TitleFor(rng, players[i].EscalationLevel, players[i].Name, players[i].AssignedTitleWord)
		players[i].CurrentTitle = title.FullTitle
		players[i].AssignedTitleWord = title.AssignedWord
	}

	return &GameState{
		Phase:             PhaseSetup,
		Players:           players,
		ActivePlayerIndex: FirstDiscovererIndex(hands),
		TurnCount:         0,
		RoundNumber:       1,
		DangerWord:        dangerWord,
	}, nil
}

// AdvancePhase performs the automatic transition out of the current phase.
// Phases that wait on a command, and a RESOLVING_EFFECT holding an animation
// barrier, return the state unchanged.
func AdvancePhase(s *GameState) *GameState {
	switch s.Phase {
	case PhaseSetup:
		ns := s.clone()
		ns.Phase = PhaseTurnStart
		return ns

	case PhaseTurnStart:
		ns := s.clone()
		ns.Phase = PhaseWaitingForPlay
		ns.TurnCount++
		return ns

	case PhaseResolvingEffect:
		if s.Arrest != nil || s.Escape != nil {
			// Held until the animation-complete command arrives.
			return s
		}
		ns := s.clone()
		ns.Phase = PhaseTurnEnd
		return ns

	case PhaseTurnEnd:
		return moveToNextPlayer(s)

	default:
		// WAITING_FOR_PLAY, SELECTING_TARGET, SELECTING_CARD,
		// EXCHANGE_PHASE and GAME_OVER only leave via explicit commands.
		return s
	}
}

// moveToNextPlayer advances rotation to the next alive player, recomputes the
// round number from the discard pile, and loops back to TURN_START. With at
// most one player left alive the round jumps straight to GAME_OVER.
func moveToNextPlayer(s *GameState) *GameState {
	ns := s.clone()
	if ns.aliveCount() <= 1 {
		ns.Phase = PhaseGameOver
		return ns
	}

	next := (ns.ActivePlayerIndex + 1) % len(ns.Players)
	for !ns.Players[next].IsAlive {
		next = (next + 1) % len(ns.Players)
	}

	ns.ActivePlayerIndex = next
	ns.RoundNumber = ns.currentRound()
	ns.Phase = PhaseTurnStart
	ns.Pending = nil
	ns.LastExchange = nil
	return ns
}

// CanPlayCard implements the play-legality rules, including the two escape
// valves that keep a stuck hand playable:
//
//   - a first discoverer in hand locks out every other kind, and an empty
//     table only accepts the first discoverer;
//   - the culprit card needs to be the last card, except that on round 1 a
//     hand reduced to culprit and detective cards may discard it early
//     (intentional: the play is legal and resolves as an immediate loss);
//   - the detective card is locked on round 1 under the same exception, and a
//     detective played through the valve is a dead discard.
func CanPlayCard(s *GameState, p *Player, card Card) bool {
	if p.HoldsKind(KindFirstDiscoverer) && card.Kind != KindFirstDiscoverer {
		return false
	}
	if len(s.TableCards) == 0 && card.Kind != KindFirstDiscoverer {
		return false
	}

	switch card.Kind {
	case KindCulprit:
		if len(p.Hand) == 1 {
			return true
		}
		return s.currentRound() == 1 && handOnlyKinds(p, KindCulprit, KindDetective)
	case KindDetective:
		if s.currentRound() >= 2 {
			return true
		}
		return handOnlyKinds(p, KindCulprit, KindDetective)
	}
	return true
}

func handOnlyKinds(p *Player, allowed ...Kind) bool {
	for _, c := range p.Hand {
		ok := false
		for _, k := range allowed {
			if c.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// PlayCard removes a legal card from the active player's hand, appends it to
// the table and the play log, and resolves its effect.
func PlayCard(rng *rand.Rand, s *GameState, playerID, cardID string) *GameState {
	if s.Phase != PhaseWaitingForPlay {
		return s
	}
	idx := s.playerIndex(playerID)
	if idx == -1 || idx != s.ActivePlayerIndex {
		return s
	}
	player := &s.Players[idx]
	ci := player.CardByID(cardID)
	if ci == -1 {
		return s
	}
	card := player.Hand[ci]
	if !CanPlayCard(s, player, card) {
		return s
	}

	playedRound := s.currentRound()

	ns := s.clone()
	np := &ns.Players[idx]
	np.Hand = append(np.Hand[:ci], np.Hand[ci+1:]...)
	ns.TableCards = append(ns.TableCards, card)
	ns.PlayedLog = append(ns.PlayedLog, PlayLogEntry{
		CardID:   card.ID,
		Kind:     card.Kind,
		PlayerID: playerID,
		Round:    playedRound,
	})
	ns.SystemMessage = ""
	ns.LastExchange = nil

	return resolveEffect(rng, ns, idx, card, playedRound)
}

// resolveEffect dispatches on the card kind just played. The switch covers
// all twelve kinds explicitly so a new kind forces this site to be revisited.
func resolveEffect(rng *rand.Rand, s *GameState, playerIndex int, card Card, playedRound int) *GameState {
	player := &s.Players[playerIndex]

	switch card.Kind {
	case KindFirstDiscoverer:
		if c := s.CulpritCard(); c != nil && c.AssignedDangerWord != "" {
			s.SystemMessage = fmt.Sprintf("A %s culprit has been sighted!", c.AssignedDangerWord)
		}
		s.Phase = PhaseResolvingEffect
		return s

	case KindCulprit:
		if len(player.Hand) == 0 {
			// Escape. The win declaration waits behind the victory
			// animation barrier.
			s.Escape = &EscapeAnimation{
				CulpritPlayerID: player.ID,
				DangerWord:      card.AssignedDangerWord,
			}
			s.Phase = PhaseResolvingEffect
			return s
		}
		// Discarded early (the round-1 valve, or a defensive catch-all):
		// the culprit is exposed and loses on the spot.
		return declareWinner(rng, s, FactionDetective, "", "", player.ID)

	case KindDetective:
		if playedRound < 2 {
			// Valve discard: effect suppressed.
			s.SystemMessage = "The detective arrived too early to accuse anyone."
			s.Phase = PhaseResolvingEffect
			return s
		}
		s.Phase = PhaseSelectingTarget
		s.Pending = &PendingAction{Type: PendingSelectTarget, PlayerID: player.ID, CardKind: card.Kind}
		return s

	case KindWitness, KindDog, KindTrade:
		s.Phase = PhaseSelectingTarget
		s.Pending = &PendingAction{Type: PendingSelectTarget, PlayerID: player.ID, CardKind: card.Kind}
		return s

	case KindAccomplice:
		player.Team = TeamCulprit
		s.Phase = PhaseResolvingEffect
		return s

	case KindInformation:
		return beginInformationExchange(rng, s)

	case KindRumor:
		return executeRumor(rng, s)

	case KindAlibi, KindBoy, KindCommon:
		// Alibi only matters while held; boy is resolved by the
		// presentation layer reading the culprit holder.
		s.Phase = PhaseResolvingEffect
		return s
	}

	s.Phase = PhaseResolvingEffect
	return s
}

// SelectTarget resolves the pending single-player selection. Only valid in
// SELECTING_TARGET; the target must be another alive player.
func SelectTarget(rng *rand.Rand, s *GameState, targetID string) *GameState {
	if s.Phase != PhaseSelectingTarget || s.Pending == nil || s.Pending.Type != PendingSelectTarget {
		return s
	}
	sourceIdx := s.playerIndex(s.Pending.PlayerID)
	targetIdx := s.playerIndex(targetID)
	if sourceIdx == -1 || targetIdx == -1 || sourceIdx == targetIdx {
		return s
	}
	if !s.Players[targetIdx].IsAlive {
		return s
	}

	switch s.Pending.CardKind {
	case KindDetective:
		target := &s.Players[targetIdx]
		success := target.HoldsKind(KindCulprit) && !target.HoldsKind(KindAlibi)
		ns := s.clone()
		ns.Arrest = &ArrestAnimation{
			CardKind:       KindDetective,
			SourcePlayerID: ns.Pending.PlayerID,
			TargetPlayerID: targetID,
			Success:        success,
		}
		ns.Pending = nil
		ns.Phase = PhaseResolvingEffect
		return ns

	case KindWitness:
		// The reveal itself is a presentation concern; the engine records
		// who was shown to whom.
		ns := s.clone()
		ns.Pending.TargetIDs = []string{targetID}
		ns.Phase = PhaseResolvingEffect
		return ns

	case KindDog:
		ns := s.clone()
		ns.Pending.Type = PendingSelectCard
		ns.Pending.TargetIDs = []string{targetID}
		ns.Phase = PhaseSelectingCard
		return ns

	case KindTrade:
		return beginTradeExchange(rng, s, s.Pending.PlayerID, targetID)
	}

	ns := s.clone()
	ns.Pending = nil
	ns.Phase = PhaseResolvingEffect
	return ns
}

// SelectCard resolves the dog card's specific-card guess. A culprit hit
// records a successful arrest marker; anything else is a plain continue.
func SelectCard(s *GameState, cardID string) *GameState {
	if s.Phase != PhaseSelectingCard || s.Pending == nil || s.Pending.Type != PendingSelectCard {
		return s
	}
	if len(s.Pending.TargetIDs) == 0 {
		return s
	}
	target := s.PlayerByID(s.Pending.TargetIDs[0])
	if target == nil {
		ns := s.clone()
		ns.Pending = nil
		ns.Phase = PhaseResolvingEffect
		return ns
	}
	ci := target.CardByID(cardID)
	if ci == -1 {
		return s
	}
	guessed := target.Hand[ci]

	ns := s.clone()
	if guessed.Kind == KindCulprit {
		ns.Arrest = &ArrestAnimation{
			CardKind:         KindDog,
			SourcePlayerID:   ns.Pending.PlayerID,
			TargetPlayerID:   target.ID,
			SelectedCardID:   guessed.ID,
			SelectedCardKind: guessed.Kind,
			Success:          true,
		}
	} else {
		ns.SystemMessage = "Not the culprit."
	}
	ns.Pending = nil
	ns.Phase = PhaseResolvingEffect
	return ns
}

// CompleteArrestAnimation is the external synchronization barrier for
// detective and dog resolutions: a successful arrest becomes the win only
// once the presentation layer confirms the animation finished.
func CompleteArrestAnimation(rng *rand.Rand, s *GameState) *GameState {
	if s.Phase != PhaseResolvingEffect || s.Arrest == nil {
		return s
	}
	arrest := *s.Arrest
	ns := s.clone()
	ns.Arrest = nil

	if !arrest.Success {
		return ns
	}
	victoryType := VictoryDetective
	if arrest.CardKind == KindDog {
		victoryType = VictoryDog
	}
	return declareWinner(rng, ns, FactionDetective, victoryType, arrest.SourcePlayerID, arrest.TargetPlayerID)
}

// CompleteEscapeAnimation is the matching barrier for a culprit escape.
func CompleteEscapeAnimation(rng *rand.Rand, s *GameState) *GameState {
	if s.Phase != PhaseResolvingEffect || s.Escape == nil {
		return s
	}
	escape := *s.Escape
	ns := s.clone()
	ns.Escape = nil
	return declareWinner(rng, ns, FactionCulprit, VictoryCulpritEscape, escape.CulpritPlayerID, "")
}

// exchangeParticipants returns the ids of alive players that still hold at
// least one card, in rotation order. Empty hands leave the exchange rotation
// entirely rather than being passed over.
func exchangeParticipants(s *GameState) []string {
	var ids []string
	for i := range s.Players {
		if s.Players[i].IsAlive && len(s.Players[i].Hand) > 0 {
			ids = append(ids, s.Players[i].ID)
		}
	}
	return ids
}

// beginInformationExchange opens the all-player exchange: every participant
// owes one card to the next participant in rotation order. NPC choices are
// pre-filled at phase entry; if nothing remains outstanding the exchange
// resolves immediately.
func beginInformationExchange(rng *rand.Rand, s *GameState) *GameState {
	participants := exchangeParticipants(s)
	if len(participants) < 2 {
		s.Phase = PhaseResolvingEffect
		return s
	}

	s.Exchange = &ExchangeState{
		Kind:         ExchangeInformation,
		Participants: participants,
		Selections:   make(map[string]string, len(participants)),
	}
	s.Phase = PhaseExchange
	prefillNPCSelections(rng, s)

	if s.Exchange.Complete() {
		return resolveExchange(s)
	}
	return s
}

// beginTradeExchange opens the two-party exchange between the trade
// initiator and the chosen target.
func beginTradeExchange(rng *rand.Rand, s *GameState, initiatorID, targetID string) *GameState {
	ns := s.clone()
	ns.Pending = nil

	initiator := ns.PlayerByID(initiatorID)
	target := ns.PlayerByID(targetID)
	if initiator == nil || target == nil || len(initiator.Hand) == 0 || len(target.Hand) == 0 {
		ns.Phase = PhaseResolvingEffect
		return ns
	}

	ns.Exchange = &ExchangeState{
		Kind:         ExchangeTrade,
		Participants: []string{initiatorID, targetID},
		Selections:   make(map[string]string, 2),
		InitiatorID:  initiatorID,
		TargetID:     targetID,
	}
	ns.Phase = PhaseExchange
	prefillNPCSelections(rng, ns)

	if ns.Exchange.Complete() {
		return resolveExchange(ns)
	}
	return ns
}

// prefillNPCSelections records a random card choice for every NPC
// participant so that only human submissions remain outstanding.
func prefillNPCSelections(rng *rand.Rand, s *GameState) {
	for _, id := range s.Exchange.Participants {
		p := s.PlayerByID(id)
		if p == nil || !p.IsNPC || len(p.Hand) == 0 {
			continue
		}
		s.Exchange.Selections[id] = p.Hand[rng.Intn(len(p.Hand))].ID
	}
}

// SubmitExchangeChoice records one participant's chosen card. The last
// required submission triggers the actual relocation. Submission order does
// not matter, and re-submitting before resolution overwrites the earlier
// choice.
func SubmitExchangeChoice(s *GameState, playerID, cardID string) *GameState {
	if s.Phase != PhaseExchange || s.Exchange == nil {
		return s
	}
	isParticipant := false
	for _, id := range s.Exchange.Participants {
		if id == playerID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return s
	}
	p := s.PlayerByID(playerID)
	if p == nil || p.CardByID(cardID) == -1 {
		return s
	}

	ns := s.clone()
	ns.Exchange.Selections[playerID] = cardID
	if ns.Exchange.Complete() {
		return resolveExchange(ns)
	}
	return ns
}

// resolveExchange performs the multi-party relocation atomically: every
// chosen card is lifted out of its hand first, then delivered, so a hand is
// never observed mid-move. Emits the replay record for the UI.
func resolveExchange(s *GameState) *GameState {
	ex := s.Exchange
	moves := make([]ExchangeMove, 0, len(ex.Participants))

	switch ex.Kind {
	case ExchangeInformation:
		// Each participant passes their chosen card to the next
		// participant in rotation order.
		lifted := make(map[string]Card, len(ex.Participants))
		for _, id := range ex.Participants {
			p := s.PlayerByID(id)
			ci := p.CardByID(ex.Selections[id])
			if ci == -1 {
				continue
			}
			lifted[id] = p.Hand[ci]
			p.Hand = append(p.Hand[:ci], p.Hand[ci+1:]...)
		}
		for i, fromID := range ex.Participants {
			card, ok := lifted[fromID]
			if !ok {
				continue
			}
			toID := ex.Participants[(i+1)%len(ex.Participants)]
			to := s.PlayerByID(toID)
			to.Hand = append(to.Hand, card)
			SortHand(to.Hand)
			moves = append(moves, ExchangeMove{FromPlayerID: fromID, ToPlayerID: toID, CardID: card.ID})
		}

	case ExchangeTrade:
		initiator := s.PlayerByID(ex.InitiatorID)
		target := s.PlayerByID(ex.TargetID)
		ii := initiator.CardByID(ex.Selections[ex.InitiatorID])
		ti := target.CardByID(ex.Selections[ex.TargetID])
		if ii != -1 && ti != -1 {
			give := initiator.Hand[ii]
			take := target.Hand[ti]
			give.Trade = &TradeProvenance{Kind: ExchangeTrade, FromName: initiator.Name, ToName: target.Name}
			take.Trade = &TradeProvenance{Kind: ExchangeTrade, FromName: target.Name, ToName: initiator.Name}
			initiator.Hand[ii] = take
			target.Hand[ti] = give
			SortHand(initiator.Hand)
			SortHand(target.Hand)
			moves = append(moves,
				ExchangeMove{FromPlayerID: initiator.ID, ToPlayerID: target.ID, CardID: give.ID},
				ExchangeMove{FromPlayerID: target.ID, ToPlayerID: initiator.ID, CardID: take.ID},
			)
		}
	}

	s.LastExchange = &ExchangeInfo{Kind: ex.Kind, Moves: moves}
	s.Exchange = nil
	s.Phase = PhaseResolvingEffect
	return s
}

// executeRumor resolves the rumor card with no player input: every
// participant draws one random card from the next participant in rotation
// order, the mirror flow of the information exchange.
func executeRumor(rng *rand.Rand, s *GameState) *GameState {
	participants := exchangeParticipants(s)
	if len(participants) < 2 {
		s.Phase = PhaseResolvingEffect
		return s
	}

	// Pick every draw up front so all moves resolve against the
	// pre-exchange hands.
	lifted := make(map[string]Card, len(participants))
	moves := make([]ExchangeMove, 0, len(participants))
	for i, toID := range participants {
		fromID := participants[(i+1)%len(participants)]
		from := s.PlayerByID(fromID)
		if len(from.Hand) == 0 {
			continue
		}
		card := from.Hand[rng.Intn(len(from.Hand))]
		lifted[toID] = card
		moves = append(moves, ExchangeMove{FromPlayerID: fromID, ToPlayerID: toID, CardID: card.ID})
	}

	for _, move := range moves {
		from := s.PlayerByID(move.FromPlayerID)
		ci := from.CardByID(move.CardID)
		if ci == -1 {
			continue
		}
		from.Hand = append(from.Hand[:ci], from.Hand[ci+1:]...)
	}
	for toID, card := range lifted {
		to := s.PlayerByID(toID)
		to.Hand = append(to.Hand, card)
		SortHand(to.Hand)
	}

	s.LastExchange = &ExchangeInfo{Kind: ExchangeRumor, Moves: moves}
	s.Phase = PhaseResolvingEffect
	return s
}
