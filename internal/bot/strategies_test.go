package bot

import (
	"math/rand"
	"testing"

	"culpritdance/internal/domain"
)

func botCard(kind domain.Kind, n int) domain.Card {
	return domain.Card{ID: string(kind) + "-" + string(rune('0'+n)), Kind: kind}
}

func botState(players []domain.Player, table []domain.Card) *domain.GameState {
	return &domain.GameState{
		Phase:      domain.PhaseWaitingForPlay,
		Players:    players,
		TableCards: table,
	}
}

func alivePlayer(id string, hand ...domain.Card) domain.Player {
	return domain.Player{ID: id, Name: id, IsAlive: true, Team: domain.TeamCitizen, Hand: hand}
}

func TestCasualBotPlaysOnlyLegalCards(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	b := NewCasualBot(rng)

	// First discoverer in hand locks out everything else, so every sampled
	// choice must be the first discoverer.
	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindFirstDiscoverer, 1), botCard(domain.KindBoy, 1), botCard(domain.KindAlibi, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
		alivePlayer("p3", botCard(domain.KindCulprit, 1)),
	}, nil)

	for i := 0; i < 20; i++ {
		cardID, err := b.ChoosePlay(s, &s.Players[0])
		if err != nil {
			t.Fatalf("ChoosePlay: %v", err)
		}
		idx := s.Players[0].CardByID(cardID)
		if idx == -1 {
			t.Fatalf("chose %q, not in hand", cardID)
		}
		if !domain.CanPlayCard(s, &s.Players[0], s.Players[0].Hand[idx]) {
			t.Fatalf("chose illegal card %q", cardID)
		}
	}
}

func TestCasualBotNoLegalMove(t *testing.T) {
	b := NewCasualBot(rand.New(rand.NewSource(22)))

	// Empty table and no first discoverer: nothing is playable.
	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindBoy, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
	}, nil)
	if _, err := b.ChoosePlay(s, &s.Players[0]); err != ErrNoMove {
		t.Errorf("got %v, want ErrNoMove", err)
	}
}

func TestSmartBotPlayPreference(t *testing.T) {
	b := NewSmartBot(rand.New(rand.NewSource(23)))

	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindAlibi, 1), botCard(domain.KindBoy, 1), botCard(domain.KindDetective, 1)),
		alivePlayer("p2", botCard(domain.KindCulprit, 1)),
		alivePlayer("p3", botCard(domain.KindCommon, 1)),
	}, []domain.Card{
		botCard(domain.KindFirstDiscoverer, 1), botCard(domain.KindCommon, 2), botCard(domain.KindCommon, 3),
		botCard(domain.KindCommon, 4), botCard(domain.KindCommon, 5), botCard(domain.KindCommon, 6),
	})

	cardID, err := b.ChoosePlay(s, &s.Players[0])
	if err != nil {
		t.Fatalf("ChoosePlay: %v", err)
	}
	// The boy is more disposable than the detective, and the alibi is held.
	if want := s.Players[0].Hand[s.Players[0].CardByID(cardID)].Kind; want != domain.KindBoy {
		t.Errorf("played %s, want %s", want, domain.KindBoy)
	}
}

func TestSmartBotTargetsCulpritHolder(t *testing.T) {
	b := NewSmartBot(rand.New(rand.NewSource(24)))

	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindBoy, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
		alivePlayer("p3", botCard(domain.KindCulprit, 1)),
	}, nil)
	s.Phase = domain.PhaseSelectingTarget
	s.Pending = &domain.PendingAction{PlayerID: "p1", CardKind: domain.KindWitness}

	for i := 0; i < 10; i++ {
		targetID, err := b.ChooseTarget(s, &s.Players[0])
		if err != nil {
			t.Fatalf("ChooseTarget: %v", err)
		}
		if targetID != "p3" {
			t.Fatalf("targeted %q, want the culprit holder p3", targetID)
		}
	}
}

func TestSmartBotAvoidsProtectedCulpritForArrest(t *testing.T) {
	b := NewSmartBot(rand.New(rand.NewSource(25)))

	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindBoy, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
		alivePlayer("p3", botCard(domain.KindCulprit, 1), botCard(domain.KindAlibi, 1)),
	}, nil)
	s.Phase = domain.PhaseSelectingTarget
	s.Pending = &domain.PendingAction{PlayerID: "p1", CardKind: domain.KindDetective}

	hitCovered := false
	for i := 0; i < 40; i++ {
		targetID, err := b.ChooseTarget(s, &s.Players[0])
		if err != nil {
			t.Fatalf("ChooseTarget: %v", err)
		}
		if targetID == "p2" {
			hitCovered = true
		}
	}
	// The alibi blocks the arrest, so the accusation falls back to random
	// seats instead of always hitting the holder.
	if !hitCovered {
		t.Error("accusation never left the alibi-protected holder")
	}
}

func TestSmartBotGuessesCulprit(t *testing.T) {
	b := NewSmartBot(rand.New(rand.NewSource(26)))

	target := alivePlayer("p2",
		botCard(domain.KindCommon, 1), botCard(domain.KindCulprit, 1), botCard(domain.KindBoy, 1))
	s := botState([]domain.Player{alivePlayer("p1"), target}, nil)

	cardID, err := b.ChooseGuess(s, &s.Players[1])
	if err != nil {
		t.Fatalf("ChooseGuess: %v", err)
	}
	if s.Players[1].Hand[s.Players[1].CardByID(cardID)].Kind != domain.KindCulprit {
		t.Errorf("guessed %q, want the culprit card", cardID)
	}
}

func TestSmartBotDumpsCulpritInExchange(t *testing.T) {
	b := NewSmartBot(rand.New(rand.NewSource(27)))

	p := alivePlayer("p1",
		botCard(domain.KindAlibi, 1), botCard(domain.KindCulprit, 1), botCard(domain.KindBoy, 1))
	s := botState([]domain.Player{p}, nil)

	cardID, err := b.ChooseExchangeCard(s, &s.Players[0])
	if err != nil {
		t.Fatalf("ChooseExchangeCard: %v", err)
	}
	if s.Players[0].Hand[s.Players[0].CardByID(cardID)].Kind != domain.KindCulprit {
		t.Errorf("kept the culprit, passed %q instead", cardID)
	}
}

func TestAgentDecideGating(t *testing.T) {
	rng := rand.New(rand.NewSource(28))
	agent := &Agent{ID: "p2", Name: "p2", Strategy: NewSmartBot(rng)}

	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindBoy, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
	}, []domain.Card{botCard(domain.KindFirstDiscoverer, 1)})

	// Not this agent's turn: stay quiet.
	cmd, err := agent.Decide(s)
	if err != nil || cmd != nil {
		t.Fatalf("off-turn decide: cmd=%v err=%v", cmd, err)
	}

	s.ActivePlayerIndex = 1
	cmd, err = agent.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if cmd == nil || cmd.Type != CommandPlayCard || cmd.PlayerID != "p2" {
		t.Fatalf("cmd = %+v, want a play by p2", cmd)
	}
}

func TestAgentDecideExchange(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	agent := &Agent{ID: "p2", Name: "p2", Strategy: NewCasualBot(rng)}

	s := botState([]domain.Player{
		alivePlayer("p1", botCard(domain.KindBoy, 1)),
		alivePlayer("p2", botCard(domain.KindCommon, 1)),
		alivePlayer("p3", botCard(domain.KindDog, 1)),
	}, nil)
	s.Phase = domain.PhaseExchange
	s.Exchange = &domain.ExchangeState{
		Kind:         domain.ExchangeInformation,
		Participants: []string{"p1", "p3"},
		Selections:   map[string]string{},
	}

	// Not a participant: stay quiet.
	cmd, err := agent.Decide(s)
	if err != nil || cmd != nil {
		t.Fatalf("non-participant decide: cmd=%v err=%v", cmd, err)
	}

	s.Exchange.Participants = []string{"p1", "p2", "p3"}
	cmd, err = agent.Decide(s)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if cmd == nil || cmd.Type != CommandExchangeChoice || cmd.CardID != "common-1" {
		t.Fatalf("cmd = %+v, want the exchange choice common-1", cmd)
	}

	// Already submitted: stay quiet.
	s.Exchange.Selections["p2"] = "common-1"
	cmd, err = agent.Decide(s)
	if err != nil || cmd != nil {
		t.Fatalf("resubmission decide: cmd=%v err=%v", cmd, err)
	}
}
