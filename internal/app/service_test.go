package app

import (
	"errors"
	"math/rand"
	"testing"

	"culpritdance/internal/domain"
)

func testRoster(n int) []domain.Player {
	names := []string{"Ann", "Bea", "Cal", "Dot", "Eli", "Fay", "Gus", "Hal"}
	roster := make([]domain.Player, n)
	for i := 0; i < n; i++ {
		roster[i] = domain.Player{ID: names[i], Name: names[i]}
	}
	return roster
}

func TestStartRoundValidation(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(1)))
	cfg := domain.DefaultDeckConfig()

	if _, _, err := svc.StartRound(testRoster(2), cfg); !errors.Is(err, ErrTooFewPlayers) {
		t.Errorf("2 players: got %v, want ErrTooFewPlayers", err)
	}
	if _, _, err := svc.StartRound(testRoster(8)[:8], cfg); err != nil {
		t.Errorf("8 players: %v", err)
	}
}

func TestStartRoundEvents(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(2)))
	roster := testRoster(4)
	roster[3].IsNPC = true

	state, events, err := svc.StartRound(roster, domain.DefaultDeckConfig())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if state.Phase != domain.PhaseSetup {
		t.Errorf("phase = %s, want %s", state.Phase, domain.PhaseSetup)
	}

	var started, dealt int
	for _, ev := range events {
		switch ev.Kind {
		case EventRoundStarted:
			started++
			if len(ev.Recipients) != 0 {
				t.Error("round start must be a broadcast")
			}
		case EventHandDealt:
			dealt++
			if len(ev.Recipients) != 1 {
				t.Error("hand deals must be targeted")
			}
		}
	}
	if started != 1 {
		t.Errorf("%d round-started events, want 1", started)
	}
	// NPCs get no hand reveal.
	if dealt != 3 {
		t.Errorf("%d hand-dealt events, want 3", dealt)
	}
}

func TestAdvanceDrivesToWaiting(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(3)))
	state, _, err := svc.StartRound(testRoster(4), domain.DefaultDeckConfig())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	next, events := svc.Advance(state)
	if next.Phase != domain.PhaseWaitingForPlay {
		t.Fatalf("phase = %s, want %s", next.Phase, domain.PhaseWaitingForPlay)
	}
	if next.TurnCount != 1 {
		t.Errorf("turn count = %d, want 1", next.TurnCount)
	}
	if len(events) != 1 || events[0].Kind != EventStateChanged {
		t.Errorf("events = %+v, want one state change", events)
	}
	// Already settled: advancing again is a no-op with no events.
	again, events := svc.Advance(next)
	if again != next || events != nil {
		t.Error("settled state advanced again")
	}
}

func TestPlayCardRejection(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(4)))
	state, _, err := svc.StartRound(testRoster(4), domain.DefaultDeckConfig())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	state, _ = svc.Advance(state)

	inactive := state.Players[(state.ActivePlayerIndex+1)%len(state.Players)]
	next, events, err := svc.PlayCard(state, inactive.ID, inactive.Hand[0].ID)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("got %v, want ErrRejected", err)
	}
	if next != state {
		t.Error("rejected play changed the state")
	}
	if len(events) != 1 || events[0].Kind != EventCommandRejected {
		t.Fatalf("events = %+v, want one targeted rejection", events)
	}
	if len(events[0].Recipients) != 1 || events[0].Recipients[0] != inactive.ID {
		t.Error("rejection not targeted at the offender")
	}
}

func TestArrestFlowEvents(t *testing.T) {
	svc := NewService(rand.New(rand.NewSource(5)))

	culprit := domain.Card{ID: "culprit-1", Kind: domain.KindCulprit}
	state := &domain.GameState{
		Phase: domain.PhaseWaitingForPlay,
		Players: []domain.Player{
			{ID: "Ann", Name: "Ann", IsAlive: true, Team: domain.TeamCitizen, Hand: []domain.Card{
				{ID: "detective-1", Kind: domain.KindDetective}, {ID: "boy-1", Kind: domain.KindBoy},
			}},
			{ID: "Bea", Name: "Bea", IsAlive: true, Team: domain.TeamCitizen, Hand: []domain.Card{culprit}},
			{ID: "Cal", Name: "Cal", IsAlive: true, Team: domain.TeamCitizen, Hand: []domain.Card{
				{ID: "dog-1", Kind: domain.KindDog},
			}},
		},
		TableCards: []domain.Card{
			{ID: "boy-2", Kind: domain.KindBoy},
			{ID: "boy-3", Kind: domain.KindBoy},
			{ID: "boy-4", Kind: domain.KindBoy},
		},
		RoundNumber: 2,
	}

	state, events, err := svc.PlayCard(state, "Ann", "detective-1")
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if events[0].Kind != EventCardPlayed {
		t.Errorf("first event = %s, want %s", events[0].Kind, EventCardPlayed)
	}

	state, events, err = svc.SelectTarget(state, "Ann", "Bea")
	if err != nil {
		t.Fatalf("SelectTarget: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventArrestAnimation {
		t.Fatalf("events = %+v, want arrest animation", events)
	}

	state, events, err = svc.CompleteArrestAnimation(state)
	if err != nil {
		t.Fatalf("CompleteArrestAnimation: %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.Kind == EventRoundEnded {
			found = true
		}
	}
	if !found {
		t.Error("no round-ended event after a successful arrest")
	}
	if state.Phase != domain.PhaseGameOver {
		t.Errorf("phase = %s, want %s", state.Phase, domain.PhaseGameOver)
	}

	// The barrier is gone: completing again is rejected.
	if _, _, err := svc.CompleteArrestAnimation(state); !errors.Is(err, ErrRejected) {
		t.Errorf("second completion: got %v, want ErrRejected", err)
	}
}
