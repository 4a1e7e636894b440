package nakama

import (
	"encoding/json"
	"strings"
	"testing"

	"culpritdance/internal/domain"
)

func redactionState() *domain.GameState {
	return &domain.GameState{
		Phase: domain.PhaseExchange,
		Players: []domain.Player{
			{ID: "ann", Name: "Ann", IsAlive: true, Team: domain.TeamCitizen, Hand: []domain.Card{
				{ID: "boy-1", Kind: domain.KindBoy},
				{ID: "alibi-1", Kind: domain.KindAlibi},
			}},
			{ID: "bea", Name: "Bea", IsAlive: true, Team: domain.TeamCulprit, Hand: []domain.Card{
				{ID: "culprit-1", Kind: domain.KindCulprit, AssignedDangerWord: "Red-Handed"},
			}},
		},
		Exchange: &domain.ExchangeState{
			Kind:         domain.ExchangeInformation,
			Participants: []string{"ann", "bea"},
			Selections:   map[string]string{"bea": "culprit-1"},
		},
	}
}

func TestViewForRedactsOtherHands(t *testing.T) {
	view := ViewFor(redactionState(), "ann")

	var own, other *PlayerView
	for i := range view.Players {
		switch view.Players[i].ID {
		case "ann":
			own = &view.Players[i]
		case "bea":
			other = &view.Players[i]
		}
	}
	if own == nil || other == nil {
		t.Fatal("players missing from view")
	}
	if len(own.Hand) != 2 || own.CardCount != 2 {
		t.Errorf("viewer's own hand redacted: %d cards, count %d", len(own.Hand), own.CardCount)
	}
	if other.Hand != nil {
		t.Error("another player's hand leaked into the view")
	}
	if other.CardCount != 1 {
		t.Errorf("other card count = %d, want 1", other.CardCount)
	}
}

func TestViewForNeverSerializesTeams(t *testing.T) {
	payload, err := json.Marshal(ViewFor(redactionState(), "ann"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(payload)
	if strings.Contains(body, "culprit-1") || strings.Contains(body, "Red-Handed") {
		t.Error("culprit card leaked to a non-holder")
	}
	if strings.Contains(body, string(domain.TeamCulprit)) {
		t.Error("team membership leaked")
	}
}

func TestViewForExchangeHidesChoices(t *testing.T) {
	view := ViewFor(redactionState(), "ann")
	if view.Exchange == nil {
		t.Fatal("exchange view missing")
	}
	if view.Exchange.OwnChoice != "" {
		t.Errorf("viewer has not chosen, own choice = %q", view.Exchange.OwnChoice)
	}
	if len(view.Exchange.Submitted) != 1 || view.Exchange.Submitted[0] != "bea" {
		t.Errorf("submitted = %v, want [bea]", view.Exchange.Submitted)
	}

	holder := ViewFor(redactionState(), "bea")
	if holder.Exchange.OwnChoice != "culprit-1" {
		t.Errorf("holder's own choice = %q, want culprit-1", holder.Exchange.OwnChoice)
	}
}
