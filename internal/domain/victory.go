package domain

import "math/rand"

// effectiveTeam is the team a player is judged on at round end. A player on
// the culprit faction who does not hold the culprit card got there by playing
// an accomplice card.
func effectiveTeam(p *Player) Team {
	if p.Team == TeamCulprit {
		return TeamCulprit
	}
	return TeamCitizen
}

func usedAccomplice(p *Player) bool {
	return p.Team == TeamCulprit && !p.HoldsKind(KindCulprit)
}

// declareWinner ends the round: decides the winner set for the given faction,
// walks every player through the escalation ladder, resolves next-round
// titles, and writes the result table onto the state. The unmasked culprit
// carries the round's danger word into their next title.
func declareWinner(rng *rand.Rand, s *GameState, faction Faction, victoryType VictoryType, mvpID, targetID string) *GameState {
	victory := VictoryInfo{
		WinnerFaction:  faction,
		VictoryType:    victoryType,
		MVPPlayerID:    mvpID,
		TargetPlayerID: targetID,
	}

	results := make([]PlayerResult, 0, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		accomplice := usedAccomplice(p)

		var isWinner bool
		switch faction {
		case FactionCulprit:
			// An escaped culprit no longer holds the card; the MVP id
			// covers them.
			isWinner = p.HoldsKind(KindCulprit) || accomplice || p.ID == mvpID
		case FactionDetective:
			// An accomplice never shares the catcher's win, even as MVP.
			isWinner = p.ID == mvpID && !accomplice
		}

		result := PlayerResult{
			PlayerID:           p.ID,
			PlayerName:         p.Name,
			Team:               effectiveTeam(p),
			IsWinner:           isWinner,
			IsMVP:              p.ID == mvpID && isWinner,
			IsAccompliceWinner: isWinner && accomplice,
			UsedAccomplice:     accomplice,
			OldLevel:           p.EscalationLevel,
		}
		result.NewLevel = NextLevel(p.EscalationLevel, result, victory)

		carried := p.AssignedTitleWord
		if faction == FactionDetective && p.ID == targetID {
			// The unmasked culprit keeps this round's danger word.
			if c := s.CulpritCard(); c != nil && c.AssignedDangerWord != "" {
				carried = c.AssignedDangerWord
			} else if s.DangerWord != "" {
				carried = s.DangerWord
			}
		}
		title := TitleFor(rng, result.NewLevel, p.Name, carried)
		result.NextTitle = title.FullTitle
		result.NextAssignedWord = title.AssignedWord

		p.EscalationLevel = result.NewLevel
		p.AssignedTitleWord = title.AssignedWord
		p.CurrentTitle = title.FullTitle

		results = append(results, result)
	}

	victory.Results = results
	s.Victory = &victory
	s.WinnerFaction = faction
	s.Pending = nil
	s.Exchange = nil
	s.Phase = PhaseGameOver
	return s
}
