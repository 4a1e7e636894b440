package app

import (
	"context"
	"time"

	"culpritdance/internal/domain"
	"culpritdance/internal/ports"
)

// RecordFinishedRound stores a completed round in the hall of fame. A state
// that is not actually finished is ignored rather than recorded half-empty.
func RecordFinishedRound(ctx context.Context, hall ports.HallOfFame, roomID string, state *domain.GameState) error {
	if state == nil || state.Phase != domain.PhaseGameOver || state.Victory == nil {
		return nil
	}
	return hall.Record(ctx, ports.GameRecord{
		RoomID:        roomID,
		FinishedAt:    time.Now(),
		WinnerFaction: state.Victory.WinnerFaction,
		VictoryType:   state.Victory.VictoryType,
		TotalTurns:    state.TurnCount,
		Results:       state.Victory.Results,
	})
}
