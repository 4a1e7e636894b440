package ports

import (
	"context"
	"time"

	"culpritdance/internal/domain"
)

// HallOfFameSize caps the retained history at the most recent entries.
const HallOfFameSize = 20

// GameRecord is one finished round in the hall of fame.
type GameRecord struct {
	RoomID        string                `json:"room_id"`
	FinishedAt    time.Time             `json:"finished_at"`
	WinnerFaction domain.Faction        `json:"winner_faction"`
	VictoryType   domain.VictoryType    `json:"victory_type"`
	TotalTurns    int                   `json:"total_turns"`
	Results       []domain.PlayerResult `json:"results"`
}

// HallOfFame persists finished rounds, most recent first, trimmed to
// HallOfFameSize entries.
type HallOfFame interface {
	// Record prepends a finished round and trims the history.
	Record(ctx context.Context, record GameRecord) error

	// Recent returns up to HallOfFameSize records, newest first.
	Recent(ctx context.Context) ([]GameRecord, error)
}
