package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"culpritdance/internal/domain"
)

// GameConfig is the server-side tuning for a match. The deck section feeds
// the deck builder directly; the rest drives pacing in the match loop.
type GameConfig struct {
	Deck domain.DeckConfig `json:"deck"`

	// NPCMinDelaySeconds and NPCMaxDelaySeconds bound the think time
	// simulated before an NPC acts.
	NPCMinDelaySeconds int `json:"npc_min_delay_seconds"`
	NPCMaxDelaySeconds int `json:"npc_max_delay_seconds"`

	// NPCAutoFillDelaySeconds configures how many seconds a solo human
	// lobby waits before NPCs are added.
	NPCAutoFillDelaySeconds int `json:"npc_auto_fill_delay_seconds"`

	// EmptyRoomShutdownSeconds is how long a room survives with no human
	// presence before the match terminates.
	EmptyRoomShutdownSeconds int `json:"empty_room_shutdown_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the built-in configuration used when no config file is
// provided.
func Default() *GameConfig {
	return &GameConfig{
		Deck:                     domain.DefaultDeckConfig(),
		NPCMinDelaySeconds:       1,
		NPCMaxDelaySeconds:       3,
		NPCAutoFillDelaySeconds:  15,
		EmptyRoomShutdownSeconds: 60,
	}
}

// LoadGameConfig loads the game configuration from the given path. Fields
// absent from the file keep their defaults; the deck section is validated
// before it is accepted. Safe to call more than once, only the first call
// reads the file.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		c := Default()
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		if err := json.Unmarshal(data, c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		if err := c.Deck.Validate(); err != nil {
			loadErr = fmt.Errorf("game config rejected: %w", err)
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, falling back to the
// defaults when no file was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}
