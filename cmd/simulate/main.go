// Command simulate runs headless NPC-only rounds, useful for balancing the
// deck tables and the escalation ladder without a running server.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"culpritdance/internal/app"
	"culpritdance/internal/bot"
	"culpritdance/internal/config"
	"culpritdance/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type options struct {
	Players int            `env:"SIM_PLAYERS" envDefault:"5"`
	Rounds  int            `env:"SIM_ROUNDS" envDefault:"10"`
	Seed    int64          `env:"SIM_SEED" envDefault:"0"`
	Skill   bot.SkillLevel `env:"SIM_SKILL" envDefault:"smart"`
	Verbose bool           `env:"SIM_VERBOSE" envDefault:"false"`
}

func main() {
	// A local .env is optional; the environment wins either way.
	_ = godotenv.Load()

	var opts options
	if err := env.Parse(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logger.Info("starting simulation",
		"players", opts.Players, "rounds", opts.Rounds, "seed", seed, "skill", opts.Skill)

	if err := run(logger, rng, opts); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, rng *rand.Rand, opts options) error {
	service := app.NewService(rng)
	deck := config.GetGameConfig().Deck

	roster := make([]domain.Player, opts.Players)
	agents := make(map[string]*bot.Agent, opts.Players)
	taken := make(map[string]bool, opts.Players)
	for i := range roster {
		identity := bot.PickIdentity(rng, taken)
		taken[identity.UserID] = true
		roster[i] = domain.Player{
			ID:    identity.UserID,
			Name:  identity.DisplayName,
			IsNPC: true,
		}
		brain, err := bot.NewBrain(opts.Skill, rng)
		if err != nil {
			return err
		}
		agents[identity.UserID] = &bot.Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: brain}
	}

	culpritWins := 0
	for round := 1; round <= opts.Rounds; round++ {
		state, _, err := service.StartRound(roster, deck)
		if err != nil {
			return err
		}
		state, err = playRound(logger, service, agents, state)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		v := state.Victory
		if v.WinnerFaction == domain.FactionCulprit {
			culpritWins++
		}
		logger.Info("round finished",
			"round", round, "winner", v.WinnerFaction, "type", v.VictoryType, "turns", state.TurnCount)

		// Carry the escalation ladder into the next round.
		for _, r := range v.Results {
			for i := range roster {
				if roster[i].ID == r.PlayerID {
					roster[i].EscalationLevel = r.NewLevel
					roster[i].AssignedTitleWord = r.NextAssignedWord
					roster[i].CurrentTitle = r.NextTitle
				}
			}
		}
	}

	logger.Info("simulation done",
		"rounds", opts.Rounds,
		"culprit_wins", culpritWins,
		"detective_wins", opts.Rounds-culpritWins)
	return nil
}

// playRound drives one round to completion. A turn cap guards against a
// strategy bug looping the round forever.
func playRound(logger *slog.Logger, service *app.Service, agents map[string]*bot.Agent, state *domain.GameState) (*domain.GameState, error) {
	const maxSteps = 10000
	for step := 0; step < maxSteps; step++ {
		state, _ = service.Advance(state)
		if state.Phase == domain.PhaseGameOver {
			return state, nil
		}

		if state.Arrest != nil {
			next, _, err := service.CompleteArrestAnimation(state)
			if err != nil {
				return nil, err
			}
			state = next
			continue
		}
		if state.Escape != nil {
			next, _, err := service.CompleteEscapeAnimation(state)
			if err != nil {
				return nil, err
			}
			state = next
			continue
		}

		cmd, err := nextCommand(agents, state)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			return nil, fmt.Errorf("no agent can act in phase %s", state.Phase)
		}
		logger.Debug("applying command",
			"type", cmd.Type, "player", cmd.PlayerID, "card", cmd.CardID, "target", cmd.TargetID)

		var next *domain.GameState
		switch cmd.Type {
		case bot.CommandPlayCard:
			next, _, err = service.PlayCard(state, cmd.PlayerID, cmd.CardID)
		case bot.CommandSelectTarget:
			next, _, err = service.SelectTarget(state, cmd.PlayerID, cmd.TargetID)
		case bot.CommandSelectCard:
			next, _, err = service.SelectCard(state, cmd.PlayerID, cmd.CardID)
		case bot.CommandExchangeChoice:
			next, _, err = service.SubmitExchangeChoice(state, cmd.PlayerID, cmd.CardID)
		default:
			return nil, fmt.Errorf("unknown command type %q", cmd.Type)
		}
		if err != nil {
			return nil, err
		}
		state = next
	}
	return nil, fmt.Errorf("round did not finish within %d steps", maxSteps)
}

func nextCommand(agents map[string]*bot.Agent, state *domain.GameState) (*bot.Command, error) {
	for i := range state.Players {
		agent, ok := agents[state.Players[i].ID]
		if !ok {
			continue
		}
		cmd, err := agent.Decide(state)
		if err != nil {
			return nil, err
		}
		if cmd != nil {
			return cmd, nil
		}
	}
	return nil, nil
}
