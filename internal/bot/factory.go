package bot

import (
	"fmt"
	"math/rand"
)

// NewBrain creates a strategy for the given skill level.
func NewBrain(level SkillLevel, rng *rand.Rand) (Brain, error) {
	switch level {
	case SkillCasual:
		return NewCasualBot(rng), nil
	case SkillSmart:
		return NewSmartBot(rng), nil
	default:
		return nil, fmt.Errorf("unknown skill level: %q", level)
	}
}
