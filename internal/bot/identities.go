package bot

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/google/uuid"
)

// NPCIdentity is one entry from the NPC profile pool. Skill defaults to
// casual when the profile leaves it empty.
type NPCIdentity struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Skill       SkillLevel `json:"skill"`
}

var (
	identities []NPCIdentity
	idSet      map[string]bool
	loadOnce   sync.Once
	loadErr    error
)

// LoadIdentities loads the NPC profiles from the given path. Only the first
// call reads the file.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read npc identities: %w", err)
			return
		}
		if err := json.Unmarshal(data, &identities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal npc identities: %w", err)
			return
		}
		idSet = make(map[string]bool, len(identities))
		for i := range identities {
			if identities[i].UserID == "" {
				identities[i].UserID = "npc-" + uuid.NewString()
			}
			if identities[i].Skill == "" {
				identities[i].Skill = SkillCasual
			}
			idSet[identities[i].UserID] = true
		}
	})
	return loadErr
}

// IsNPCUserID reports whether the id belongs to the loaded profile pool or
// carries the generated prefix.
func IsNPCUserID(id string) bool {
	if idSet[id] {
		return true
	}
	return len(id) > 4 && id[:4] == "npc-"
}

// PickIdentity returns a profile not yet present in taken. When the pool is
// exhausted or never loaded it fabricates a generic profile instead.
func PickIdentity(rng *rand.Rand, taken map[string]bool) NPCIdentity {
	if len(identities) > 0 {
		order := rng.Perm(len(identities))
		for _, i := range order {
			if !taken[identities[i].UserID] {
				return identities[i]
			}
		}
	}
	id := "npc-" + uuid.NewString()
	return NPCIdentity{
		UserID:      id,
		DisplayName: fmt.Sprintf("Guest %s", id[4:12]),
		Skill:       SkillCasual,
	}
}
