package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"culpritdance/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// HallOfFameAdapter persists the recent-games history as a single storage
// object, newest first, trimmed to ports.HallOfFameSize entries.
type HallOfFameAdapter struct {
	nk runtime.NakamaModule
}

func NewHallOfFameAdapter(nk runtime.NakamaModule) *HallOfFameAdapter {
	return &HallOfFameAdapter{nk: nk}
}

func (a *HallOfFameAdapter) read(ctx context.Context) ([]ports.GameRecord, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: CollectionHallOfFame,
		Key:        KeyHallOfFame,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("storage read for hall of fame: %w", err)
	}
	if len(objects) == 0 {
		return nil, "", nil
	}
	var records []ports.GameRecord
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &records); err != nil {
		return nil, "", fmt.Errorf("unmarshal hall of fame: %w", err)
	}
	return records, objects[0].GetVersion(), nil
}

// Record prepends the finished round. Concurrent finishes race through the
// version precondition; a lost race rereads and retries.
func (a *HallOfFameAdapter) Record(ctx context.Context, record ports.GameRecord) error {
	for attempt := 0; attempt < updateRetries; attempt++ {
		records, version, err := a.read(ctx)
		if err != nil {
			return err
		}
		records = append([]ports.GameRecord{record}, records...)
		if len(records) > ports.HallOfFameSize {
			records = records[:ports.HallOfFameSize]
		}

		value, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("marshal hall of fame: %w", err)
		}
		_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
			Collection:      CollectionHallOfFame,
			Key:             KeyHallOfFame,
			Value:           string(value),
			Version:         version,
			PermissionRead:  2,
			PermissionWrite: 0,
		}})
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("hall of fame: %w", ports.ErrConflict)
}

func (a *HallOfFameAdapter) Recent(ctx context.Context) ([]ports.GameRecord, error) {
	records, _, err := a.read(ctx)
	return records, err
}
