package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"culpritdance/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const updateRetries = 5

// RoomStoreAdapter implements ports.RoomStore on the Nakama storage engine.
// Read-modify-write goes through optimistic concurrency: every write carries
// the version it read, and a conflict rereads and retries.
type RoomStoreAdapter struct {
	nk runtime.NakamaModule
}

func NewRoomStoreAdapter(nk runtime.NakamaModule) *RoomStoreAdapter {
	return &RoomStoreAdapter{nk: nk}
}

// readVersioned fetches the document together with its storage version.
func (a *RoomStoreAdapter) readVersioned(ctx context.Context, roomID string) (*ports.RoomDocument, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: CollectionRooms,
		Key:        roomID,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("storage read for room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, "", ports.ErrRoomNotFound
	}

	var doc ports.RoomDocument
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &doc); err != nil {
		return nil, "", fmt.Errorf("unmarshal room %s: %w", roomID, err)
	}
	return &doc, objects[0].GetVersion(), nil
}

func (a *RoomStoreAdapter) Read(ctx context.Context, roomID string) (*ports.RoomDocument, error) {
	doc, _, err := a.readVersioned(ctx, roomID)
	return doc, err
}

// Write replaces the document unconditionally, last write wins.
func (a *RoomStoreAdapter) Write(ctx context.Context, doc *ports.RoomDocument) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", doc.RoomID, err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      CollectionRooms,
		Key:             doc.RoomID,
		Value:           string(value),
		PermissionRead:  2,
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("storage write for room %s: %w", doc.RoomID, err)
	}
	return nil
}

// Update runs fn against the freshest document and writes the result with a
// version precondition. A lost race rereads and reapplies fn; fn therefore
// must be side-effect free.
func (a *RoomStoreAdapter) Update(ctx context.Context, roomID string, fn func(doc *ports.RoomDocument) error) (*ports.RoomDocument, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		doc, version, err := a.readVersioned(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}

		value, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal room %s: %w", roomID, err)
		}
		_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
			Collection:      CollectionRooms,
			Key:             roomID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  2,
			PermissionWrite: 0,
		}})
		if err == nil {
			return doc, nil
		}
		// Version mismatch: someone else wrote first, retry on their copy.
	}
	return nil, fmt.Errorf("room %s: %w", roomID, ports.ErrConflict)
}

func (a *RoomStoreAdapter) Delete(ctx context.Context, roomID string) error {
	err := a.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: CollectionRooms,
		Key:        roomID,
	}})
	if err != nil {
		return fmt.Errorf("storage delete for room %s: %w", roomID, err)
	}
	return nil
}
