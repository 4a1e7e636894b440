package ports

import (
	"context"
	"errors"
	"time"

	"culpritdance/internal/domain"
)

var (
	// ErrRoomNotFound is returned when a room id resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")

	// ErrConflict is returned when a transactional update lost its race and
	// exhausted its retries.
	ErrConflict = errors.New("storage write conflict")
)

// RoomStatus is the lobby lifecycle of a room document.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// RoomPlayer is a seat in the room document: identity and presentation only,
// the in-round state lives in the game state.
type RoomPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsNPC   bool   `json:"is_npc"`
	IsReady bool   `json:"is_ready"`
	Color   string `json:"color"`
}

// RoomDocument is the full shared document for one room. Writes replace the
// whole document; concurrent writers race on a last-write-wins basis except
// where Update is used.
type RoomDocument struct {
	RoomID    string            `json:"room_id"`
	RoomCode  string            `json:"room_code"`
	HostID    string            `json:"host_id"`
	Status    RoomStatus        `json:"status"`
	Players   []RoomPlayer      `json:"players"`
	GameState *domain.GameState `json:"game_state,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RoomStore is the document store behind room synchronization.
//
// Write is a full-document overwrite and is only safe for fields owned by a
// single writer (the host drives the game state). Update is a transactional
// read-modify-write for the fields multiple writers touch concurrently, such
// as exchange submissions.
type RoomStore interface {
	// Read fetches the current room document.
	Read(ctx context.Context, roomID string) (*RoomDocument, error)

	// Write replaces the room document unconditionally.
	Write(ctx context.Context, doc *RoomDocument) error

	// Update applies fn to the freshest document and persists the result
	// atomically, retrying on conflict. fn must be side-effect free since
	// it may run more than once.
	Update(ctx context.Context, roomID string, fn func(doc *RoomDocument) error) (*RoomDocument, error)

	// Delete removes the room document.
	Delete(ctx context.Context, roomID string) error
}
