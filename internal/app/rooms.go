package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"culpritdance/internal/domain"
	"culpritdance/internal/ports"
)

var (
	ErrRoomFull    = errors.New("room is full")
	ErrRoomStarted = errors.New("room already started")
	ErrNotHost     = errors.New("actor is not the room host")
	ErrNotInRoom   = errors.New("player not in room")
	ErrNoExchange  = errors.New("no exchange in progress")
)

// roomCodeAlphabet deliberately drops the characters players misread over
// voice: 0/O, 1/I.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// playerColors is the seat palette, assigned first-free at join time.
var playerColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#fabebe", "#008080", "#9a6324",
}

// RoomService owns the shared room documents: lobby membership, host
// succession, and the one concurrent write path (exchange submissions)
// that has to go through the store's transactional update.
type RoomService struct {
	store ports.RoomStore
	rng   *rand.Rand
	now   func() time.Time
}

// NewRoomService constructs a RoomService. A nil rng gets a time-seeded
// default; now is replaceable for tests.
func NewRoomService(store ports.RoomStore, rng *rand.Rand) *RoomService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RoomService{store: store, rng: rng, now: time.Now}
}

// newRoomID issues a 4-digit room id, retrying a handful of times on
// collision with an existing document.
func (r *RoomService) newRoomID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := fmt.Sprintf("%04d", r.rng.Intn(10000))
		_, err := r.store.Read(ctx, id)
		if errors.Is(err, ports.ErrRoomNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("no free room id")
}

func (r *RoomService) newRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[r.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

func nextFreeColor(players []ports.RoomPlayer) string {
	taken := make(map[string]bool, len(players))
	for _, p := range players {
		taken[p.Color] = true
	}
	for _, c := range playerColors {
		if !taken[c] {
			return c
		}
	}
	return playerColors[0]
}

// CreateRoom opens a fresh waiting room with the creator as host.
func (r *RoomService) CreateRoom(ctx context.Context, host ports.RoomPlayer) (*ports.RoomDocument, error) {
	id, err := r.newRoomID(ctx)
	if err != nil {
		return nil, err
	}
	host.Color = nextFreeColor(nil)
	doc := &ports.RoomDocument{
		RoomID:    id,
		RoomCode:  r.newRoomCode(),
		HostID:    host.ID,
		Status:    ports.RoomWaiting,
		Players:   []ports.RoomPlayer{host},
		CreatedAt: r.now(),
		UpdatedAt: r.now(),
	}
	if err := r.store.Write(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// JoinRoom seats a player in a waiting room. Rejoining with a known id is a
// no-op refresh of the name; a started or full room rejects the join.
func (r *RoomService) JoinRoom(ctx context.Context, roomID string, player ports.RoomPlayer) (*ports.RoomDocument, error) {
	return r.store.Update(ctx, roomID, func(doc *ports.RoomDocument) error {
		for i := range doc.Players {
			if doc.Players[i].ID == player.ID {
				doc.Players[i].Name = player.Name
				doc.UpdatedAt = r.now()
				return nil
			}
		}
		if doc.Status != ports.RoomWaiting {
			return ErrRoomStarted
		}
		if len(doc.Players) >= domain.MaxPlayers {
			return ErrRoomFull
		}
		player.Color = nextFreeColor(doc.Players)
		doc.Players = append(doc.Players, player)
		doc.UpdatedAt = r.now()
		return nil
	})
}

// LeaveRoom unseats a player. The host role passes to the first remaining
// human; a room with no humans left is deleted outright.
func (r *RoomService) LeaveRoom(ctx context.Context, roomID, playerID string) (*ports.RoomDocument, error) {
	doc, err := r.store.Update(ctx, roomID, func(doc *ports.RoomDocument) error {
		found := false
		players := doc.Players[:0:0]
		for _, p := range doc.Players {
			if p.ID == playerID {
				found = true
				continue
			}
			players = append(players, p)
		}
		if !found {
			return ErrNotInRoom
		}
		doc.Players = players

		if doc.HostID == playerID {
			doc.HostID = ""
			for _, p := range doc.Players {
				if !p.IsNPC {
					doc.HostID = p.ID
					break
				}
			}
		}
		doc.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	humans := 0
	for _, p := range doc.Players {
		if !p.IsNPC {
			humans++
		}
	}
	if humans == 0 {
		if err := r.store.Delete(ctx, roomID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return doc, nil
}

// SetReady toggles a player's lobby ready flag.
func (r *RoomService) SetReady(ctx context.Context, roomID, playerID string, ready bool) (*ports.RoomDocument, error) {
	return r.store.Update(ctx, roomID, func(doc *ports.RoomDocument) error {
		for i := range doc.Players {
			if doc.Players[i].ID == playerID {
				doc.Players[i].IsReady = ready
				doc.UpdatedAt = r.now()
				return nil
			}
		}
		return ErrNotInRoom
	})
}

// PublishGameState replaces the room's game state wholesale. Only the host
// writes through this path; concurrent host writes are last-write-wins by
// design of the document store.
func (r *RoomService) PublishGameState(ctx context.Context, roomID, actorID string, state *domain.GameState, status ports.RoomStatus) (*ports.RoomDocument, error) {
	return r.store.Update(ctx, roomID, func(doc *ports.RoomDocument) error {
		if doc.HostID != actorID {
			return ErrNotHost
		}
		doc.GameState = state
		doc.Status = status
		doc.UpdatedAt = r.now()
		return nil
	})
}

// SubmitExchangeChoice is the one write path where multiple clients race on
// the same field: each submission merges into the freshest document under
// the store's transaction so no selection is lost.
func (r *RoomService) SubmitExchangeChoice(ctx context.Context, roomID, playerID, cardID string) (*ports.RoomDocument, error) {
	return r.store.Update(ctx, roomID, func(doc *ports.RoomDocument) error {
		if doc.GameState == nil || doc.GameState.Phase != domain.PhaseExchange {
			return ErrNoExchange
		}
		next := domain.SubmitExchangeChoice(doc.GameState, playerID, cardID)
		if next == doc.GameState {
			return fmt.Errorf("%w: exchange choice %s by %s", ErrRejected, cardID, playerID)
		}
		doc.GameState = next
		doc.UpdatedAt = r.now()
		return nil
	})
}

// DeleteRoom tears the room down, host only.
func (r *RoomService) DeleteRoom(ctx context.Context, roomID, actorID string) error {
	doc, err := r.store.Read(ctx, roomID)
	if err != nil {
		return err
	}
	if doc.HostID != actorID {
		return ErrNotHost
	}
	return r.store.Delete(ctx, roomID)
}
