package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"culpritdance/internal/domain"
	"culpritdance/internal/ports"
)

// memoryStore is an in-memory RoomStore. Documents round-trip through JSON so
// a caller holding a returned pointer cannot mutate the stored copy, matching
// the remote store's behavior.
type memoryStore struct {
	docs map[string]*ports.RoomDocument
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*ports.RoomDocument)}
}

func copyDoc(doc *ports.RoomDocument) *ports.RoomDocument {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	out := new(ports.RoomDocument)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (m *memoryStore) Read(_ context.Context, roomID string) (*ports.RoomDocument, error) {
	doc, ok := m.docs[roomID]
	if !ok {
		return nil, ports.ErrRoomNotFound
	}
	return copyDoc(doc), nil
}

func (m *memoryStore) Write(_ context.Context, doc *ports.RoomDocument) error {
	m.docs[doc.RoomID] = copyDoc(doc)
	return nil
}

func (m *memoryStore) Update(ctx context.Context, roomID string, fn func(doc *ports.RoomDocument) error) (*ports.RoomDocument, error) {
	doc, err := m.Read(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	m.docs[roomID] = copyDoc(doc)
	return doc, nil
}

func (m *memoryStore) Delete(_ context.Context, roomID string) error {
	delete(m.docs, roomID)
	return nil
}

func newTestRoomService(t *testing.T) (*RoomService, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	return NewRoomService(store, rand.New(rand.NewSource(7))), store
}

func seat(id string, npc bool) ports.RoomPlayer {
	return ports.RoomPlayer{ID: id, Name: id, IsNPC: npc}
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(doc.RoomID) != 4 {
		t.Errorf("room id %q, want 4 digits", doc.RoomID)
	}
	if len(doc.RoomCode) != roomCodeLength {
		t.Errorf("room code %q, want %d characters", doc.RoomCode, roomCodeLength)
	}
	for _, c := range doc.RoomCode {
		if !strings.ContainsRune(roomCodeAlphabet, c) {
			t.Errorf("room code %q contains %q outside the alphabet", doc.RoomCode, c)
		}
	}
	if doc.HostID != "ann" || doc.Status != ports.RoomWaiting {
		t.Errorf("host %q status %q", doc.HostID, doc.Status)
	}
	if doc.Players[0].Color == "" {
		t.Error("host seat has no color")
	}
	if _, err := store.Read(ctx, doc.RoomID); err != nil {
		t.Errorf("room not persisted: %v", err)
	}
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := doc.RoomID

	doc, err = svc.JoinRoom(ctx, roomID, seat("bea", false))
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if len(doc.Players) != 2 {
		t.Fatalf("%d players, want 2", len(doc.Players))
	}
	if doc.Players[1].Color == doc.Players[0].Color {
		t.Error("joiner reused the host's color")
	}

	// Rejoin is a name refresh, not a second seat.
	doc, err = svc.JoinRoom(ctx, roomID, ports.RoomPlayer{ID: "bea", Name: "Beatrice"})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if len(doc.Players) != 2 || doc.Players[1].Name != "Beatrice" {
		t.Errorf("rejoin result: %+v", doc.Players)
	}

	if _, err := svc.JoinRoom(ctx, "0000", seat("cal", false)); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Errorf("unknown room: got %v, want ErrRoomNotFound", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("p0", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for i := 1; i < domain.MaxPlayers; i++ {
		if _, err := svc.JoinRoom(ctx, doc.RoomID, seat("p"+string(rune('0'+i)), false)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if _, err := svc.JoinRoom(ctx, doc.RoomID, seat("extra", false)); !errors.Is(err, ErrRoomFull) {
		t.Errorf("got %v, want ErrRoomFull", err)
	}
}

func TestJoinRoomStarted(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	doc.Status = ports.RoomPlaying
	if err := store.Write(ctx, doc); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.JoinRoom(ctx, doc.RoomID, seat("bea", false)); !errors.Is(err, ErrRoomStarted) {
		t.Errorf("got %v, want ErrRoomStarted", err)
	}
	// A known player may still rejoin a started room.
	if _, err := svc.JoinRoom(ctx, doc.RoomID, seat("ann", false)); err != nil {
		t.Errorf("rejoin of started room: %v", err)
	}
}

func TestLeaveRoomHostSuccession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := doc.RoomID
	if _, err := svc.JoinRoom(ctx, roomID, seat("npc-1", true)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinRoom(ctx, roomID, seat("bea", false)); err != nil {
		t.Fatal(err)
	}

	doc, err = svc.LeaveRoom(ctx, roomID, "ann")
	if err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	// The host role skips NPC seats.
	if doc.HostID != "bea" {
		t.Errorf("host = %q, want bea", doc.HostID)
	}

	if _, err := svc.LeaveRoom(ctx, roomID, "ghost"); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("got %v, want ErrNotInRoom", err)
	}
}

func TestLeaveRoomLastHumanDeletes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := doc.RoomID
	if _, err := svc.JoinRoom(ctx, roomID, seat("npc-1", true)); err != nil {
		t.Fatal(err)
	}

	doc, err = svc.LeaveRoom(ctx, roomID, "ann")
	if err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if doc != nil {
		t.Errorf("deleted room returned %+v", doc)
	}
	if _, err := store.Read(ctx, roomID); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Errorf("room survived with no humans: %v", err)
	}
}

func TestPublishGameStateHostOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := svc.JoinRoom(ctx, doc.RoomID, seat("bea", false)); err != nil {
		t.Fatal(err)
	}

	state := &domain.GameState{Phase: domain.PhaseWaitingForPlay}
	if _, err := svc.PublishGameState(ctx, doc.RoomID, "bea", state, ports.RoomPlaying); !errors.Is(err, ErrNotHost) {
		t.Errorf("got %v, want ErrNotHost", err)
	}
	doc, err = svc.PublishGameState(ctx, doc.RoomID, "ann", state, ports.RoomPlaying)
	if err != nil {
		t.Fatalf("PublishGameState: %v", err)
	}
	if doc.Status != ports.RoomPlaying || doc.GameState == nil {
		t.Errorf("status %q game state %v", doc.Status, doc.GameState)
	}
}

// TestSubmitExchangeChoiceMerges drives two submissions through the store's
// transactional path and checks neither overwrites the other: this is the one
// field with multiple concurrent writers.
func TestSubmitExchangeChoiceMerges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := doc.RoomID
	if _, err := svc.JoinRoom(ctx, roomID, seat("bea", false)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinRoom(ctx, roomID, seat("cal", false)); err != nil {
		t.Fatal(err)
	}

	state := &domain.GameState{
		Phase: domain.PhaseExchange,
		Players: []domain.Player{
			{ID: "ann", Name: "Ann", IsAlive: true, Hand: []domain.Card{{ID: "boy-1", Kind: domain.KindBoy}, {ID: "alibi-1", Kind: domain.KindAlibi}}},
			{ID: "bea", Name: "Bea", IsAlive: true, Hand: []domain.Card{{ID: "boy-2", Kind: domain.KindBoy}, {ID: "dog-1", Kind: domain.KindDog}}},
			{ID: "cal", Name: "Cal", IsAlive: true, Hand: []domain.Card{{ID: "boy-3", Kind: domain.KindBoy}, {ID: "common-1", Kind: domain.KindCommon}}},
		},
		Exchange: &domain.ExchangeState{
			Kind:         domain.ExchangeInformation,
			Participants: []string{"ann", "bea", "cal"},
			Selections:   map[string]string{},
		},
	}
	if _, err := svc.PublishGameState(ctx, roomID, "ann", state, ports.RoomPlaying); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SubmitExchangeChoice(ctx, roomID, "ann", "boy-1"); err != nil {
		t.Fatalf("ann submit: %v", err)
	}
	doc, err = svc.SubmitExchangeChoice(ctx, roomID, "bea", "dog-1")
	if err != nil {
		t.Fatalf("bea submit: %v", err)
	}
	sel := doc.GameState.Exchange.Selections
	if sel["ann"] != "boy-1" || sel["bea"] != "dog-1" {
		t.Errorf("selections = %v, lost a submission", sel)
	}

	// Non-participants and bogus cards are rejected without a write.
	if _, err := svc.SubmitExchangeChoice(ctx, roomID, "ghost", "boy-1"); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v, want ErrRejected", err)
	}
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRoomService(t)

	doc, err := svc.CreateRoom(ctx, seat("ann", false))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := svc.DeleteRoom(ctx, doc.RoomID, "bea"); !errors.Is(err, ErrNotHost) {
		t.Errorf("got %v, want ErrNotHost", err)
	}
	if err := svc.DeleteRoom(ctx, doc.RoomID, "ann"); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if _, err := store.Read(ctx, doc.RoomID); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Errorf("room survived deletion: %v", err)
	}
}
