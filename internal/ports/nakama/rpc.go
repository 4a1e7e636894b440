package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"culpritdance/internal/app"
	"culpritdance/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

type createRoomRequest struct {
	DisplayName string `json:"display_name"`
}

type createRoomResponse struct {
	MatchID  string `json:"match_id"`
	RoomID   string `json:"room_id"`
	RoomCode string `json:"room_code"`
}

type joinByCodeRequest struct {
	RoomCode string `json:"room_code"`
}

type joinByCodeResponse struct {
	MatchID string `json:"match_id"`
}

// RpcCreateRoom creates the room document and its authoritative match,
// returning both ids to the caller.
func RpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		// Unauthenticated callers still get a playable identity.
		userID = "guest-" + uuid.NewString()
	}

	var req createRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	name := req.DisplayName
	if name == "" {
		name = "Guest"
	}

	rooms := app.NewRoomService(NewRoomStoreAdapter(nk), rand.New(rand.NewSource(time.Now().UnixNano())))
	doc, err := rooms.CreateRoom(ctx, ports.RoomPlayer{ID: userID, Name: name})
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: %v", userID, err)
		return "", err
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCulpritDance, map[string]interface{}{
		"room_id":   doc.RoomID,
		"room_code": doc.RoomCode,
	})
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: match create failed: %v", userID, err)
		return "", err
	}

	resp, err := json.Marshal(createRoomResponse{
		MatchID:  matchID,
		RoomID:   doc.RoomID,
		RoomCode: doc.RoomCode,
	})
	if err != nil {
		return "", err
	}
	logger.Info("RpcCreateRoom [User:%s]: room %s match %s", userID, doc.RoomID, matchID)
	return string(resp), nil
}

// RpcJoinByCode resolves a 6-character room code to a joinable match id via
// the match listing labels.
func RpcJoinByCode(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req joinByCodeRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" {
		return "", runtime.NewError("room code required", 3)
	}

	limit := 1
	authoritative := true
	query := fmt.Sprintf("+label.code:%s", req.RoomCode)
	matches, err := nk.MatchList(ctx, limit, authoritative, "", nil, nil, query)
	if err != nil {
		logger.Error("RpcJoinByCode: match list failed: %v", err)
		return "", err
	}
	if len(matches) == 0 {
		return "", runtime.NewError("room not found", 5)
	}

	resp, err := json.Marshal(joinByCodeResponse{MatchID: matches[0].MatchId})
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// RpcFindMatch returns any match with an open seat, creating a fresh room
// when none exists.
func RpcFindMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	limit := 1
	authoritative := true
	query := fmt.Sprintf("+label.%s:>=1 +label.state:waiting", MatchLabelKeyOpenSeats)
	matches, err := nk.MatchList(ctx, limit, authoritative, "", nil, nil, query)
	if err != nil {
		logger.Error("RpcFindMatch: match list failed: %v", err)
		return "", err
	}
	if len(matches) > 0 {
		resp, err := json.Marshal(joinByCodeResponse{MatchID: matches[0].MatchId})
		if err != nil {
			return "", err
		}
		return string(resp), nil
	}
	return RpcCreateRoom(ctx, logger, db, nk, payload)
}

// RpcHallOfFame returns the recent finished rounds, newest first.
func RpcHallOfFame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	records, err := NewHallOfFameAdapter(nk).Recent(ctx)
	if err != nil {
		logger.Error("RpcHallOfFame: %v", err)
		return "", err
	}
	resp, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// RegisterRPCs wires all RPC handlers with the initializer.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc("create_room", RpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc("join_by_code", RpcJoinByCode); err != nil {
		return err
	}
	if err := initializer.RegisterRpc("find_match", RpcFindMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc("hall_of_fame", RpcHallOfFame); err != nil {
		return err
	}
	return nil
}
