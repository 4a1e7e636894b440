package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"culpritdance/internal/app"
	"culpritdance/internal/bot"
	"culpritdance/internal/config"
	"culpritdance/internal/domain"
	"culpritdance/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// playerMeta carries the escalation ladder across rounds within one room.
type playerMeta struct {
	Level int    `json:"level"`
	Word  string `json:"word"`
	Title string `json:"title"`
}

// MatchState holds the authoritative runtime state for the match handler.
type MatchState struct {
	Tick     int64  `json:"tick"`
	RoomID   string `json:"room_id"`
	RoomCode string `json:"room_code"`
	HostID   string `json:"host_id"`

	Seats []ports.RoomPlayer     `json:"seats"`
	Meta  map[string]*playerMeta `json:"meta"`

	Presences map[string]runtime.Presence `json:"-"`
	App       *app.Service                `json:"-"`
	Rooms     *app.RoomService            `json:"-"`
	Store     ports.RoomStore             `json:"-"`
	Hall      ports.HallOfFame            `json:"-"`
	Game      *domain.GameState           `json:"-"`
	NPCs      map[string]*bot.Agent       `json:"-"`

	NPCMinDelay      int `json:"npc_min_delay"`
	NPCMaxDelay      int `json:"npc_max_delay"`
	NPCAutoFillDelay int `json:"npc_auto_fill_delay"`
	EmptyShutdown    int `json:"empty_shutdown"`

	NPCWaitUntil   int64 `json:"npc_wait_until"`
	SoloSinceTick  int64 `json:"solo_since_tick"`
	EmptySinceTick int64 `json:"empty_since_tick"`
	BarrierTick    int64 `json:"barrier_tick"`

	rng *rand.Rand
}

func (ms *MatchState) humanCount() int {
	count := 0
	for _, p := range ms.Seats {
		if !p.IsNPC {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatIndex(userID string) int {
	for i, p := range ms.Seats {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// ensureHumanHost moves the host role to the first seated human whenever the
// current host is gone or is an NPC.
func (ms *MatchState) ensureHumanHost() {
	idx := ms.seatIndex(ms.HostID)
	if idx >= 0 && !ms.Seats[idx].IsNPC {
		return
	}
	ms.HostID = ""
	for _, p := range ms.Seats {
		if !p.IsNPC {
			ms.HostID = p.ID
			return
		}
	}
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchLabel struct {
	Open  int    `json:"open"`
	State string `json:"state"`
	Code  string `json:"code"`
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := bot.LoadIdentities("data/npc_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load NPC identities: %v", err)
	}
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}
	cfg := config.GetGameConfig()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	store := NewRoomStoreAdapter(nk)
	state := &MatchState{
		Tick:             time.Now().Unix(),
		Meta:             make(map[string]*playerMeta),
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(rng),
		Rooms:            app.NewRoomService(store, rng),
		Store:            store,
		Hall:             NewHallOfFameAdapter(nk),
		NPCs:             make(map[string]*bot.Agent),
		NPCMinDelay:      cfg.NPCMinDelaySeconds,
		NPCMaxDelay:      cfg.NPCMaxDelaySeconds,
		NPCAutoFillDelay: cfg.NPCAutoFillDelaySeconds,
		EmptyShutdown:    cfg.EmptyRoomShutdownSeconds,
		rng:              rng,
	}

	if v, ok := params["room_id"].(string); ok {
		state.RoomID = v
	}
	if v, ok := params["room_code"].(string); ok {
		state.RoomCode = v
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["culpritdance_npc_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.NPCMinDelay = i
		}
	}
	if val, ok := env["culpritdance_npc_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.NPCMaxDelay = i
		}
	}
	if val, ok := env["culpritdance_npc_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.NPCAutoFillDelay = i
		}
	}
	if state.NPCMinDelay <= 0 {
		state.NPCMinDelay = 1
	}
	if state.NPCMaxDelay < state.NPCMinDelay {
		state.NPCMaxDelay = state.NPCMinDelay + 2
	}

	labelBytes, err := json.Marshal(matchLabel{
		Open:  domain.MaxPlayers,
		State: string(ports.RoomWaiting),
		Code:  state.RoomCode,
	})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Reconnects are always allowed.
	if matchState.seatIndex(presence.GetUserId()) >= 0 {
		return matchState, true, ""
	}
	if matchState.Game != nil && matchState.Game.Phase != domain.PhaseGameOver {
		return matchState, false, "round in progress"
	}
	if len(matchState.Seats) >= domain.MaxPlayers {
		return matchState, false, "room full"
	}
	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		if idx := matchState.seatIndex(p.GetUserId()); idx >= 0 {
			// Rejoin: a seat converted to an NPC on disconnect goes back
			// to its human.
			if matchState.Seats[idx].IsNPC {
				matchState.Seats[idx].IsNPC = false
				delete(matchState.NPCs, p.GetUserId())
				if gp := gamePlayer(matchState.Game, p.GetUserId()); gp != nil {
					gp.IsNPC = false
				}
			}
			continue
		}

		player := ports.RoomPlayer{ID: p.GetUserId(), Name: p.GetUsername()}
		matchState.Seats = append(matchState.Seats, player)
		if matchState.RoomID != "" {
			if _, err := matchState.Rooms.JoinRoom(ctx, matchState.RoomID, player); err != nil {
				logger.Warn("MatchJoin: room document update failed: %v", err)
			}
		}
	}

	matchState.ensureHumanHost()
	matchState.EmptySinceTick = 0

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoom(matchState, dispatcher, logger)
	mh.broadcastGameState(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave frees lobby seats; during a round the seat stays and an NPC
// takes over the hand so the round can finish.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	inRound := matchState.Game != nil && matchState.Game.Phase != domain.PhaseGameOver
	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		idx := matchState.seatIndex(userID)
		if idx < 0 {
			continue
		}
		if inRound {
			matchState.Seats[idx].IsNPC = true
			if gp := gamePlayer(matchState.Game, userID); gp != nil {
				gp.IsNPC = true
			}
			mh.ensureAgent(matchState, userID, bot.SkillCasual, logger)
			logger.Info("MatchLeave: %s disconnected mid-round, NPC takes the hand.", userID)
		} else {
			matchState.Seats = append(matchState.Seats[:idx], matchState.Seats[idx+1:]...)
			if matchState.RoomID != "" {
				if _, err := matchState.Rooms.LeaveRoom(ctx, matchState.RoomID, userID); err != nil {
					logger.Warn("MatchLeave: room document update failed: %v", err)
				}
			}
		}
	}

	matchState.ensureHumanHost()
	if matchState.humanCount() == 0 {
		if matchState.EmptySinceTick == 0 {
			matchState.EmptySinceTick = tick
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoom(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	// Rooms without human presence drain out after the configured grace.
	if matchState.humanCount() == 0 {
		if matchState.EmptySinceTick == 0 {
			matchState.EmptySinceTick = tick
		}
		if tick-matchState.EmptySinceTick >= int64(matchState.EmptyShutdown) {
			logger.Info("MatchLoop: no human presence for %ds, terminating.", matchState.EmptyShutdown)
			mh.teardownRoom(ctx, matchState, logger)
			return nil
		}
	} else {
		matchState.EmptySinceTick = 0
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartRound:
			mh.handleStartRound(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		case OpSelectTarget:
			mh.handleSelectTarget(ctx, matchState, dispatcher, logger, msg)
		case OpSelectCard:
			mh.handleSelectCard(ctx, matchState, dispatcher, logger, msg)
		case OpExchangeChoice:
			mh.handleExchangeChoice(ctx, matchState, dispatcher, logger, msg)
		case OpAnimationDone:
			mh.handleAnimationDone(ctx, matchState, dispatcher, logger, msg)
		case OpSetReady:
			mh.handleSetReady(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.processNPCs(ctx, matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	mh.teardownRoom(ctx, matchState, logger)
	return matchState
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

func (mh *matchHandler) teardownRoom(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.RoomID == "" {
		return
	}
	if err := state.Store.Delete(ctx, state.RoomID); err != nil {
		logger.Warn("teardown: failed to delete room document: %v", err)
	}
}

// processNPCs fills a lonely lobby and drives NPC decisions with a simulated
// think delay, including releasing animation barriers in NPC-only rounds.
func (mh *matchHandler) processNPCs(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	inLobby := state.Game == nil || state.Game.Phase == domain.PhaseGameOver

	if inLobby {
		humans := state.humanCount()
		if humans >= 1 && len(state.Seats) < domain.MinPlayers {
			if state.SoloSinceTick == 0 {
				state.SoloSinceTick = state.Tick
			}
			if state.Tick-state.SoloSinceTick >= int64(state.NPCAutoFillDelay) {
				mh.fillWithNPCs(state, dispatcher, logger)
				state.SoloSinceTick = 0
			}
		} else {
			state.SoloSinceTick = 0
		}
		return
	}

	game := state.Game

	// A stalled animation barrier is released server-side once every seat
	// that could confirm it is an NPC, or after a liveness timeout.
	if game.Arrest != nil || game.Escape != nil {
		if state.BarrierTick == 0 {
			state.BarrierTick = state.Tick
		}
		timeout := int64(state.NPCMaxDelay + 5)
		if state.humanCount() == 0 || state.Tick-state.BarrierTick >= timeout {
			mh.releaseBarrier(ctx, state, dispatcher, logger)
		}
		return
	}
	state.BarrierTick = 0

	cmd := mh.nextNPCCommand(state, logger)
	if cmd == nil {
		state.NPCWaitUntil = 0
		return
	}
	if state.NPCWaitUntil == 0 {
		delay := state.rng.Intn(state.NPCMaxDelay-state.NPCMinDelay+1) + state.NPCMinDelay
		state.NPCWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.NPCWaitUntil {
		return
	}
	state.NPCWaitUntil = 0
	mh.applyNPCCommand(ctx, state, dispatcher, logger, cmd)
}

// nextNPCCommand finds the NPC the current phase is waiting on, if any.
func (mh *matchHandler) nextNPCCommand(state *MatchState, logger runtime.Logger) *bot.Command {
	game := state.Game
	for _, seat := range state.Seats {
		if !seat.IsNPC {
			continue
		}
		agent, ok := state.NPCs[seat.ID]
		if !ok {
			agent = mh.ensureAgent(state, seat.ID, bot.SkillCasual, logger)
		}
		cmd, err := agent.Decide(game)
		if err != nil {
			logger.Error("processNPCs: %s failed to decide: %v", seat.ID, err)
			continue
		}
		if cmd != nil {
			return cmd
		}
	}
	return nil
}

func (mh *matchHandler) applyNPCCommand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, cmd *bot.Command) {
	var (
		next   *domain.GameState
		events []app.Event
		err    error
	)
	switch cmd.Type {
	case bot.CommandPlayCard:
		next, events, err = state.App.PlayCard(state.Game, cmd.PlayerID, cmd.CardID)
	case bot.CommandSelectTarget:
		next, events, err = state.App.SelectTarget(state.Game, cmd.PlayerID, cmd.TargetID)
	case bot.CommandSelectCard:
		next, events, err = state.App.SelectCard(state.Game, cmd.PlayerID, cmd.CardID)
	case bot.CommandExchangeChoice:
		next, events, err = state.App.SubmitExchangeChoice(state.Game, cmd.PlayerID, cmd.CardID)
	default:
		return
	}
	if err != nil {
		logger.Error("processNPCs: command %s by %s rejected: %v", cmd.Type, cmd.PlayerID, err)
		return
	}
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) releaseBarrier(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	var (
		next   *domain.GameState
		events []app.Event
		err    error
	)
	if state.Game.Arrest != nil {
		next, events, err = state.App.CompleteArrestAnimation(state.Game)
	} else {
		next, events, err = state.App.CompleteEscapeAnimation(state.Game)
	}
	if err != nil {
		logger.Error("releaseBarrier: %v", err)
		return
	}
	state.BarrierTick = 0
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) ensureAgent(state *MatchState, userID string, skill bot.SkillLevel, logger runtime.Logger) *bot.Agent {
	if agent, ok := state.NPCs[userID]; ok {
		return agent
	}
	brain, err := bot.NewBrain(skill, state.rng)
	if err != nil {
		logger.Error("ensureAgent: %v", err)
		brain = bot.NewCasualBot(state.rng)
	}
	agent := &bot.Agent{ID: userID, Strategy: brain}
	state.NPCs[userID] = agent
	return agent
}

func (mh *matchHandler) fillWithNPCs(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	taken := make(map[string]bool, len(state.Seats))
	for _, p := range state.Seats {
		taken[p.ID] = true
	}
	added := false
	for len(state.Seats) < domain.MinPlayers {
		identity := bot.PickIdentity(state.rng, taken)
		taken[identity.UserID] = true
		state.Seats = append(state.Seats, ports.RoomPlayer{
			ID:    identity.UserID,
			Name:  identity.DisplayName,
			IsNPC: true,
		})
		mh.ensureAgent(state, identity.UserID, identity.Skill, logger)
		logger.Info("processNPCs: seated NPC %s (%s)", identity.DisplayName, identity.UserID)
		added = true
	}
	if added {
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastRoom(state, dispatcher, logger)
	}
}

// roster builds the round roster from the seats, restoring each player's
// escalation ladder from the previous rounds in this room.
func (ms *MatchState) roster() []domain.Player {
	players := make([]domain.Player, len(ms.Seats))
	for i, seat := range ms.Seats {
		p := domain.Player{
			ID:    seat.ID,
			Name:  seat.Name,
			IsNPC: seat.IsNPC,
			Color: seat.Color,
		}
		if meta, ok := ms.Meta[seat.ID]; ok {
			p.EscalationLevel = meta.Level
			p.AssignedTitleWord = meta.Word
			p.CurrentTitle = meta.Title
		}
		players[i] = p
	}
	return players
}

func (mh *matchHandler) handleStartRound(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if senderID != state.HostID {
		logger.Warn("StartRound: %s is not the host.", senderID)
		mh.sendRejection(state, dispatcher, logger, senderID, "only the host starts a round")
		return
	}
	if state.Game != nil && state.Game.Phase != domain.PhaseGameOver {
		logger.Warn("StartRound: round already in progress.")
		return
	}

	game, events, err := state.App.StartRound(state.roster(), config.GetGameConfig().Deck)
	if err != nil {
		logger.Error("StartRound: %v", err)
		mh.sendRejection(state, dispatcher, logger, senderID, err.Error())
		return
	}
	logger.Info("StartRound: round started with %d players.", len(game.Players))
	mh.commit(ctx, state, dispatcher, logger, game, events)
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	var req PlayCardRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handlePlayCard: bad payload: %v", err)
		return
	}
	next, events, err := state.App.PlayCard(state.Game, msg.GetUserId(), req.CardID)
	if err != nil {
		mh.dispatchEvents(state, dispatcher, logger, events)
		return
	}
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) handleSelectTarget(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	var req SelectTargetRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handleSelectTarget: bad payload: %v", err)
		return
	}
	next, events, err := state.App.SelectTarget(state.Game, msg.GetUserId(), req.TargetID)
	if err != nil {
		mh.dispatchEvents(state, dispatcher, logger, events)
		return
	}
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) handleSelectCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	var req SelectCardRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handleSelectCard: bad payload: %v", err)
		return
	}
	next, events, err := state.App.SelectCard(state.Game, msg.GetUserId(), req.CardID)
	if err != nil {
		mh.dispatchEvents(state, dispatcher, logger, events)
		return
	}
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) handleExchangeChoice(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	var req ExchangeChoiceRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handleExchangeChoice: bad payload: %v", err)
		return
	}
	next, events, err := state.App.SubmitExchangeChoice(state.Game, msg.GetUserId(), req.CardID)
	if err != nil {
		mh.dispatchEvents(state, dispatcher, logger, events)
		return
	}
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) handleAnimationDone(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Game == nil {
		return
	}
	var req AnimationDoneRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handleAnimationDone: bad payload: %v", err)
		return
	}
	// First confirmation wins; duplicates arrive after the barrier cleared
	// and fall through as no-ops.
	var (
		next   *domain.GameState
		events []app.Event
		err    error
	)
	switch req.Animation {
	case "arrest":
		next, events, err = state.App.CompleteArrestAnimation(state.Game)
	case "escape":
		next, events, err = state.App.CompleteEscapeAnimation(state.Game)
	default:
		logger.Warn("handleAnimationDone: unknown animation %q", req.Animation)
		return
	}
	if err != nil {
		return
	}
	state.BarrierTick = 0
	mh.commit(ctx, state, dispatcher, logger, next, events)
}

func (mh *matchHandler) handleSetReady(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	var req SetReadyRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Error("handleSetReady: bad payload: %v", err)
		return
	}
	idx := state.seatIndex(msg.GetUserId())
	if idx < 0 {
		return
	}
	state.Seats[idx].IsReady = req.Ready
	if state.RoomID != "" {
		if _, err := state.Rooms.SetReady(ctx, state.RoomID, msg.GetUserId(), req.Ready); err != nil {
			logger.Warn("handleSetReady: room document update failed: %v", err)
		}
	}
	mh.broadcastRoom(state, dispatcher, logger)
}

// commit installs the new game state, drives the automatic phase
// transitions, persists the room document, records finished rounds, and
// broadcasts everything that changed.
func (mh *matchHandler) commit(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, next *domain.GameState, events []app.Event) {
	state.Game = next
	mh.dispatchEvents(state, dispatcher, logger, events)

	advanced, advEvents := state.App.Advance(state.Game)
	state.Game = advanced
	mh.dispatchEvents(state, dispatcher, logger, advEvents)

	if state.Game.Phase == domain.PhaseGameOver && state.Game.Victory != nil {
		mh.finishRound(ctx, state, logger)
	}

	if state.RoomID != "" {
		status := ports.RoomPlaying
		if state.Game.Phase == domain.PhaseGameOver {
			status = ports.RoomFinished
		}
		if _, err := state.Rooms.PublishGameState(ctx, state.RoomID, state.HostID, state.Game, status); err != nil {
			logger.Warn("commit: room document update failed: %v", err)
		}
	}

	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastGameState(state, dispatcher, logger)
}

// finishRound persists the escalation ladder for the next round and writes
// the hall of fame entry.
func (mh *matchHandler) finishRound(ctx context.Context, state *MatchState, logger runtime.Logger) {
	for _, r := range state.Game.Victory.Results {
		state.Meta[r.PlayerID] = &playerMeta{
			Level: r.NewLevel,
			Word:  r.NextAssignedWord,
			Title: r.NextTitle,
		}
	}
	if err := app.RecordFinishedRound(ctx, state.Hall, state.RoomID, state.Game); err != nil {
		logger.Warn("finishRound: hall of fame write failed: %v", err)
	}
}

func (mh *matchHandler) dispatchEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, ok := opCodeFor(ev.Kind)
		if !ok {
			continue
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			logger.Error("dispatchEvents: marshal %s: %v", ev.Kind, err)
			continue
		}
		var targets []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, id := range ev.Recipients {
				if p, ok := state.Presences[id]; ok {
					targets = append(targets, p)
				}
			}
			if len(targets) == 0 {
				continue
			}
		}
		if err := dispatcher.BroadcastMessage(opCode, payload, targets, nil, true); err != nil {
			logger.Error("dispatchEvents: broadcast %s: %v", ev.Kind, err)
		}
	}
}

func opCodeFor(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventRoundStarted:
		return OpRoundStarted, true
	case app.EventHandDealt:
		return OpHandDealt, true
	case app.EventCardPlayed:
		return OpCardPlayed, true
	case app.EventExchangeOpened:
		return OpExchangeOpened, true
	case app.EventExchangeResolved:
		return OpExchangeResolved, true
	case app.EventArrestAnimation:
		return OpArrestAnimation, true
	case app.EventEscapeAnimation:
		return OpEscapeAnimation, true
	case app.EventRoundEnded:
		return OpRoundEnded, true
	case app.EventCommandRejected:
		return OpRejected, true
	case app.EventStateChanged:
		// The redacted per-viewer snapshot supersedes the raw state.
		return 0, false
	}
	return 0, false
}

func (mh *matchHandler) sendRejection(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, reason string) {
	p, ok := state.Presences[userID]
	if !ok {
		return
	}
	payload, _ := json.Marshal(app.CommandRejectedPayload{PlayerID: userID, Reason: reason})
	if err := dispatcher.BroadcastMessage(OpRejected, payload, []runtime.Presence{p}, nil, true); err != nil {
		logger.Error("sendRejection: %v", err)
	}
}

// broadcastGameState sends each connected player their own redacted view.
func (mh *matchHandler) broadcastGameState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game == nil {
		return
	}
	for userID, presence := range state.Presences {
		view := ViewFor(state.Game, userID)
		payload, err := json.Marshal(view)
		if err != nil {
			logger.Error("broadcastGameState: marshal view: %v", err)
			return
		}
		if err := dispatcher.BroadcastMessage(OpStateChanged, payload, []runtime.Presence{presence}, nil, true); err != nil {
			logger.Error("broadcastGameState: %v", err)
		}
	}
}

func (mh *matchHandler) broadcastRoom(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	snapshot := RoomSnapshot{
		RoomID:   state.RoomID,
		RoomCode: state.RoomCode,
		HostID:   state.HostID,
		Status:   roomStatus(state),
		Players:  state.Seats,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("broadcastRoom: marshal: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpRoomState, payload, nil, nil, true); err != nil {
		logger.Error("broadcastRoom: %v", err)
	}
}

func roomStatus(state *MatchState) ports.RoomStatus {
	switch {
	case state.Game == nil:
		return ports.RoomWaiting
	case state.Game.Phase == domain.PhaseGameOver:
		return ports.RoomFinished
	default:
		return ports.RoomPlaying
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label := matchLabel{
		Open:  domain.MaxPlayers - len(state.Seats),
		State: string(roomStatus(state)),
		Code:  state.RoomCode,
	}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("updateLabel: marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("updateLabel: %v", err)
	}
}

func gamePlayer(game *domain.GameState, userID string) *domain.Player {
	if game == nil {
		return nil
	}
	return game.PlayerByID(userID)
}
