// Package orchestrator implements the Session Orchestrator (§4.E): it binds
// wire events to the Room Manager and Game Engine under each room's lock,
// computes and fans out per-player snapshots, and schedules the settlement
// and auto-progress timers that keep a game moving when a client goes quiet.
//
// Grounded on the teacher's pkg/server/events.go and events_payloads.go,
// which pair a GameEventType enum with discriminated payload structs and
// dispatch them through an EventProcessor backed by a worker queue. This
// package keeps the enum/payload shape but deliberately does not reuse the
// teacher's async queue. Dispatch here is synchronous — the goroutine that
// receives an envelope runs the whole transition and its broadcast inline,
// locking only the affected Room, so unrelated rooms still proceed in
// parallel. The mutation and each broadcast take the room lock in separate
// acquisitions, so another transition for the same room can run between
// them; each snapshot is built and queued under the lock from the state at
// that moment.
package orchestrator

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/cardtable/spadesroom/pkg/game"
	"github.com/cardtable/spadesroom/pkg/room"
	"github.com/cardtable/spadesroom/pkg/transport"
	"github.com/decred/slog"
)

// Pacing delays for scheduled settlement, per §4.E. Not correctness-bearing:
// every callback re-validates state after re-acquiring the room lock.
const (
	trickResolveDelay   = 500 * time.Millisecond
	nextTrickDelay      = 1500 * time.Millisecond
	roundEndDelay       = 2000 * time.Millisecond
	disconnectTurnDelay = 300 * time.Millisecond
	disconnectLongDelay = 5 * time.Second
)

// Orchestrator wires the wire transport to the Room Manager and Game Engine.
type Orchestrator struct {
	rooms *room.Manager
	hub   *transport.Hub
	log   slog.Logger
	rng   *rand.Rand
}

// New builds an Orchestrator over an existing room registry and connection
// hub.
func New(rooms *room.Manager, hub *transport.Hub, log slog.Logger, rng *rand.Rand) *Orchestrator {
	return &Orchestrator{rooms: rooms, hub: hub, log: log, rng: rng}
}

// HandleConnect registers a freshly accepted connection. It does not join
// any room by itself — the first create-room or join-room envelope does
// that, matching §6's "each peer has a stable session id during one
// connection" before any room membership exists.
func (o *Orchestrator) HandleConnect(c *transport.Conn) {
	o.hub.Register(c)
}

// HandleDisconnect runs when a connection's read pump ends. If the session
// belonged to a room, it goes through LeaveRoom: marked disconnected
// mid-game, or removed outright in the lobby. (An explicit leave-game
// mid-game removes the player instead, via RemovePlayerFromGame.)
func (o *Orchestrator) HandleDisconnect(sessionID string) {
	o.hub.Unregister(sessionID)

	r, ok := o.rooms.FindPlayerRoom(sessionID)
	if !ok {
		return
	}
	if err := o.rooms.LeaveRoom(r.Code, sessionID); err != nil {
		o.log.Warnf("disconnect: leave room %s: %v", r.Code, err)
		return
	}
	o.broadcastRoomUpdate(r.Code)
	o.broadcastGameState(r.Code)
	// A fresh disconnect gets the long grace window so a quick refresh can
	// reconnect before the game auto-plays on the player's behalf (§4.E,
	// scenario 5); every other trigger for this check (a state change whose
	// new actor might already be disconnected) uses the short pacing delay.
	o.scheduleDisconnectCheck(r.Code, disconnectLongDelay)
}

// Dispatch decodes and routes one envelope from sessionID. Unknown event
// names are logged and dropped.
func (o *Orchestrator) Dispatch(sessionID string, env transport.Envelope) {
	switch env.Event {
	case eventCreateRoom:
		o.handleCreateRoom(sessionID, env.Payload)
	case eventJoinRoom:
		o.handleJoinRoom(sessionID, env.Payload)
	case eventToggleReady:
		o.handleToggleReady(sessionID, env.Payload)
	case eventSetGameMode:
		o.handleSetGameMode(sessionID, env.Payload)
	case eventAssignTeam:
		o.handleAssignTeam(sessionID, env.Payload)
	case eventUpdateTeams:
		o.handleUpdateTeams(sessionID, env.Payload)
	case eventStartGame:
		o.handleStartGame(sessionID, env.Payload)
	case eventNilDecision:
		o.handleNilDecision(sessionID, env.Payload)
	case eventPlaceBid:
		o.handlePlaceBid(sessionID, env.Payload)
	case eventPlayCard:
		o.handlePlayCard(sessionID, env.Payload)
	case eventNextRound:
		o.handleNextRound(sessionID, env.Payload)
	case eventRestartGame:
		o.handleRestartGame(sessionID, env.Payload)
	case eventEndGame:
		o.handleEndGame(sessionID, env.Payload)
	case eventLeaveGame:
		o.handleLeaveGame(sessionID, env.Payload)
	default:
		o.log.Debugf("session %s: unknown event %q", sessionID, env.Event)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

func (o *Orchestrator) handleCreateRoom(sessionID string, raw json.RawMessage) {
	p, err := decode[createRoomPayload](raw)
	if err != nil {
		o.log.Warnf("session %s: malformed create-room: %v", sessionID, err)
		return
	}

	mode := game.ModeIndividual
	if p.GameMode == string(game.ModeTeams) {
		mode = game.ModeTeams
	}

	r := o.rooms.CreateRoom(p.PlayerName, mode)
	// CreateRoom mints its own host id internally; rebind it to this
	// connection's session id so every later event from this socket
	// resolves to the same player without the client needing to learn a
	// second identifier.
	r.Mu.Lock()
	r.HostID = sessionID
	r.Players[0].ID = sessionID
	r.Mu.Unlock()

	o.hub.SendTo(sessionID, eventCreateRoom, ackPayload{Success: true, RoomCode: r.Code, PlayerID: sessionID})
	o.broadcastRoomUpdate(r.Code)
}

func (o *Orchestrator) handleJoinRoom(sessionID string, raw json.RawMessage) {
	p, err := decode[joinRoomPayload](raw)
	if err != nil {
		o.log.Warnf("session %s: malformed join-room: %v", sessionID, err)
		return
	}

	r, _, err := o.rooms.JoinRoom(p.RoomCode, sessionID, p.PlayerName)
	if err != nil {
		o.hub.SendTo(sessionID, eventJoinRoom, ackPayload{Success: false, Error: err.Error()})
		return
	}

	o.hub.SendTo(sessionID, eventJoinRoom, ackPayload{Success: true, RoomCode: r.Code, PlayerID: sessionID})
	o.broadcastRoomUpdate(r.Code)
	o.broadcastGameState(r.Code)
}

func (o *Orchestrator) handleToggleReady(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	if err := o.rooms.ToggleReady(p.RoomCode, sessionID); err != nil {
		return
	}
	o.broadcastRoomUpdate(p.RoomCode)
}

func (o *Orchestrator) handleSetGameMode(sessionID string, raw json.RawMessage) {
	p, err := decode[setGameModePayload](raw)
	if err != nil {
		return
	}
	if !o.requireHost(p.RoomCode, sessionID) {
		return
	}
	mode := game.ModeIndividual
	if p.GameMode == string(game.ModeTeams) {
		mode = game.ModeTeams
	}
	if err := o.rooms.SetGameMode(p.RoomCode, mode); err != nil {
		return
	}
	o.broadcastRoomUpdate(p.RoomCode)
}

func (o *Orchestrator) handleAssignTeam(sessionID string, raw json.RawMessage) {
	p, err := decode[assignTeamPayload](raw)
	if err != nil {
		return
	}
	if !o.requireHost(p.RoomCode, sessionID) {
		return
	}
	if err := o.rooms.AssignTeam(p.RoomCode, p.PlayerName, p.TeamName); err != nil {
		return
	}
	o.broadcastRoomUpdate(p.RoomCode)
}

func (o *Orchestrator) handleUpdateTeams(sessionID string, raw json.RawMessage) {
	p, err := decode[updateTeamsPayload](raw)
	if err != nil {
		return
	}
	if !o.requireHost(p.RoomCode, sessionID) {
		return
	}
	if err := o.rooms.UpdateTeams(p.RoomCode, p.NumTeams); err != nil {
		return
	}
	o.broadcastRoomUpdate(p.RoomCode)
}

// requireHost reports whether sessionID is the room's current host,
// silently ignoring the request otherwise per the authorization error kind
// (§7.2): non-host attempts never surface an error, the client UI is
// expected to have gated the action already.
func (o *Orchestrator) requireHost(code, sessionID string) bool {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return false
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.HostID == sessionID
}

func (o *Orchestrator) handleStartGame(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	r, ok := o.rooms.GetRoom(p.RoomCode)
	if !ok {
		return
	}

	r.Mu.Lock()
	if r.HostID != sessionID || r.Started || !r.CanStartLocked() {
		r.Mu.Unlock()
		return
	}
	g := game.NewGame(r.PlayerNames(), r.Mode, r.Teams, o.rng)
	if err := g.StartRound(); err != nil {
		r.Mu.Unlock()
		o.log.Errorf("room %s: start-game: %v", r.Code, err)
		return
	}
	r.Game = g
	r.Started = true
	r.Mu.Unlock()

	o.broadcastRoomUpdate(p.RoomCode)
	o.broadcastGameState(p.RoomCode)
	o.scheduleDisconnectCheck(p.RoomCode, disconnectTurnDelay)
}

func (o *Orchestrator) handleNilDecision(sessionID string, raw json.RawMessage) {
	p, err := decode[nilDecisionPayload](raw)
	if err != nil {
		return
	}
	o.withPlayerAndGame(p.RoomCode, sessionID, func(r *room.Room, name string) {
		err := r.Game.NilDecision(name, p.GoNil)
		o.reportGameErr(sessionID, r, err)
	})
	o.broadcastGameState(p.RoomCode)
	o.scheduleDisconnectCheck(p.RoomCode, disconnectTurnDelay)
}

func (o *Orchestrator) handlePlaceBid(sessionID string, raw json.RawMessage) {
	p, err := decode[placeBidPayload](raw)
	if err != nil {
		return
	}
	o.withPlayerAndGame(p.RoomCode, sessionID, func(r *room.Room, name string) {
		err := r.Game.PlaceBid(name, p.Bid)
		o.reportGameErr(sessionID, r, err)
	})
	o.broadcastGameState(p.RoomCode)
	o.scheduleDisconnectCheck(p.RoomCode, disconnectTurnDelay)
}

func (o *Orchestrator) handlePlayCard(sessionID string, raw json.RawMessage) {
	p, err := decode[playCardPayload](raw)
	if err != nil {
		return
	}

	var trickFull bool
	o.withPlayerAndGame(p.RoomCode, sessionID, func(r *room.Room, name string) {
		err := r.Game.PlayCard(name, p.CardID)
		if o.reportGameErr(sessionID, r, err); err != nil {
			return
		}
		if n := len(r.Game.PlayerOrder); n > 0 && len(r.Game.CurrentTrick) == n {
			trickFull = true
		}
	})
	o.broadcastGameState(p.RoomCode)

	if trickFull {
		time.AfterFunc(trickResolveDelay, func() { o.resolveTrick(p.RoomCode) })
	} else {
		o.scheduleDisconnectCheck(p.RoomCode, disconnectTurnDelay)
	}
}

func (o *Orchestrator) handleNextRound(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	r, ok := o.rooms.GetRoom(p.RoomCode)
	if !ok {
		return
	}
	r.Mu.Lock()
	if r.HostID != sessionID || r.Game == nil {
		r.Mu.Unlock()
		return
	}
	err = r.Game.NextRound()
	r.Mu.Unlock()
	if err != nil {
		o.log.Debugf("room %s: next-round: %v", p.RoomCode, err)
		return
	}
	o.broadcastGameState(p.RoomCode)
	o.scheduleDisconnectCheck(p.RoomCode, disconnectTurnDelay)
}

func (o *Orchestrator) handleRestartGame(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	if !o.requireHost(p.RoomCode, sessionID) {
		return
	}
	if err := o.rooms.ResetRoom(p.RoomCode); err != nil {
		return
	}
	o.hub.Broadcast(o.roomSessionIDs(p.RoomCode), eventGameReset, struct{}{})
	o.broadcastRoomUpdate(p.RoomCode)
}

func (o *Orchestrator) handleEndGame(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	r, ok := o.rooms.GetRoom(p.RoomCode)
	if !ok {
		return
	}
	r.Mu.Lock()
	if r.HostID != sessionID {
		r.Mu.Unlock()
		return
	}
	payload := gameEndedPayload{}
	if r.Game != nil {
		payload.Winner = r.Game.Winner
		payload.Scores = r.Game.Scores
		if r.Mode == game.ModeTeams {
			payload.TeamScores = r.Game.TeamScores
		}
	}
	ids := connectedSessionIDs(r)
	o.hub.Broadcast(ids, eventGameEnded, payload)
	r.Mu.Unlock()

	o.rooms.DeleteRoom(p.RoomCode)
}

func (o *Orchestrator) handleLeaveGame(sessionID string, raw json.RawMessage) {
	p, err := decode[roomCodePayload](raw)
	if err != nil {
		return
	}
	r, ok := o.rooms.GetRoom(p.RoomCode)
	if !ok {
		return
	}
	r.Mu.Lock()
	started := r.Started
	r.Mu.Unlock()

	if started {
		err = o.rooms.RemovePlayerFromGame(p.RoomCode, sessionID)
	} else {
		err = o.rooms.LeaveRoom(p.RoomCode, sessionID)
	}
	if err != nil {
		return
	}
	o.broadcastRoomUpdate(p.RoomCode)
	o.broadcastGameState(p.RoomCode)
}

// withPlayerAndGame resolves sessionID to its room and player name, and runs
// fn while the room is locked and a game is present. A no-op if the session
// isn't seated in a live game.
func (o *Orchestrator) withPlayerAndGame(code, sessionID string, fn func(r *room.Room, playerName string)) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return
	}
	name := ""
	for _, pl := range r.Players {
		if pl.ID == sessionID {
			name = pl.Name
			break
		}
	}
	if name == "" {
		return
	}
	fn(r, name)
}

// reportGameErr sends invalid-play to the acting session for legality
// errors and silently drops stale phase/turn errors, per §7.
func (o *Orchestrator) reportGameErr(sessionID string, r *room.Room, err error) {
	if err == nil {
		return
	}
	if game.IsInvalidPlay(err) {
		o.hub.SendTo(sessionID, eventInvalidPlay, invalidPlayPayload{Message: err.Error()})
	}
}

func (o *Orchestrator) roomSessionIDs(code string) []string {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return nil
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
