// Package room implements the Room Manager: room creation, join/leave with
// reconnect-by-name, lobby configuration (ready, game mode, team assignment),
// and start readiness — all synchronous and pure over in-memory room state.
//
// Grounded on the teacher's pkg/server/lobby.go (table registry, join/leave,
// ready-check, host transfer) and pkg/poker/table.go (per-table mutex,
// ordered player bookkeeping), adapted from poker's buy-in/balance/seat
// model to this game's room-code/name/team model. The per-room lock itself
// (Room.Mu) mirrors Table.mu; the coarse Manager.mu guarding the rooms map
// mirrors Server.mu in pkg/server/server.go.
package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cardtable/spadesroom/pkg/game"
	"github.com/google/uuid"
)

const (
	// MaxPlayers and MinPlayers bound room membership (§3).
	MaxPlayers = 8
	MinPlayers = 2

	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Room is one table's full lobby/game state. Its lock serializes every
// client event, scheduled callback, and disconnect handler that touches this
// room or its Game. The Orchestrator holds Mu while it mutates state and
// takes it again, separately, for each broadcast; the lock is not held
// across the two, so another transition can run between a mutation and its
// fan-out.
type Room struct {
	Mu sync.Mutex

	Code    string
	HostID  string
	Mode    game.Mode
	Players []*Player
	Teams   map[string][]string
	Started bool
	Game    *game.Game

	CreatedAt time.Time
}

func (r *Room) findByID(sessionID string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == sessionID {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) findByName(name string) (*Player, int) {
	for i, p := range r.Players {
		if p.Name == name {
			return p, i
		}
	}
	return nil, -1
}

// PlayerByName looks up a player by their stable room identity.
func (r *Room) PlayerByName(name string) (*Player, bool) {
	p, _ := r.findByName(name)
	return p, p != nil
}

// PlayerNames returns the room's players in join order.
func (r *Room) PlayerNames() []string {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return names
}

// transferHostIfNeeded hands the host role to the first remaining player
// when the current host ID no longer belongs to anyone in the room.
func (r *Room) transferHostIfNeeded() {
	for _, p := range r.Players {
		if p.ID == r.HostID {
			return
		}
	}
	if len(r.Players) > 0 {
		r.HostID = r.Players[0].ID
	}
}

// Manager owns the process-wide rooms table, exposed only through this
// façade with a small critical section for insert/lookup/delete (§9); each
// room's inner state has its own lock.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	rng   *rand.Rand
}

// NewManager builds an empty room registry.
func NewManager(rng *rand.Rand) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		rng:   rng,
	}
}

func (m *Manager) generateCode() string {
	for {
		buf := make([]byte, codeLength)
		for i := range buf {
			buf[i] = codeAlphabet[m.rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

// CreateRoom mints a room with a unique code and seats the host as its only
// player.
func (m *Manager) CreateRoom(hostName string, mode game.Mode) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	hostID := uuid.NewString()
	room := &Room{
		Code:      m.generateCode(),
		HostID:    hostID,
		Mode:      mode,
		Players:   []*Player{NewPlayer(hostID, hostName)},
		CreatedAt: time.Now(),
	}
	if mode == game.ModeTeams {
		room.Teams = initialTeams(2)
	}
	m.rooms[room.Code] = room
	return room
}

func initialTeams(n int) map[string][]string {
	teams := make(map[string][]string, n)
	for i := 1; i <= n; i++ {
		teams[fmt.Sprintf("Team %d", i)] = nil
	}
	return teams
}

// GetRoom looks up a room by code.
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

// DeleteRoom removes a room from the registry outright.
func (m *Manager) DeleteRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
}

// FindPlayerRoom scans every room for sessionID. An O(rooms*players) scan is
// acceptable per §4.D.
func (m *Manager) FindPlayerRoom(sessionID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if p, _ := r.findByID(sessionID); p != nil {
			return r, true
		}
	}
	return nil, false
}

// JoinRoom seats a new player, or reconnects an existing disconnected player
// whose name matches exactly — replacing their session id, marking them
// connected, and transferring host if the rejoining id was the host's.
func (m *Manager) JoinRoom(code, sessionID, name string) (room *Room, reconnected bool, err error) {
	m.mu.RLock()
	room, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, false, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if existing, _ := room.findByName(name); existing != nil {
		if existing.Connected {
			return nil, false, ErrNameTaken
		}
		oldID := existing.ID
		existing.ID = sessionID
		existing.SetConnected(true)
		if room.HostID == oldID {
			room.HostID = sessionID
		}
		return room, true, nil
	}

	if room.Started {
		return nil, false, ErrGameAlreadyStarted
	}
	if len(room.Players) >= MaxPlayers {
		return nil, false, ErrRoomFull
	}

	room.Players = append(room.Players, NewPlayer(sessionID, name))
	return room, false, nil
}

// LeaveRoom removes sessionID from the room if the game hasn't started yet
// (deleting the room if that empties it, transferring host otherwise); if
// the game has started, the player's entry is kept and only marked
// disconnected so a reconnect can restore it.
func (m *Manager) LeaveRoom(code, sessionID string) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	p, idx := room.findByID(sessionID)
	if p == nil {
		return ErrPlayerNotFound
	}

	if room.Started {
		p.SetConnected(false)
		return nil
	}

	p.MarkLeft()
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	if len(room.Players) == 0 {
		m.DeleteRoom(code)
		return nil
	}
	room.transferHostIfNeeded()
	return nil
}

// RemovePlayerFromGame is an explicit mid-game leave: the player is removed
// from the room and, if a game is in progress, from the game's playerOrder
// too, with currentPlayerIndex clamped back into range.
func (m *Manager) RemovePlayerFromGame(code, sessionID string) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	p, idx := room.findByID(sessionID)
	if p == nil {
		return ErrPlayerNotFound
	}

	p.MarkLeft()
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	if room.Game != nil {
		room.Game.RemovePlayer(p.Name)
	}

	if len(room.Players) == 0 {
		m.DeleteRoom(code)
		return nil
	}
	room.transferHostIfNeeded()
	return nil
}

// ToggleReady flips sessionID's ready flag.
func (m *Manager) ToggleReady(code, sessionID string) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()

	p, _ := room.findByID(sessionID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Ready = !p.Ready
	return nil
}

// SetGameMode switches between Individual and Teams, lobby-only.
func (m *Manager) SetGameMode(code string, mode game.Mode) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Started {
		return ErrGameAlreadyStarted
	}
	room.Mode = mode
	if mode == game.ModeTeams {
		room.Teams = initialTeams(len(room.Players) / 2)
	} else {
		room.Teams = nil
	}
	return nil
}

// AssignTeam moves playerName onto teamName, removing them from any other
// team first.
func (m *Manager) AssignTeam(code, playerName, teamName string) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Mode != game.ModeTeams {
		return ErrNotTeamsMode
	}
	if _, ok := room.Teams[teamName]; !ok {
		return ErrUnknownTeam
	}

	for team, members := range room.Teams {
		room.Teams[team] = removeFromSlice(members, playerName)
	}
	room.Teams[teamName] = append(room.Teams[teamName], playerName)
	return nil
}

func removeFromSlice(members []string, name string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != name {
			out = append(out, m)
		}
	}
	return out
}

// UpdateTeams resizes the team roster to numTeams empty teams. Existing
// assignments are dropped — the spec leaves whether to preserve assignments
// across a resize unspecified, and re-seating from scratch is the simplest
// behavior a host driving this lobby control would expect.
func (m *Manager) UpdateTeams(code string, numTeams int) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Mode != game.ModeTeams {
		return ErrNotTeamsMode
	}
	room.Teams = initialTeams(numTeams)
	return nil
}

// CanStart reports whether the room satisfies the start conditions: at
// least MinPlayers, everyone ready, and — in Teams mode — an even player
// count with every player on exactly one non-empty team.
func (m *Manager) CanStart(code string) (bool, error) {
	room, ok := m.GetRoom(code)
	if !ok {
		return false, ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.canStartLocked(), nil
}

// CanStartLocked is canStartLocked exported for callers (the orchestrator)
// that already hold r.Mu as part of a larger transition and so cannot go
// through Manager.CanStart without deadlocking.
func (r *Room) CanStartLocked() bool {
	return r.canStartLocked()
}

func (r *Room) canStartLocked() bool {
	if len(r.Players) < MinPlayers {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	if r.Mode != game.ModeTeams {
		return true
	}

	if len(r.Players)%2 != 0 {
		return false
	}
	assigned := make(map[string]bool, len(r.Players))
	for _, members := range r.Teams {
		if len(members) == 0 {
			return false
		}
		for _, name := range members {
			if assigned[name] {
				return false
			}
			assigned[name] = true
		}
	}
	for _, p := range r.Players {
		if !assigned[p.Name] {
			return false
		}
	}
	return true
}

// ResetRoom returns the room to the lobby: started=false, game=nil, every
// ready flag cleared.
func (m *Manager) ResetRoom(code string) error {
	room, ok := m.GetRoom(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()

	room.Started = false
	room.Game = nil
	for _, p := range room.Players {
		p.Ready = false
	}
	return nil
}
