package room

import (
	"fmt"
	"time"

	"github.com/cardtable/spadesroom/pkg/statemachine"
)

// PlayerStateFn is a connection-state function following Rob Pike's pattern,
// the same shape the teacher's pkg/poker/player.go uses for AT_TABLE /
// IN_GAME / FOLDED / ALL_IN / LEFT.
type PlayerStateFn = statemachine.StateFn[Player]

// Player is a room participant. ID is the current session handle and may
// change across a reconnect; Name is the stable identity within the room.
type Player struct {
	ID   string
	Name string

	Ready      bool
	Connected  bool
	LastAction time.Time

	connMachine *statemachine.StateMachine[Player]
}

// NewPlayer creates a freshly connected, not-ready player.
func NewPlayer(id, name string) *Player {
	p := &Player{
		ID:         id,
		Name:       name,
		Connected:  true,
		LastAction: time.Now(),
	}
	p.connMachine = statemachine.NewStateMachine(p, playerStateConnected)
	return p
}

func playerStateConnected(entity *Player, callback func(string, statemachine.StateEvent)) PlayerStateFn {
	if !entity.Connected {
		if callback != nil {
			callback("CONNECTED", statemachine.StateExited)
		}
		return playerStateDisconnected
	}
	if callback != nil {
		callback("CONNECTED", statemachine.StateEntered)
	}
	return playerStateConnected
}

func playerStateDisconnected(entity *Player, callback func(string, statemachine.StateEvent)) PlayerStateFn {
	if entity.Connected {
		if callback != nil {
			callback("DISCONNECTED", statemachine.StateExited)
		}
		return playerStateConnected
	}
	if callback != nil {
		callback("DISCONNECTED", statemachine.StateEntered)
	}
	return playerStateDisconnected
}

func playerStateLeft(entity *Player, callback func(string, statemachine.StateEvent)) PlayerStateFn {
	if callback != nil {
		callback("LEFT", statemachine.StateEntered)
	}
	return nil
}

// SetConnected flips the Connected flag and dispatches the connection state
// machine so ConnectionState() reflects it.
func (p *Player) SetConnected(connected bool) {
	p.Connected = connected
	p.LastAction = time.Now()
	if connected {
		p.connMachine.SetState(playerStateConnected)
	} else {
		p.connMachine.SetState(playerStateDisconnected)
	}
}

// MarkLeft transitions the player to a terminal state once removed from a
// room. The Player value itself is discarded by the caller right after.
func (p *Player) MarkLeft() {
	p.connMachine.SetState(playerStateLeft)
}

// ConnectionState returns a string name for the player's connection state,
// the same function-pointer-comparison trick the teacher's GetGameState uses.
func (p *Player) ConnectionState() string {
	if p.connMachine == nil {
		return "UNINITIALIZED"
	}
	cur := p.connMachine.GetCurrentState()
	if cur == nil {
		return "LEFT"
	}
	switch fmt.Sprintf("%p", cur) {
	case fmt.Sprintf("%p", playerStateConnected):
		return "CONNECTED"
	case fmt.Sprintf("%p", playerStateDisconnected):
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}
