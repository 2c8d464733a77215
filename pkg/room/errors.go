package room

import "errors"

// Membership errors, surfaced verbatim via the offending request's ack (§7
// kind 1). Sentinel errors the way the teacher's pkg/poker/pot.go exports
// Err* vars for pot.go callers to compare against with errors.Is.
var (
	ErrRoomNotFound        = errors.New("room: not found")
	ErrNameTaken           = errors.New("room: name already taken")
	ErrRoomFull            = errors.New("room: full")
	ErrGameAlreadyStarted  = errors.New("room: game already started")
	ErrPlayerNotFound      = errors.New("room: player not in room")
	ErrNotHost             = errors.New("room: actor is not the host")
	ErrNotTeamsMode        = errors.New("room: room is not in teams mode")
	ErrUnknownTeam         = errors.New("room: unknown team")
	ErrCannotStart         = errors.New("room: room cannot start yet")
)
