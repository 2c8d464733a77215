// Package transport implements the websocket wire layer: a JSON event
// envelope, and per-connection read/write pumps that buffer outbound writes
// through a channel the way every pump-based gorilla/websocket server does.
//
// The teacher transports poker events over gRPC streaming
// (pkg/rpc/grpc/pokerrpc), which this repo can't reproduce without
// hand-generating protoc stubs never fetched for this tree — fabricating
// those would violate the "never fabricate dependencies" rule. Per §6, any
// reliable, ordered, reconnecting bidirectional channel satisfies the spec,
// so this package uses gorilla/websocket instead, grounded on the read/write
// pump split in the pack's rias-glitch-telegram-webapp
// internal/ws/hub.go+room.go pair and splkm97-dojun's internal/game/room.go,
// both of which register connections into a room/hub keyed by session id the
// same way pkg/room.Player keys a participant by session id here.
package transport

import (
	"encoding/json"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second
	maxMessage = 1 << 16
)

// Envelope is the wire event frame: an event name and an opaque JSON payload,
// matching §6's event table (create-room, join-room, play-card, ...).
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn wraps one client's websocket connection with buffered, pump-driven
// send/receive, keyed by a stable session id assigned at connect time.
type Conn struct {
	id  string
	ws  *websocket.Conn
	log slog.Logger

	send chan []byte
	// onClose is invoked once, from the read pump, when the connection ends.
	onClose func(id string)
}

// NewConn wraps an already-upgraded websocket connection.
func NewConn(id string, ws *websocket.Conn, log slog.Logger, onClose func(id string)) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		log:     log,
		send:    make(chan []byte, 64),
		onClose: onClose,
	}
}

// ID returns the connection's session id.
func (c *Conn) ID() string {
	return c.id
}

// Emit marshals event/payload into an Envelope and queues it for the write
// pump. Non-blocking (a send with a default branch, as in the pack's
// hub.go): if the send buffer is full the message is dropped and a warning
// logged; no error is returned and the connection stays open.
func (c *Conn) Emit(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		return err
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.log.Warnf("conn %s: send buffer full, dropping", c.id)
		return nil
	}
}

// ReadPump reads envelopes until the connection closes, calling handle for
// each. Blocks the calling goroutine; callers run it in its own goroutine.
func (c *Conn) ReadPump(handle func(Envelope)) {
	defer func() {
		c.ws.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.ws.SetReadLimit(maxMessage)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warnf("conn %s: malformed envelope: %v", c.id, err)
			continue
		}
		handle(env)
	}
}

// WritePump drains the send buffer to the socket and pings on an interval,
// the standard gorilla/websocket pump shape. Blocks the calling goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears down the send channel, unblocking the write pump.
func (c *Conn) Close() {
	close(c.send)
}
