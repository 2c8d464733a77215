package transport

import "sync"

// Hub is the process-wide registry of live connections, keyed by session id.
// Grounded on the same pack hub.go's Rooms/UserRoom maps guarded by one
// mutex — here flattened to a single id->Conn map since room membership
// itself is pkg/room's concern, not transport's.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewHub builds an empty connection registry.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

// Register adds a connection, replacing any prior connection under the same
// id. A reconnecting client normally arrives as a new connection with a
// freshly minted id, which the room layer's join-by-name path rebinds the
// player to.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister removes a connection from the registry.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Get returns the live connection for id, if any.
func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// SendTo emits event/payload to a single session id. A no-op if that session
// has no live connection (e.g. disconnected players are never targeted, per
// §4.E).
func (h *Hub) SendTo(id, event string, payload interface{}) {
	c, ok := h.Get(id)
	if !ok {
		return
	}
	_ = c.Emit(event, payload)
}

// Broadcast emits event/payload to every id in ids that has a live
// connection.
func (h *Hub) Broadcast(ids []string, event string, payload interface{}) {
	for _, id := range ids {
		h.SendTo(id, event, payload)
	}
}
