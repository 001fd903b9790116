package http

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/app"
)

// Hub tracks live connections and their room membership and fans serialized
// snapshots out to them. Each connection writes through a buffered send
// channel drained by its own writer goroutine, so one slow client never
// blocks a broadcast or another connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*hubConn
	rooms map[string]map[string]struct{}
}

type hubConn struct {
	socket *websocket.Conn
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*hubConn),
		rooms: make(map[string]map[string]struct{}),
	}
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type statePayload struct {
	State app.StateSnapshot `json:"state"`
}

// Register adds a connection and starts its writer goroutine.
func (h *Hub) Register(connID string, socket *websocket.Conn) {
	c := &hubConn{socket: socket, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()

	go func() {
		for msg := range c.send {
			if err := socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("ws: write to %s failed: %v", connID, err)
				return
			}
		}
	}()
}

// Unregister drops a connection from every room and stops its writer.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	close(c.send)
}

// JoinRoom records the connection as a member of the room.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

// BroadcastState sends a state:update to every member of the room.
func (h *Hub) BroadcastState(roomID string, snap app.StateSnapshot) {
	h.broadcast(roomID, "state:update", snap)
}

// BroadcastRoom sends a room:update to every member of the room.
func (h *Hub) BroadcastRoom(roomID string, snap app.StateSnapshot) {
	h.broadcast(roomID, "room:update", snap)
}

// SendState sends a state:update to a single connection.
func (h *Hub) SendState(connID string, snap app.StateSnapshot) {
	h.send(connID, "state:update", snap)
}

// SendRoom sends a room:update to a single connection.
func (h *Hub) SendRoom(connID string, snap app.StateSnapshot) {
	h.send(connID, "room:update", snap)
}

func (h *Hub) broadcast(roomID, msgType string, snap app.StateSnapshot) {
	data, err := json.Marshal(envelope{Type: msgType, Payload: statePayload{State: snap}})
	if err != nil {
		log.Printf("ws: marshal %s failed: %v", msgType, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		h.deliverLocked(connID, data)
	}
}

func (h *Hub) send(connID, msgType string, snap app.StateSnapshot) {
	data, err := json.Marshal(envelope{Type: msgType, Payload: statePayload{State: snap}})
	if err != nil {
		log.Printf("ws: marshal %s failed: %v", msgType, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(connID, data)
}

// WriteTo queues raw bytes for one connection. Acknowledgments go through
// here so the writer goroutine stays the socket's only writer.
func (h *Hub) WriteTo(connID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(connID, data)
}

// deliverLocked drops the message for connections whose buffer is full; a
// stalled client catches up from the next snapshot.
func (h *Hub) deliverLocked(connID string, data []byte) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("ws: buffer full for %s, dropping update", connID)
	}
}
