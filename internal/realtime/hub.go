package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks live connections and the rooms (conversations) they joined, and
// fans persisted messages out to room subscribers. A user may hold several
// connections at once; each joins rooms independently.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection           // sessionID -> connection
	userSessions map[int64]map[string]struct{}    // userID -> session ids
	rooms        map[int64]map[string]*Connection // conversationID -> sessionID -> connection
	sessionRooms map[string]map[int64]struct{}    // sessionID -> joined conversation ids
}

func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[int64]map[string]struct{}),
		rooms:        make(map[int64]map[string]*Connection),
		sessionRooms: make(map[string]map[int64]struct{}),
	}
}

// Attach registers a connection and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	sessions := h.userSessions[conn.UserID]
	if sessions == nil {
		sessions = make(map[string]struct{})
		h.userSessions[conn.UserID] = sessions
	}
	sessions[conn.ID] = struct{}{}
	h.sessionRooms[conn.ID] = make(map[int64]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Detach removes a connection and all its room memberships.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join adds the connection to the conversation's room.
func (h *Hub) Join(conversationID int64, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[conn.ID]; !ok {
		return
	}

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conversationID] = room
	}
	room[conn.ID] = conn

	memberships := h.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[int64]struct{})
		h.sessionRooms[conn.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
}

// Leave removes the connection from the conversation's room.
func (h *Hub) Leave(conversationID int64, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(conversationID, conn.ID)
	h.mu.Unlock()
}

// InRoom reports whether the connection has joined the conversation's room.
func (h *Hub) InRoom(conversationID int64, conn *Connection) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[conversationID][conn.ID]
	return ok
}

// Broadcast writes payload to every member of the conversation's room —
// never process-wide — and returns the number of successful deliveries.
func (h *Hub) Broadcast(conversationID int64, payload []byte) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	conns := make([]*Connection, 0, len(room))
	for _, conn := range room {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// IsUserConnected reports whether the user holds at least one live connection.
func (h *Hub) IsUserConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userSessions[userID]) > 0
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.userSessions = make(map[int64]map[string]struct{})
	h.rooms = make(map[int64]map[string]*Connection)
	h.sessionRooms = make(map[string]map[int64]struct{})
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(websocket.CloseGoingAway, "hub shutdown")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if sessions, ok := h.userSessions[conn.UserID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(h.userSessions, conn.UserID)
		}
	}

	for roomID := range h.sessionRooms[sessionID] {
		h.leaveLocked(roomID, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(conversationID int64, sessionID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
