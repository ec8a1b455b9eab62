package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// LocationMessage is the wire format exchanged on the location WebSocket
type LocationMessage struct {
	Type      string  `json:"type"`
	MeetingID string  `json:"meeting_id,omitempty"`
	UserID    string  `json:"user_id,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// LocationHub fans live-location updates out to the connected members of
// a meeting. One connection per user per meeting; a reconnect replaces
// the previous connection.
type LocationHub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*websocket.Conn // meeting ID -> user ID -> conn
}

// NewLocationHub creates a new location hub
func NewLocationHub() *LocationHub {
	return &LocationHub{
		rooms: make(map[string]map[string]*websocket.Conn),
	}
}

// Join registers a member's connection for a meeting
func (h *LocationHub) Join(meetingID, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[meetingID]
	if !ok {
		room = make(map[string]*websocket.Conn)
		h.rooms[meetingID] = room
	}
	if existing, ok := room[userID]; ok {
		existing.Close()
	}
	room[userID] = conn

	log.Info().
		Str("meeting_id", meetingID).
		Str("user_id", userID).
		Msg("Member joined location room")
}

// Leave removes a member's connection from a meeting. Only the given
// connection is removed, so a stale goroutine cannot evict a reconnect.
func (h *LocationHub) Leave(meetingID, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[meetingID]
	if !ok {
		return
	}
	if current, ok := room[userID]; ok && current == conn {
		current.Close()
		delete(room, userID)
		log.Info().
			Str("meeting_id", meetingID).
			Str("user_id", userID).
			Msg("Member left location room")
	}
	if len(room) == 0 {
		delete(h.rooms, meetingID)
	}
}

// Broadcast sends a location update to every other connected member of
// the meeting. Dead connections are evicted.
func (h *LocationHub) Broadcast(meetingID, fromUserID string, msg LocationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal location message: %w", err)
	}

	h.mu.RLock()
	room := h.rooms[meetingID]
	conns := make(map[string]*websocket.Conn, len(room))
	for userID, conn := range room {
		conns[userID] = conn
	}
	h.mu.RUnlock()

	for userID, conn := range conns {
		if userID == fromUserID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().
				Err(err).
				Str("meeting_id", meetingID).
				Str("user_id", userID).
				Msg("Failed to write location update, evicting connection")
			h.Leave(meetingID, userID, conn)
		}
	}
	return nil
}

// SendToUser sends a message to a single connected member
func (h *LocationHub) SendToUser(meetingID, userID string, msg LocationMessage) error {
	h.mu.RLock()
	conn, ok := h.rooms[meetingID][userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected to meeting %s", userID, meetingID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Leave(meetingID, userID, conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ConnectedMembers lists the user IDs currently connected for a meeting
func (h *LocationHub) ConnectedMembers(meetingID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[meetingID]
	members := make([]string, 0, len(room))
	for userID := range room {
		members = append(members, userID)
	}
	return members
}
