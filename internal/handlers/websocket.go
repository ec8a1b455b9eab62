package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"whereyou-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients connect from app schemes, not browsers
	},
}

// LocationWSHandler handles the live-location WebSocket
type LocationWSHandler struct {
	hub            *services.LocationHub
	userService    *services.UserService
	meetingService *services.MeetingService
}

// NewLocationWSHandler creates a new location WebSocket handler
func NewLocationWSHandler(
	hub *services.LocationHub,
	userService *services.UserService,
	meetingService *services.MeetingService,
) *LocationWSHandler {
	return &LocationWSHandler{
		hub:            hub,
		userService:    userService,
		meetingService: meetingService,
	}
}

// HandleWebSocket handles GET /ws?token=...&meeting_id=...
//
// The client must be a member of the meeting and the meeting's tracking
// window must be open. Location updates sent on the socket are broadcast
// to the other connected members.
func (h *LocationWSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}
	meetingID := r.URL.Query().Get("meeting_id")
	if meetingID == "" {
		respondError(w, "meeting_id required", http.StatusBadRequest)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	meeting, err := h.meetingService.GetMeeting(ctx, meetingID, userID)
	if err != nil {
		respondError(w, err.Error(), http.StatusForbidden)
		return
	}
	if !meeting.TrackingEnabled {
		respondError(w, "location sharing is not active for this meeting", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Join(meetingID, userID, conn)
	defer h.hub.Leave(meetingID, userID, conn)

	joined := services.LocationMessage{
		Type:      "member_joined",
		MeetingID: meetingID,
		UserID:    userID,
		Timestamp: time.Now().Unix(),
	}
	if err := h.hub.Broadcast(meetingID, userID, joined); err != nil {
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("Failed to broadcast join")
	}

	log.Info().
		Str("user_id", userID).
		Str("meeting_id", meetingID).
		Msg("Location WebSocket established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.LocationMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(conn, "Invalid message format")
			continue
		}

		if msg.Type != "location_update" {
			h.sendError(conn, "Unknown message type")
			continue
		}

		msg.MeetingID = meetingID
		msg.UserID = userID
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().Unix()
		}

		if err := h.hub.Broadcast(meetingID, userID, msg); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("meeting_id", meetingID).
				Msg("Failed to broadcast location update")
		}
	}
}

// sendError sends an error message on the WebSocket connection
func (h *LocationWSHandler) sendError(conn *websocket.Conn, message string) {
	msg := services.LocationMessage{
		Type:    "error",
		Message: message,
	}
	data, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, data)
}
