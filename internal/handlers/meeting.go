package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"whereyou-backend/internal/middleware"
	"whereyou-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MeetingHandler handles meeting-related HTTP requests
type MeetingHandler struct {
	meetingService *services.MeetingService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingService *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{
		meetingService: meetingService,
	}
}

// CreateMeetingRequest represents the request body for creating a meeting
type CreateMeetingRequest struct {
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	MemberIDs   []string  `json:"member_ids"`
}

// CreateMeeting handles POST /api/v1/meetings
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	meeting, err := h.meetingService.CreateMeeting(ctx, userID, req.Title, req.ScheduledAt, req.MemberIDs)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("title", req.Title).
			Msg("Failed to create meeting")

		statusCode := http.StatusInternalServerError
		if err.Error() == "title is required" ||
			err.Error() == "scheduled_at is required" ||
			strings.Contains(err.Error(), "is not a friend") ||
			strings.Contains(err.Error(), "more than") {
			statusCode = http.StatusBadRequest
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("meeting_id", meeting.ID).
		Time("scheduled_at", meeting.ScheduledAt).
		Msg("Meeting created")

	respondJSON(w, meeting, http.StatusOK)
}

// ListMeetings handles GET /api/v1/meetings
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	meetings, err := h.meetingService.ListMeetings(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list meetings")
		respondError(w, "Failed to list meetings", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{"meetings": meetings}, http.StatusOK)
}

// GetMeeting handles GET /api/v1/meetings/{meeting_id}
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	meetingID := chi.URLParam(r, "meeting_id")

	meeting, err := h.meetingService.GetMeeting(ctx, meetingID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err.Error() == "meeting not found" {
			statusCode = http.StatusNotFound
		} else if err.Error() == "user is not a member of this meeting" {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	respondJSON(w, meeting, http.StatusOK)
}

// InviteMemberRequest represents the request body for inviting a member
type InviteMemberRequest struct {
	UserID string `json:"user_id"`
}

// InviteMember handles POST /api/v1/meetings/{meeting_id}/members
func (h *MeetingHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	meetingID := chi.URLParam(r, "meeting_id")

	var req InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	meeting, err := h.meetingService.InviteMember(ctx, meetingID, userID, req.UserID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("meeting_id", meetingID).
			Str("invitee_id", req.UserID).
			Msg("Failed to invite member")

		statusCode := http.StatusInternalServerError
		if err.Error() == "meeting not found" {
			statusCode = http.StatusNotFound
		} else if err.Error() == "user is not a member of this meeting" {
			statusCode = http.StatusForbidden
		} else if err.Error() == "user is already a member" {
			statusCode = http.StatusConflict
		} else if strings.Contains(err.Error(), "is not a friend") ||
			strings.Contains(err.Error(), "more than") {
			statusCode = http.StatusBadRequest
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("meeting_id", meetingID).
		Str("invitee_id", req.UserID).
		Msg("Member invited")

	respondJSON(w, meeting, http.StatusOK)
}

// RemoveMember handles DELETE /api/v1/meetings/{meeting_id}/members/{user_id}
func (h *MeetingHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	meetingID := chi.URLParam(r, "meeting_id")
	targetID := chi.URLParam(r, "user_id")

	meeting, err := h.meetingService.RemoveMember(ctx, meetingID, userID, targetID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("meeting_id", meetingID).
			Str("target_id", targetID).
			Msg("Failed to remove member")

		statusCode := http.StatusInternalServerError
		if err.Error() == "meeting not found" ||
			err.Error() == "user is not a member of this meeting" {
			statusCode = http.StatusNotFound
		} else if err.Error() == "only the creator can remove other members" ||
			err.Error() == "creator cannot be removed; delete the meeting instead" {
			statusCode = http.StatusForbidden
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("meeting_id", meetingID).
		Str("target_id", targetID).
		Msg("Member removed")

	respondJSON(w, meeting, http.StatusOK)
}

// DeleteMeeting handles DELETE /api/v1/meetings/{meeting_id}
func (h *MeetingHandler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	meetingID := chi.URLParam(r, "meeting_id")

	if err := h.meetingService.DeleteMeeting(ctx, meetingID, userID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("meeting_id", meetingID).
			Msg("Failed to delete meeting")

		statusCode := http.StatusInternalServerError
		if err.Error() == "meeting not found" {
			statusCode = http.StatusNotFound
		} else if err.Error() == "only the creator can delete a meeting" {
			statusCode = http.StatusForbidden
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("meeting_id", meetingID).
		Msg("Meeting deleted")

	w.WriteHeader(http.StatusNoContent)
}
