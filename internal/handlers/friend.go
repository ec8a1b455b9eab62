package handlers

import (
	"encoding/json"
	"net/http"

	"whereyou-backend/internal/middleware"
	"whereyou-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendHandler handles friend-related HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
	}
}

// SendRequestRequest represents the request body for sending a friend request
type SendRequestRequest struct {
	FriendCode string `json:"friend_code"`
}

// SendRequest handles POST /api/v1/friends/requests
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FriendCode == "" {
		respondError(w, "friend_code is required", http.StatusBadRequest)
		return
	}

	request, err := h.friendService.SendRequest(ctx, userID, req.FriendCode)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("friend_code", req.FriendCode).
			Msg("Failed to send friend request")

		statusCode := http.StatusInternalServerError
		switch err.Error() {
		case "user not found":
			statusCode = http.StatusNotFound
		case "cannot send a friend request to yourself",
			"already friends",
			"request already pending":
			statusCode = http.StatusConflict
		case "friend code must be 6 characters":
			statusCode = http.StatusBadRequest
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("request_id", request.ID).
		Msg("Friend request sent")

	respondJSON(w, request, http.StatusOK)
}

// ListRequests handles GET /api/v1/friends/requests
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	requests, err := h.friendService.ListRequests(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friend requests")
		respondError(w, "Failed to list friend requests", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{"requests": requests}, http.StatusOK)
}

// AcceptRequest handles POST /api/v1/friends/requests/{request_id}/accept
func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := chi.URLParam(r, "request_id")

	if requestID == "" {
		respondError(w, "request_id is required", http.StatusBadRequest)
		return
	}

	friendship, err := h.friendService.AcceptRequest(ctx, requestID, userID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("request_id", requestID).
			Msg("Failed to accept friend request")

		statusCode := http.StatusInternalServerError
		if err.Error() == "friend request not found" {
			statusCode = http.StatusNotFound
		} else if err.Error() == "request is not addressed to this user" {
			statusCode = http.StatusForbidden
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friendship_id", friendship.ID).
		Msg("Friend request accepted")

	respondJSON(w, friendship, http.StatusOK)
}

// ListFriends handles GET /api/v1/friends
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	friends, err := h.friendService.ListFriends(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friends")
		respondError(w, "Failed to list friends", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{"friends": friends}, http.StatusOK)
}

// RemoveFriend handles DELETE /api/v1/friends/{friend_id}
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	friendID := chi.URLParam(r, "friend_id")

	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	if err := h.friendService.RemoveFriend(ctx, userID, friendID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("friend_id", friendID).
			Msg("Failed to remove friend")

		statusCode := http.StatusInternalServerError
		if err.Error() == "friendship not found" {
			statusCode = http.StatusNotFound
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", friendID).
		Msg("Friend removed")

	w.WriteHeader(http.StatusNoContent)
}
