package services

import (
	"context"
	"fmt"
	"time"

	"whereyou-backend/internal/models"
	"whereyou-backend/internal/repository"

	"github.com/google/uuid"
)

// FriendService handles friend-related business logic
type FriendService struct {
	friendRepo *repository.FriendRepository
	userRepo   *repository.UserRepository
}

// NewFriendService creates a new friend service
func NewFriendService(friendRepo *repository.FriendRepository, userRepo *repository.UserRepository) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendRequest creates a friend request addressed to the owner of friendCode
func (s *FriendService) SendRequest(ctx context.Context, fromUserID, friendCode string) (*models.FriendRequest, error) {
	if len(friendCode) != codeLength {
		return nil, fmt.Errorf("friend code must be %d characters", codeLength)
	}

	target, err := s.userRepo.GetByCode(ctx, friendCode)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}

	if target.ID == fromUserID {
		return nil, fmt.Errorf("cannot send a friend request to yourself")
	}

	alreadyFriends, err := s.friendRepo.AreFriends(ctx, fromUserID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if alreadyFriends {
		return nil, fmt.Errorf("already friends")
	}

	pending, err := s.friendRepo.RequestExists(ctx, fromUserID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("request already pending")
	}

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   target.ID,
		CreatedAt:  time.Now(),
	}

	if err := s.friendRepo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	return req, nil
}

// ListRequests lists pending friend requests addressed to a user
func (s *FriendService) ListRequests(ctx context.Context, userID string) ([]*models.FriendRequest, error) {
	return s.friendRepo.ListRequestsTo(ctx, userID)
}

// AcceptRequest accepts a friend request and creates the friendship.
// Only the addressee can accept.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID, userID string) (*models.Friendship, error) {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("friend request not found")
	}

	if req.ToUserID != userID {
		return nil, fmt.Errorf("request is not addressed to this user")
	}

	userA, userB := req.FromUserID, req.ToUserID
	if userA > userB {
		userA, userB = userB, userA
	}

	friendship := &models.Friendship{
		ID:        uuid.New().String(),
		UserAID:   userA,
		UserBID:   userB,
		CreatedAt: time.Now(),
	}

	if err := s.friendRepo.CreateFriendship(ctx, friendship); err != nil {
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}

	if err := s.friendRepo.DeleteRequest(ctx, requestID); err != nil {
		return nil, fmt.Errorf("failed to delete friend request: %w", err)
	}

	return friendship, nil
}

// ListFriends lists the users a user is friends with
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	return s.friendRepo.ListFriends(ctx, userID)
}

// RemoveFriend deletes the friendship between two users
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.friendRepo.DeleteFriendship(ctx, userID, friendID)
}

// AreFriends reports whether two users are friends
func (s *FriendService) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	return s.friendRepo.AreFriends(ctx, userA, userB)
}
