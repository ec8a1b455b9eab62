package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"whereyou-backend/internal/models"
	"whereyou-backend/internal/repository"

	"github.com/google/uuid"
)

const maxMeetingMembers = 30

// MeetingService handles meeting-related business logic
type MeetingService struct {
	meetingRepo *repository.MeetingRepository
	friendRepo  *repository.FriendRepository
}

// NewMeetingService creates a new meeting service
func NewMeetingService(meetingRepo *repository.MeetingRepository, friendRepo *repository.FriendRepository) *MeetingService {
	return &MeetingService{
		meetingRepo: meetingRepo,
		friendRepo:  friendRepo,
	}
}

// CreateMeeting creates a meeting. The creator is always on the roster;
// any additional initial members must be friends of the creator.
// Tracking flags start disabled and are owned by the sweeps afterwards.
func (s *MeetingService) CreateMeeting(ctx context.Context, creatorID, title string, scheduledAt time.Time, memberIDs []string) (*models.Meeting, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if scheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled_at is required")
	}

	roster := []string{creatorID}
	seen := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		isFriend, err := s.friendRepo.AreFriends(ctx, creatorID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check friendship: %w", err)
		}
		if !isFriend {
			return nil, fmt.Errorf("user %s is not a friend", id)
		}
		roster = append(roster, id)
	}
	if len(roster) > maxMeetingMembers {
		return nil, fmt.Errorf("meeting cannot have more than %d members", maxMeetingMembers)
	}

	meeting := &models.Meeting{
		ID:               uuid.New().String(),
		Title:            title,
		CreatorID:        creatorID,
		ScheduledAt:      scheduledAt,
		MemberIDs:        roster,
		TrackingEnabled:  false,
		NotificationSent: false,
		CreatedAt:        time.Now(),
	}

	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	return meeting, nil
}

// GetMeeting retrieves a meeting the user is a member of
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID, userID string) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("meeting not found")
	}
	if !meeting.IsMember(userID) {
		return nil, fmt.Errorf("user is not a member of this meeting")
	}
	return meeting, nil
}

// ListMeetings lists the meetings a user is a member of
func (s *MeetingService) ListMeetings(ctx context.Context, userID string) ([]*models.Meeting, error) {
	return s.meetingRepo.ListByMember(ctx, userID)
}

// InviteMember adds a friend of the inviter to the roster
func (s *MeetingService) InviteMember(ctx context.Context, meetingID, inviterID, friendID string) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("meeting not found")
	}
	if !meeting.IsMember(inviterID) {
		return nil, fmt.Errorf("user is not a member of this meeting")
	}
	if meeting.IsMember(friendID) {
		return nil, fmt.Errorf("user is already a member")
	}
	if len(meeting.MemberIDs) >= maxMeetingMembers {
		return nil, fmt.Errorf("meeting cannot have more than %d members", maxMeetingMembers)
	}

	isFriend, err := s.friendRepo.AreFriends(ctx, inviterID, friendID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !isFriend {
		return nil, fmt.Errorf("user %s is not a friend", friendID)
	}

	meeting.MemberIDs = append(meeting.MemberIDs, friendID)
	if err := s.meetingRepo.UpdateMembers(ctx, meetingID, meeting.MemberIDs); err != nil {
		return nil, fmt.Errorf("failed to update members: %w", err)
	}
	return meeting, nil
}

// RemoveMember removes a member from the roster. A member may remove
// themselves (leave); the creator may remove anyone else (kick). The
// creator cannot leave their own meeting, only delete it.
func (s *MeetingService) RemoveMember(ctx context.Context, meetingID, requesterID, targetID string) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("meeting not found")
	}
	if !meeting.IsMember(targetID) {
		return nil, fmt.Errorf("user is not a member of this meeting")
	}
	if targetID == meeting.CreatorID {
		return nil, fmt.Errorf("creator cannot be removed; delete the meeting instead")
	}
	if requesterID != targetID && requesterID != meeting.CreatorID {
		return nil, fmt.Errorf("only the creator can remove other members")
	}

	roster := make([]string, 0, len(meeting.MemberIDs))
	for _, id := range meeting.MemberIDs {
		if id != targetID {
			roster = append(roster, id)
		}
	}
	meeting.MemberIDs = roster

	if err := s.meetingRepo.UpdateMembers(ctx, meetingID, roster); err != nil {
		return nil, fmt.Errorf("failed to update members: %w", err)
	}
	return meeting, nil
}

// DeleteMeeting deletes a meeting; creator only
func (s *MeetingService) DeleteMeeting(ctx context.Context, meetingID, userID string) error {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("meeting not found")
	}
	if meeting.CreatorID != userID {
		return fmt.Errorf("only the creator can delete a meeting")
	}
	if err := s.meetingRepo.Delete(ctx, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}
