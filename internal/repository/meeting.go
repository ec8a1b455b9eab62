package repository

import (
	"context"
	"fmt"

	"whereyou-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MeetingRepository handles database operations for meetings
type MeetingRepository struct {
	db *pgxpool.Pool
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create creates a new meeting
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	query := `
		INSERT INTO meetings (id, title, creator_id, scheduled_at, member_ids,
			tracking_enabled, notification_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		meeting.ID, meeting.Title, meeting.CreatorID, meeting.ScheduledAt, meeting.MemberIDs,
		meeting.TrackingEnabled, meeting.NotificationSent, meeting.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// GetByID retrieves a meeting by ID
func (r *MeetingRepository) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `
		SELECT id, title, creator_id, scheduled_at, member_ids,
			tracking_enabled, notification_sent, created_at
		FROM meetings
		WHERE id = $1
	`
	var meeting models.Meeting
	err := r.db.QueryRow(ctx, query, id).Scan(
		&meeting.ID, &meeting.Title, &meeting.CreatorID, &meeting.ScheduledAt, &meeting.MemberIDs,
		&meeting.TrackingEnabled, &meeting.NotificationSent, &meeting.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("meeting not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &meeting, nil
}

// ListAll retrieves every meeting; used by the sweeps, which scan the
// whole collection each tick
func (r *MeetingRepository) ListAll(ctx context.Context) ([]*models.Meeting, error) {
	query := `
		SELECT id, title, creator_id, scheduled_at, member_ids,
			tracking_enabled, notification_sent, created_at
		FROM meetings
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		var meeting models.Meeting
		err := rows.Scan(
			&meeting.ID, &meeting.Title, &meeting.CreatorID, &meeting.ScheduledAt, &meeting.MemberIDs,
			&meeting.TrackingEnabled, &meeting.NotificationSent, &meeting.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, &meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}
	return meetings, nil
}

// ListByMember retrieves meetings a user is a member of, soonest first
func (r *MeetingRepository) ListByMember(ctx context.Context, userID string) ([]*models.Meeting, error) {
	query := `
		SELECT id, title, creator_id, scheduled_at, member_ids,
			tracking_enabled, notification_sent, created_at
		FROM meetings
		WHERE $1 = ANY(member_ids)
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings by member: %w", err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		var meeting models.Meeting
		err := rows.Scan(
			&meeting.ID, &meeting.Title, &meeting.CreatorID, &meeting.ScheduledAt, &meeting.MemberIDs,
			&meeting.TrackingEnabled, &meeting.NotificationSent, &meeting.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, &meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}
	return meetings, nil
}

// UpdateTracking updates the tracking flags for a meeting
func (r *MeetingRepository) UpdateTracking(ctx context.Context, id string, trackingEnabled, notificationSent bool) error {
	query := `UPDATE meetings SET tracking_enabled = $1, notification_sent = $2 WHERE id = $3`
	_, err := r.db.Exec(ctx, query, trackingEnabled, notificationSent, id)
	if err != nil {
		return fmt.Errorf("failed to update tracking flags: %w", err)
	}
	return nil
}

// UpdateMembers replaces the member roster for a meeting
func (r *MeetingRepository) UpdateMembers(ctx context.Context, id string, memberIDs []string) error {
	query := `UPDATE meetings SET member_ids = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, memberIDs, id)
	if err != nil {
		return fmt.Errorf("failed to update members: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meeting not found")
	}
	return nil
}

// Delete deletes a meeting by ID
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM meetings WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}
