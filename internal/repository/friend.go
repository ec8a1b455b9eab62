package repository

import (
	"context"
	"fmt"

	"whereyou-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendRepository handles database operations for friend requests and friendships
type FriendRepository struct {
	db *pgxpool.Pool
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest creates a new friend request
func (r *FriendRepository) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, from_user_id, to_user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.FromUserID, req.ToUserID, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// GetRequestByID retrieves a friend request by ID
func (r *FriendRepository) GetRequestByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, created_at
		FROM friend_requests
		WHERE id = $1
	`
	var req models.FriendRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.FromUserID, &req.ToUserID, &req.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("friend request not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return &req, nil
}

// ListRequestsTo retrieves pending friend requests addressed to a user
func (r *FriendRepository) ListRequestsTo(ctx context.Context, userID string) ([]*models.FriendRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, created_at
		FROM friend_requests
		WHERE to_user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		reqs = append(reqs, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friend requests: %w", err)
	}
	return reqs, nil
}

// RequestExists checks if a pending request already exists between two users
// in either direction
func (r *FriendRepository) RequestExists(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (from_user_id = $1 AND to_user_id = $2)
			   OR (from_user_id = $2 AND to_user_id = $1)
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check request existence: %w", err)
	}
	return exists, nil
}

// DeleteRequest deletes a friend request by ID
func (r *FriendRepository) DeleteRequest(ctx context.Context, id string) error {
	query := `DELETE FROM friend_requests WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend request not found")
	}
	return nil
}

// CreateFriendship creates a new friendship
func (r *FriendRepository) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	query := `
		INSERT INTO friendships (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, f.ID, f.UserAID, f.UserBID, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// AreFriends checks if two users are friends
func (r *FriendRepository) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_a_id = $1 AND user_b_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// ListFriends retrieves the users a given user is friends with
func (r *FriendRepository) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.code, u.push_token, u.avatar_url, u.created_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_a_id = $1 THEN f.user_b_id ELSE f.user_a_id END
		WHERE f.user_a_id = $1 OR f.user_b_id = $1
		ORDER BY u.username
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Username, &user.Code, &user.PushToken, &user.AvatarURL, &user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}

// DeleteFriendship deletes the friendship between two users
func (r *FriendRepository) DeleteFriendship(ctx context.Context, userA, userB string) error {
	if userA > userB {
		userA, userB = userB, userA
	}
	query := `DELETE FROM friendships WHERE user_a_id = $1 AND user_b_id = $2`
	result, err := r.db.Exec(ctx, query, userA, userB)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friendship not found")
	}
	return nil
}
