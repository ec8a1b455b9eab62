package models

import "time"

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	Token     string    `json:"token,omitempty"`
	PushToken *string   `json:"push_token,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendRequest represents a pending friend request between two users
type FriendRequest struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Friendship links two users; user_a_id is always the lexicographically
// smaller of the two IDs
type Friendship struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Meeting represents a planned gathering with a member roster.
// TrackingEnabled and NotificationSent are owned by the tracking sweeps
// and must not be written by any other component.
type Meeting struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CreatorID        string    `json:"creator_id"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	MemberIDs        []string  `json:"member_ids"`
	TrackingEnabled  bool      `json:"tracking_enabled"`
	NotificationSent bool      `json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsMember reports whether userID is on the meeting's roster
func (m *Meeting) IsMember(userID string) bool {
	for _, id := range m.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
