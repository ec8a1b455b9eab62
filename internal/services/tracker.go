package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whereyou-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// Tracking window around the scheduled start, inclusive at both ends.
	trackingLeadTime = 3 * time.Hour
	trackingTailTime = 1 * time.Hour

	// Meetings are deleted once now >= scheduled_at + expiryGraceTime.
	expiryGraceTime = 2 * time.Hour

	trackingStartedTitle = "Location sharing started"

	sweepWorkers = 8
)

// KST is the fixed +09:00 offset used for window boundaries in logs.
// All comparisons are instant-to-instant; the zone only affects formatting.
var KST = time.FixedZone("KST", 9*60*60)

// MeetingStore is the slice of the meeting repository the sweeps consume
type MeetingStore interface {
	ListAll(ctx context.Context) ([]*models.Meeting, error)
	UpdateTracking(ctx context.Context, id string, trackingEnabled, notificationSent bool) error
	Delete(ctx context.Context, id string) error
}

// UserStore resolves meeting members to user records
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Sender delivers one push notification to one device
type Sender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// Tracker implements the location-tracking activation policy and the
// expired-meeting deletion sweep. Both are idempotent: each tick
// re-evaluates every meeting from its stored state, so a failed or
// half-applied tick is repaired by the next one.
type Tracker struct {
	meetings MeetingStore
	users    UserStore
	sender   Sender
}

// NewTracker creates a new tracker
func NewTracker(meetings MeetingStore, users UserStore, sender Sender) *Tracker {
	return &Tracker{
		meetings: meetings,
		users:    users,
		sender:   sender,
	}
}

// trackingWindowContains reports whether now falls inside
// [scheduledAt - 3h, scheduledAt + 1h], boundaries included
func trackingWindowContains(scheduledAt, now time.Time) bool {
	start := scheduledAt.Add(-trackingLeadTime)
	end := scheduledAt.Add(trackingTailTime)
	return !now.Before(start) && !now.After(end)
}

// RunActivationSweep converges each meeting's tracking flag to its
// computed window state and notifies members once per activation edge.
// Meetings are processed concurrently; a failure on one meeting never
// aborts the others.
func (t *Tracker) RunActivationSweep(ctx context.Context, now time.Time) {
	meetings, err := t.meetings.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Activation sweep: failed to list meetings")
		return
	}

	sem := make(chan struct{}, sweepWorkers)
	var wg sync.WaitGroup
	for _, meeting := range meetings {
		wg.Add(1)
		sem <- struct{}{}
		go func(m *models.Meeting) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := t.sweepMeeting(ctx, m, now); err != nil {
				log.Error().
					Err(err).
					Str("meeting_id", m.ID).
					Time("scheduled_at", m.ScheduledAt.In(KST)).
					Msg("Activation sweep: failed to process meeting")
			}
		}(meeting)
	}
	wg.Wait()
}

// sweepMeeting applies one tick of the activation state machine to a
// single meeting
func (t *Tracker) sweepMeeting(ctx context.Context, m *models.Meeting, now time.Time) error {
	active := trackingWindowContains(m.ScheduledAt, now)

	switch {
	case active && !m.TrackingEnabled:
		// Entering the window. Commit the flag before attempting any
		// notification so a crash mid-meeting still leaves tracking on.
		if err := t.meetings.UpdateTracking(ctx, m.ID, true, m.NotificationSent); err != nil {
			return fmt.Errorf("failed to enable tracking: %w", err)
		}
		log.Info().
			Str("meeting_id", m.ID).
			Str("title", m.Title).
			Time("scheduled_at", m.ScheduledAt.In(KST)).
			Msg("Tracking enabled")

		if m.NotificationSent {
			return nil
		}
		tokens := t.collectTokens(ctx, m.MemberIDs)
		if len(tokens) == 0 {
			// Flag stays (true, false); nothing to notify.
			return nil
		}
		t.notifyAll(ctx, m, tokens)
		if err := t.meetings.UpdateTracking(ctx, m.ID, true, true); err != nil {
			return fmt.Errorf("failed to mark notification sent: %w", err)
		}
		return nil

	case !active && (m.TrackingEnabled || m.NotificationSent):
		// Exiting the window. Clearing both flags also normalizes the
		// invalid (disabled, notified) combination back to idle.
		if err := t.meetings.UpdateTracking(ctx, m.ID, false, false); err != nil {
			return fmt.Errorf("failed to disable tracking: %w", err)
		}
		log.Info().
			Str("meeting_id", m.ID).
			Time("scheduled_at", m.ScheduledAt.In(KST)).
			Msg("Tracking disabled")
		return nil

	default:
		// Stored state already matches the computed state.
		return nil
	}
}

// collectTokens resolves the roster to push tokens. Members whose user
// record is missing or who have no token are skipped silently.
func (t *Tracker) collectTokens(ctx context.Context, memberIDs []string) []string {
	seen := make(map[string]struct{}, len(memberIDs))
	var tokens []string
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		user, err := t.users.GetByID(ctx, id)
		if err != nil {
			log.Debug().Err(err).Str("user_id", id).Msg("Member did not resolve to a user, skipping")
			continue
		}
		if user.PushToken == nil || *user.PushToken == "" {
			continue
		}
		tokens = append(tokens, *user.PushToken)
	}
	return tokens
}

// notifyAll sends the activation push to every collected token. Send
// failures are logged and swallowed; delivery is best effort.
func (t *Tracker) notifyAll(ctx context.Context, m *models.Meeting, tokens []string) {
	body := fmt.Sprintf("%s starts at %s. Members can now see each other's location.",
		m.Title, m.ScheduledAt.In(KST).Format("15:04"))
	for _, token := range tokens {
		if err := t.sender.Send(ctx, token, trackingStartedTitle, body); err != nil {
			log.Error().
				Err(err).
				Str("meeting_id", m.ID).
				Msg("Failed to send activation notification")
		}
	}
}

// RunDeletionSweep hard-deletes meetings whose scheduled time is at
// least two hours in the past
func (t *Tracker) RunDeletionSweep(ctx context.Context, now time.Time) {
	meetings, err := t.meetings.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Deletion sweep: failed to list meetings")
		return
	}

	for _, m := range meetings {
		if now.Before(m.ScheduledAt.Add(expiryGraceTime)) {
			continue
		}
		if err := t.meetings.Delete(ctx, m.ID); err != nil {
			log.Error().
				Err(err).
				Str("meeting_id", m.ID).
				Msg("Deletion sweep: failed to delete meeting")
			continue
		}
		log.Info().
			Str("meeting_id", m.ID).
			Time("scheduled_at", m.ScheduledAt.In(KST)).
			Msg("Expired meeting deleted")
	}
}
