package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"whereyou-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeetingStore struct {
	mu            sync.Mutex
	meetings      map[string]*models.Meeting
	updates       int
	failUpdateFor map[string]bool
}

func newFakeMeetingStore(meetings ...*models.Meeting) *fakeMeetingStore {
	s := &fakeMeetingStore{
		meetings:      make(map[string]*models.Meeting),
		failUpdateFor: make(map[string]bool),
	}
	for _, m := range meetings {
		copied := *m
		s.meetings[m.ID] = &copied
	}
	return s
}

func (s *fakeMeetingStore) ListAll(ctx context.Context) ([]*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Meeting
	for _, m := range s.meetings {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeMeetingStore) UpdateTracking(ctx context.Context, id string, trackingEnabled, notificationSent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateFor[id] {
		return fmt.Errorf("store unavailable")
	}
	m, ok := s.meetings[id]
	if !ok {
		return fmt.Errorf("meeting not found")
	}
	m.TrackingEnabled = trackingEnabled
	m.NotificationSent = notificationSent
	s.updates++
	return nil
}

func (s *fakeMeetingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meetings, id)
	return nil
}

func (s *fakeMeetingStore) get(id string) *models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil
	}
	copied := *m
	return &copied
}

func (s *fakeMeetingStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}

type sentPush struct {
	token string
	title string
	body  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentPush
	fail bool
}

func (s *fakeSender) Send(ctx context.Context, deviceToken, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("push service unavailable")
	}
	s.sent = append(s.sent, sentPush{token: deviceToken, title: title, body: body})
	return nil
}

func (s *fakeSender) sends() []sentPush {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentPush, len(s.sent))
	copy(out, s.sent)
	return out
}

func userWithToken(id, token string) *models.User {
	return &models.User{ID: id, Username: id, PushToken: &token}
}

var scheduleT = time.Date(2025, 1, 1, 10, 0, 0, 0, KST)

func testMeeting(members ...string) *models.Meeting {
	return &models.Meeting{
		ID:          "m1",
		Title:       "Dinner in Hongdae",
		CreatorID:   members[0],
		ScheduledAt: scheduleT,
		MemberIDs:   members,
	}
}

func TestTrackingWindowBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"one second before window opens", scheduleT.Add(-trackingLeadTime).Add(-time.Second), false},
		{"window open boundary", scheduleT.Add(-trackingLeadTime), true},
		{"scheduled time", scheduleT, true},
		{"window close boundary", scheduleT.Add(trackingTailTime), true},
		{"one second after window closes", scheduleT.Add(trackingTailTime).Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, trackingWindowContains(scheduleT, tt.now))
		})
	}
}

func TestActivationEdgeNotifiesEachTokenOnce(t *testing.T) {
	// Three members, one without a push token.
	meetings := newFakeMeetingStore(testMeeting("alice", "bob", "carol"))
	users := newFakeUserStore(
		userWithToken("alice", "token-a"),
		userWithToken("bob", "token-b"),
		&models.User{ID: "carol", Username: "carol"},
	)
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	// Exactly at window open.
	tracker.RunActivationSweep(context.Background(), scheduleT.Add(-trackingLeadTime))

	m := meetings.get("m1")
	require.NotNil(t, m)
	assert.True(t, m.TrackingEnabled)
	assert.True(t, m.NotificationSent)

	sent := sender.sends()
	require.Len(t, sent, 2)
	tokens := []string{sent[0].token, sent[1].token}
	assert.ElementsMatch(t, []string{"token-a", "token-b"}, tokens)
	assert.Equal(t, trackingStartedTitle, sent[0].title)
	assert.Contains(t, sent[0].body, "Dinner in Hongdae")
}

func TestSteadyStateTickMakesNoWrites(t *testing.T) {
	meetings := newFakeMeetingStore(testMeeting("alice", "bob"))
	users := newFakeUserStore(userWithToken("alice", "token-a"), userWithToken("bob", "token-b"))
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	tracker.RunActivationSweep(context.Background(), scheduleT.Add(-trackingLeadTime))
	writesAfterEdge := meetings.updateCount()
	sendsAfterEdge := len(sender.sends())

	// One minute later, same window state.
	tracker.RunActivationSweep(context.Background(), scheduleT.Add(-trackingLeadTime).Add(time.Minute))

	assert.Equal(t, writesAfterEdge, meetings.updateCount(), "steady-state tick must not write")
	assert.Equal(t, sendsAfterEdge, len(sender.sends()), "steady-state tick must not send")

	m := meetings.get("m1")
	assert.True(t, m.TrackingEnabled)
	assert.True(t, m.NotificationSent)
}

func TestAtMostOneNotificationPerEdge(t *testing.T) {
	meetings := newFakeMeetingStore(testMeeting("alice"))
	users := newFakeUserStore(userWithToken("alice", "token-a"))
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	ticks := []time.Time{
		scheduleT.Add(-trackingLeadTime).Add(-time.Minute),
		scheduleT.Add(-trackingLeadTime),
		scheduleT.Add(-2 * time.Hour),
		scheduleT.Add(-time.Hour),
		scheduleT,
		scheduleT.Add(trackingTailTime),
	}
	for _, now := range ticks {
		tracker.RunActivationSweep(context.Background(), now)
	}

	assert.Len(t, sender.sends(), 1)
}

func TestExitWindowClearsBothFlags(t *testing.T) {
	m := testMeeting("alice", "bob")
	m.TrackingEnabled = true
	m.NotificationSent = true
	meetings := newFakeMeetingStore(m)
	users := newFakeUserStore(userWithToken("alice", "token-a"), userWithToken("bob", "token-b"))
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	// One minute past window close.
	tracker.RunActivationSweep(context.Background(), scheduleT.Add(trackingTailTime).Add(time.Minute))

	got := meetings.get("m1")
	assert.False(t, got.TrackingEnabled)
	assert.False(t, got.NotificationSent)
	assert.Empty(t, sender.sends())
}

func TestExitWindowResetsNotifyFlagEvenIfNeverNotified(t *testing.T) {
	m := testMeeting("alice")
	m.TrackingEnabled = true
	m.NotificationSent = false
	meetings := newFakeMeetingStore(m)
	tracker := NewTracker(meetings, newFakeUserStore(), &fakeSender{})

	tracker.RunActivationSweep(context.Background(), scheduleT.Add(trackingTailTime).Add(time.Minute))

	got := meetings.get("m1")
	assert.False(t, got.TrackingEnabled)
	assert.False(t, got.NotificationSent)
}

func TestInvalidStateNormalizedOutsideWindow(t *testing.T) {
	m := testMeeting("alice")
	m.TrackingEnabled = false
	m.NotificationSent = true
	meetings := newFakeMeetingStore(m)
	tracker := NewTracker(meetings, newFakeUserStore(), &fakeSender{})

	tracker.RunActivationSweep(context.Background(), scheduleT.Add(2*trackingTailTime))

	got := meetings.get("m1")
	assert.False(t, got.TrackingEnabled)
	assert.False(t, got.NotificationSent)
}

func TestZeroTokenRosterEnablesTrackingWithoutNotifying(t *testing.T) {
	meetings := newFakeMeetingStore(testMeeting("alice", "bob"))
	// Neither member has a push token; bob has no user record at all.
	users := newFakeUserStore(&models.User{ID: "alice", Username: "alice"})
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	tracker.RunActivationSweep(context.Background(), scheduleT)

	got := meetings.get("m1")
	assert.True(t, got.TrackingEnabled)
	assert.False(t, got.NotificationSent)
	assert.Empty(t, sender.sends())
}

func TestDuplicateRosterEntriesNotifyOnce(t *testing.T) {
	meetings := newFakeMeetingStore(testMeeting("alice", "alice", "alice"))
	users := newFakeUserStore(userWithToken("alice", "token-a"))
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	tracker.RunActivationSweep(context.Background(), scheduleT)

	assert.Len(t, sender.sends(), 1)
}

func TestSendFailureStillMarksNotified(t *testing.T) {
	// Delivery is best effort: a push failure at the edge is logged, not
	// retried on later ticks.
	meetings := newFakeMeetingStore(testMeeting("alice"))
	users := newFakeUserStore(userWithToken("alice", "token-a"))
	sender := &fakeSender{fail: true}
	tracker := NewTracker(meetings, users, sender)

	tracker.RunActivationSweep(context.Background(), scheduleT)
	got := meetings.get("m1")
	assert.True(t, got.TrackingEnabled)
	assert.True(t, got.NotificationSent)

	sender.fail = false
	tracker.RunActivationSweep(context.Background(), scheduleT.Add(time.Minute))
	assert.Empty(t, sender.sends())
}

func TestMeetingFailureDoesNotAbortOthers(t *testing.T) {
	broken := testMeeting("alice")
	broken.ID = "broken"
	healthy := testMeeting("alice")
	healthy.ID = "healthy"

	meetings := newFakeMeetingStore(broken, healthy)
	meetings.failUpdateFor["broken"] = true
	users := newFakeUserStore(userWithToken("alice", "token-a"))
	sender := &fakeSender{}
	tracker := NewTracker(meetings, users, sender)

	tracker.RunActivationSweep(context.Background(), scheduleT)

	got := meetings.get("healthy")
	assert.True(t, got.TrackingEnabled)
	assert.True(t, got.NotificationSent)

	// The broken meeting is repaired once the store recovers.
	meetings.mu.Lock()
	meetings.failUpdateFor["broken"] = false
	meetings.mu.Unlock()
	tracker.RunActivationSweep(context.Background(), scheduleT.Add(time.Minute))
	assert.True(t, meetings.get("broken").TrackingEnabled)
}

func TestDeletionSweepThreshold(t *testing.T) {
	meetings := newFakeMeetingStore(testMeeting("alice"))
	tracker := NewTracker(meetings, newFakeUserStore(), &fakeSender{})

	// One second before the threshold: keep.
	tracker.RunDeletionSweep(context.Background(), scheduleT.Add(expiryGraceTime).Add(-time.Second))
	assert.NotNil(t, meetings.get("m1"))

	// Exactly at scheduled_at + 2h: delete.
	tracker.RunDeletionSweep(context.Background(), scheduleT.Add(expiryGraceTime))
	assert.Nil(t, meetings.get("m1"))

	// A later sweep over the now-empty store is a no-op.
	tracker.RunDeletionSweep(context.Background(), scheduleT.Add(3*time.Hour))
	assert.Nil(t, meetings.get("m1"))
}

func TestDeletionSweepLeavesUpcomingMeetings(t *testing.T) {
	expired := testMeeting("alice")
	expired.ID = "expired"
	expired.ScheduledAt = scheduleT.Add(-24 * time.Hour)
	upcoming := testMeeting("alice")
	upcoming.ID = "upcoming"

	meetings := newFakeMeetingStore(expired, upcoming)
	tracker := NewTracker(meetings, newFakeUserStore(), &fakeSender{})

	tracker.RunDeletionSweep(context.Background(), scheduleT.Add(-time.Hour))

	assert.Nil(t, meetings.get("expired"))
	assert.NotNil(t, meetings.get("upcoming"))
}
