package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialInto connects a client to the hub through a test server and
// registers it under the given user ID
func dialInto(t *testing.T, hub *LocationHub, meetingID, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			hub.Join(meetingID, userID, conn)
		})
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		for _, id := range hub.ConnectedMembers(meetingID) {
			if id == userID {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	return conn
}

func TestBroadcastReachesOtherMembersOnly(t *testing.T) {
	hub := NewLocationHub()
	alice := dialInto(t, hub, "m1", "alice")
	bob := dialInto(t, hub, "m1", "bob")

	update := LocationMessage{
		Type:      "location_update",
		MeetingID: "m1",
		UserID:    "alice",
		Latitude:  37.5665,
		Longitude: 126.978,
		Timestamp: time.Now().Unix(),
	}
	require.NoError(t, hub.Broadcast("m1", "alice", update))

	bob.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := bob.ReadMessage()
	require.NoError(t, err)

	var got LocationMessage
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "location_update", got.Type)
	assert.Equal(t, "alice", got.UserID)
	assert.InDelta(t, 37.5665, got.Latitude, 1e-9)

	// The sender must not receive their own update.
	alice.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = alice.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcastIsScopedToMeeting(t *testing.T) {
	hub := NewLocationHub()
	dialInto(t, hub, "m1", "alice")
	outsider := dialInto(t, hub, "m2", "carol")

	require.NoError(t, hub.Broadcast("m1", "alice", LocationMessage{Type: "location_update"}))

	outsider.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := outsider.ReadMessage()
	assert.Error(t, err, "members of other meetings must not receive the update")
}

func TestLeaveRemovesConnection(t *testing.T) {
	hub := NewLocationHub()
	dialInto(t, hub, "m1", "alice")

	require.Len(t, hub.ConnectedMembers("m1"), 1)

	hub.mu.RLock()
	conn := hub.rooms["m1"]["alice"]
	hub.mu.RUnlock()

	hub.Leave("m1", "alice", conn)
	assert.Empty(t, hub.ConnectedMembers("m1"))
}

func TestSendToUnconnectedUserFails(t *testing.T) {
	hub := NewLocationHub()
	err := hub.SendToUser("m1", "nobody", LocationMessage{Type: "location_update"})
	assert.Error(t, err)
}
