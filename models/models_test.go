package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestDirection(t *testing.T) {
	r := FriendRequest{
		ID:    3,
		UserA: User{ID: "1", Username: "ann"},
		UserB: User{ID: "2", Username: "bob"},
	}
	assert.Equal(t, Outgoing, r.Direction("ann"))
	assert.Equal(t, Incoming, r.Direction("bob"))
	assert.Equal(t, "bob", r.Other("ann").Username)
	assert.Equal(t, "ann", r.Other("bob").Username)
}

func TestMessageTime(t *testing.T) {
	m := Message{Timestamp: "2024-05-01T10:00:00.000Z"}
	assert.True(t, m.Time().Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, Message{}.Time().IsZero())
	assert.True(t, Message{Timestamp: "soon"}.Time().IsZero())

	now := time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)
	assert.True(t, Message{Timestamp: now.Format(TimestampLayout)}.Time().Equal(now))
}

func TestChatInfoPeer(t *testing.T) {
	info := ChatInfo{Users: []User{{ID: "u1", Username: "ann"}, {ID: "u2", Username: "bob"}}}
	peer, ok := info.Peer("u1")
	require.True(t, ok)
	assert.Equal(t, "bob", peer.Username)

	_, ok = ChatInfo{Users: []User{{ID: "u1"}}}.Peer("u1")
	assert.False(t, ok)
}

func TestUser(t *testing.T) {
	assert.Equal(t, "u9", User{ID: "u9"}.DisplayName())
	assert.Equal(t, "bob", User{ID: "u9", Username: "bob"}.DisplayName())
	assert.Equal(t, "accepted", StatusAccepted.String())
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     interface{ Validate() error }
		wantErr bool
	}{
		{"create user", CreateUserRequest{ID: "1", Username: "ann"}, false},
		{"create user blank", CreateUserRequest{ID: "1", Username: "  "}, true},
		{"friend request", SendFriendRequestRequest{UsernameA: "ann", UsernameB: "bob"}, false},
		{"friend request self", SendFriendRequestRequest{UsernameA: "ann", UsernameB: "ann"}, true},
		{"accept", UpdateFriendRequestRequest{ID: 1, Status: StatusAccepted}, false},
		{"pending is not a response", UpdateFriendRequestRequest{ID: 1, Status: StatusPending}, true},
		{"zero id", UpdateFriendRequestRequest{Status: StatusRejected}, true},
		{"remove friend", RemoveFriendRequest{CurrentUserID: "1", ToRemoveUserID: "2"}, false},
		{"remove friend blank", RemoveFriendRequest{CurrentUserID: "1"}, true},
		{"server", CreateServerRequest{Name: "s", OwnerID: "1"}, false},
		{"server blank", CreateServerRequest{OwnerID: "1"}, true},
		{"chat info", ChatInfoRequest{Users: []string{"1", "2"}}, false},
		{"chat info one user", ChatInfoRequest{Users: []string{"1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, ValidateMessage(Message{Sender: "1", Recipient: "2"}), ErrEmptyField)
	assert.NoError(t, ValidateMessage(Message{Sender: "1", Recipient: "2", Content: "hi"}))
}
