package models

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form the backend and the web client exchange.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// User is a chat identity as returned by the backend.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DisplayName returns the username, falling back to the id.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

type FriendRequestStatus int

const (
	StatusPending  FriendRequestStatus = 0
	StatusAccepted FriendRequestStatus = 1
	StatusRejected FriendRequestStatus = 2
)

func (s FriendRequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Direction labels a friend request relative to the current user.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// FriendRequest is a request from UserA (requester) to UserB (recipient).
type FriendRequest struct {
	ID     int                 `json:"id"`
	UserA  User                `json:"userA"`
	UserB  User                `json:"userB"`
	Status FriendRequestStatus `json:"status"`
}

// Direction returns Outgoing when the current user sent the request.
func (r FriendRequest) Direction(currentUsername string) Direction {
	if r.UserA.Username == currentUsername {
		return Outgoing
	}
	return Incoming
}

// Other returns the participant that is not the current user.
func (r FriendRequest) Other(currentUsername string) User {
	if r.UserA.Username == currentUsername {
		return r.UserB
	}
	return r.UserA
}

// Message is a direct message. It is also the real-time frame payload.
type Message struct {
	ID        int64  `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

// Time parses the timestamp. Unparseable or empty timestamps yield the zero time.
func (m Message) Time() time.Time {
	if m.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ChatInfo is the participants and persisted history of a direct conversation.
type ChatInfo struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

// Peer returns the participant whose id is not selfID.
func (c ChatInfo) Peer(selfID string) (User, bool) {
	for _, u := range c.Users {
		if u.ID != selfID {
			return u, true
		}
	}
	return User{}, false
}

type Server struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerID   string    `json:"ownerId"`
}

// ---------------- Request shapes ----------------

var ErrEmptyField = errors.New("required field is empty")

func required(fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return ErrEmptyField
		}
	}
	return nil
}

type CreateUserRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (r CreateUserRequest) Validate() error { return required(r.ID, r.Username) }

type SendFriendRequestRequest struct {
	UsernameA string `json:"usernameA"`
	UsernameB string `json:"usernameB"`
}

func (r SendFriendRequestRequest) Validate() error {
	if err := required(r.UsernameA, r.UsernameB); err != nil {
		return err
	}
	if r.UsernameA == r.UsernameB {
		return errors.New("cannot send a friend request to yourself")
	}
	return nil
}

type UpdateFriendRequestRequest struct {
	ID     int                 `json:"id"`
	Status FriendRequestStatus `json:"status"`
}

func (r UpdateFriendRequestRequest) Validate() error {
	if r.ID <= 0 {
		return errors.New("friend request id must be positive")
	}
	if r.Status != StatusAccepted && r.Status != StatusRejected {
		return errors.New("status must be accepted or rejected")
	}
	return nil
}

type RemoveFriendRequest struct {
	CurrentUserID  string `json:"currentUserId"`
	ToRemoveUserID string `json:"toRemoveUserId"`
}

func (r RemoveFriendRequest) Validate() error { return required(r.CurrentUserID, r.ToRemoveUserID) }

type CreateServerRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

func (r CreateServerRequest) Validate() error { return required(r.Name, r.OwnerID) }

// ChatInfoRequest names the two participants of a direct conversation.
type ChatInfoRequest struct {
	Users []string `json:"users"`
}

func (r ChatInfoRequest) Validate() error {
	if len(r.Users) != 2 {
		return errors.New("chat info needs exactly two users")
	}
	return required(r.Users...)
}

// ValidateMessage checks the fields the backend requires on a stored message.
func ValidateMessage(m Message) error {
	return required(m.Sender, m.Recipient, m.Content)
}
