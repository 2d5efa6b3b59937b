package model

import "time"

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "PENDING"
	RequestAccepted FriendRequestStatus = "ACCEPTED"
	RequestRejected FriendRequestStatus = "REJECTED"
)

// Friend is another user the current user is connected to. UserID is the
// friend's public handle; FriendshipID is the server-side link id, empty for
// friends added locally.
type Friend struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	FriendshipID string    `json:"friendshipId,omitempty"`
	Nickname     string    `json:"nickname"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FriendRequest is a pending or resolved request from FromUserID to ToUserID.
// Nickname, UserID and ProfileImage describe the other party for display.
type FriendRequest struct {
	ID           string              `json:"id"`
	FromUserID   string              `json:"fromUserId"`
	ToUserID     string              `json:"toUserId"`
	Nickname     string              `json:"nickname"`
	UserID       string              `json:"userId"`
	ProfileImage string              `json:"profileImage,omitempty"`
	Status       FriendRequestStatus `json:"status"`
	Message      string              `json:"message,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Friendship links the current user to a friend.
type Friendship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FriendID  string    `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
	Blocked   bool      `json:"isBlocked"`
}

// FriendTicketsEntry caches a friend's public tickets. LastUpdated is an
// RFC 3339 timestamp so the entry survives persistence as plain text.
type FriendTicketsEntry struct {
	Tickets     []*Ticket `json:"tickets"`
	LastUpdated string    `json:"lastUpdated"`
}

// Updated parses LastUpdated, returning the zero time when it is unset or
// malformed.
func (e FriendTicketsEntry) Updated() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, e.LastUpdated)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// FriendStats summarises the friend collections.
type FriendStats struct {
	Friends          int
	PendingReceived  int
	PendingSent      int
	WithCachedTicket int
}
