package backend

import (
	"context"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

// Service is the remote API as seen by the state layer. Every method reports
// failure through the Result and never panics.
type Service interface {
	MyTickets(ctx context.Context) result.Result[[]*model.Ticket]
	CreateTicket(ctx context.Context, draft model.TicketDraft) result.Result[*model.Ticket]
	UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) result.Result[*model.Ticket]
	DeleteTicket(ctx context.Context, id string) result.Result[struct{}]
	FriendTickets(ctx context.Context, friendID string) result.Result[[]*model.Ticket]

	Friends(ctx context.Context, userID string) result.Result[[]*model.Friend]
	ReceivedRequests(ctx context.Context, userID string) result.Result[[]*model.FriendRequest]
	SentRequests(ctx context.Context, userID string) result.Result[[]*model.FriendRequest]
	SendFriendRequest(ctx context.Context, userID, targetID string) result.Result[*model.FriendRequest]
	AcceptFriendRequest(ctx context.Context, userID, requestID string) result.Result[struct{}]
	RejectFriendRequest(ctx context.Context, userID, requestID string) result.Result[struct{}]
	RemoveFriend(ctx context.Context, userID, friendshipID string) result.Result[struct{}]

	Login(ctx context.Context, id, password string) result.Result[Session]
	Register(ctx context.Context, req Registration) result.Result[Session]
	Logout(ctx context.Context) result.Result[struct{}]
	Profile(ctx context.Context) result.Result[model.UserProfile]
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) result.Result[model.UserProfile]
	Settings(ctx context.Context) result.Result[model.UserSettings]
	UpdateSettings(ctx context.Context, settings model.UserSettings) result.Result[model.UserSettings]
}

// Session is the token pair returned by login and signup.
type Session struct {
	Token        string
	RefreshToken string
	Type         string
	ExpiresIn    int64
	Role         string
}

// Registration is a signup request.
type Registration struct {
	ID       string
	Password string
	Email    string
	Nickname string
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)
