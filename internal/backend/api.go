package backend

import (
	"context"
	"net/http"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

// fetch runs rq and converts the decoded payload with conv.
func fetch[W, T any](ctx context.Context, c *Client, rq request, conv func(W) T) result.Result[T] {
	if c == nil {
		return result.Failure[T](result.Unknown("client is nil"))
	}
	var payload W
	if err := c.do(ctx, rq, &payload); err != nil {
		return result.Failure[T](err)
	}
	return result.Success(conv(payload))
}

func (c *Client) exec(ctx context.Context, rq request) result.Result[struct{}] {
	if c == nil {
		return result.Failure[struct{}](result.Unknown("client is nil"))
	}
	if err := c.do(ctx, rq, nil); err != nil {
		return result.Failure[struct{}](err)
	}
	return result.Success(struct{}{})
}

// MyTickets lists the signed-in user's tickets.
func (c *Client) MyTickets(ctx context.Context) result.Result[[]*model.Ticket] {
	return fetch(ctx, c, request{op: "tickets.list", method: http.MethodGet, path: "/tickets/me"}, ticketsToModel)
}

// CreateTicket creates a ticket. Uploads may be slow so the heavy timeout applies.
func (c *Client) CreateTicket(ctx context.Context, draft model.TicketDraft) result.Result[*model.Ticket] {
	rq := request{
		op:     "tickets.create",
		method: http.MethodPost,
		path:   "/tickets",
		body:   newTicketCreateRequest(draft),
		heavy:  true,
	}
	return fetch(ctx, c, rq, ticketResponse.toModel)
}

// UpdateTicket sends the fields present in patch.
func (c *Client) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) result.Result[*model.Ticket] {
	rq := request{
		op:     "tickets.update",
		method: http.MethodPatch,
		path:   ticketPath(id),
		body:   newTicketUpdateRequest(patch),
	}
	return fetch(ctx, c, rq, ticketResponse.toModel)
}

func (c *Client) DeleteTicket(ctx context.Context, id string) result.Result[struct{}] {
	return c.exec(ctx, request{op: "tickets.delete", method: http.MethodDelete, path: ticketPath(id)})
}

// FriendTickets lists a friend's tickets visible to the current user.
func (c *Client) FriendTickets(ctx context.Context, friendID string) result.Result[[]*model.Ticket] {
	rq := request{op: "tickets.friend", method: http.MethodGet, path: "/tickets/users/" + friendID}
	return fetch(ctx, c, rq, ticketsToModel)
}

func (c *Client) Friends(ctx context.Context, userID string) result.Result[[]*model.Friend] {
	rq := request{op: "friends.list", method: http.MethodGet, path: "/friendships/" + userID + "/friends"}
	return fetch(ctx, c, rq, func(l friendList) []*model.Friend {
		out := make([]*model.Friend, 0, len(l.Friends))
		for _, f := range l.Friends {
			out = append(out, f.toModel())
		}
		return out
	})
}

func (c *Client) ReceivedRequests(ctx context.Context, userID string) result.Result[[]*model.FriendRequest] {
	rq := request{op: "friends.received", method: http.MethodGet, path: "/friendships/" + userID + "/received-requests"}
	return fetch(ctx, c, rq, func(l requestList) []*model.FriendRequest { return requestsToModel(l.Requests) })
}

func (c *Client) SentRequests(ctx context.Context, userID string) result.Result[[]*model.FriendRequest] {
	rq := request{op: "friends.sent", method: http.MethodGet, path: "/friendships/" + userID + "/sent-requests"}
	return fetch(ctx, c, rq, func(l requestList) []*model.FriendRequest { return requestsToModel(l.Requests) })
}

// SendFriendRequest returns the created request, or nil when the server
// answers without a body.
func (c *Client) SendFriendRequest(ctx context.Context, userID, targetID string) result.Result[*model.FriendRequest] {
	rq := request{
		op:     "friends.send",
		method: http.MethodPost,
		path:   "/friendships/send",
		body:   sendRequest{TargetID: targetID},
		userID: userID,
	}
	return fetch(ctx, c, rq, func(r *friendRequestResponse) *model.FriendRequest {
		if r == nil {
			return nil
		}
		return r.toModel()
	})
}

func (c *Client) AcceptFriendRequest(ctx context.Context, userID, requestID string) result.Result[struct{}] {
	return c.exec(ctx, request{
		op:     "friends.accept",
		method: http.MethodPost,
		path:   "/friendships/" + requestID + "/accept",
		userID: userID,
	})
}

func (c *Client) RejectFriendRequest(ctx context.Context, userID, requestID string) result.Result[struct{}] {
	return c.exec(ctx, request{
		op:     "friends.reject",
		method: http.MethodPost,
		path:   "/friendships/" + requestID + "/reject",
		userID: userID,
	})
}

func (c *Client) RemoveFriend(ctx context.Context, userID, friendshipID string) result.Result[struct{}] {
	return c.exec(ctx, request{
		op:     "friends.remove",
		method: http.MethodDelete,
		path:   "/friendships/" + friendshipID,
		userID: userID,
	})
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, id, password string) result.Result[Session] {
	rq := request{
		op:     "auth.login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{ID: id, Password: password},
		public: true,
	}
	return fetch(ctx, c, rq, authResponse.toSession)
}

func (c *Client) Register(ctx context.Context, reg Registration) result.Result[Session] {
	rq := request{
		op:     "auth.signup",
		method: http.MethodPost,
		path:   "/auth/signup",
		body:   signupRequest{ID: reg.ID, Password: reg.Password, Email: reg.Email, Nickname: reg.Nickname},
		public: true,
	}
	return fetch(ctx, c, rq, authResponse.toSession)
}

func (c *Client) Logout(ctx context.Context) result.Result[struct{}] {
	return c.exec(ctx, request{op: "auth.logout", method: http.MethodPost, path: "/auth/logout"})
}

func (c *Client) Profile(ctx context.Context) result.Result[model.UserProfile] {
	return fetch(ctx, c, request{op: "users.me", method: http.MethodGet, path: "/users/me"}, profileResponse.toModel)
}

func (c *Client) UpdateProfile(ctx context.Context, patch model.ProfilePatch) result.Result[model.UserProfile] {
	rq := request{
		op:     "users.update",
		method: http.MethodPut,
		path:   "/users/me",
		body: profileUpdateRequest{
			Nickname:       patch.Nickname,
			Email:          patch.Email,
			ProfileImage:   patch.ProfileImage,
			AccountPrivate: patch.AccountPrivate,
		},
	}
	return fetch(ctx, c, rq, profileResponse.toModel)
}

func (c *Client) Settings(ctx context.Context) result.Result[model.UserSettings] {
	rq := request{op: "users.settings", method: http.MethodGet, path: "/users/me/settings"}
	return fetch(ctx, c, rq, func(s model.UserSettings) model.UserSettings { return s })
}

func (c *Client) UpdateSettings(ctx context.Context, settings model.UserSettings) result.Result[model.UserSettings] {
	rq := request{op: "users.settings.update", method: http.MethodPut, path: "/users/me/settings", body: settings}
	return fetch(ctx, c, rq, func(s model.UserSettings) model.UserSettings { return s })
}
