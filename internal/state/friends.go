package state

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/keyed"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/validate"
)

// Friends holds the friend graph of the current user. Friends are keyed by
// the other user's id, requests and friendships by their own id, and the
// tickets cache by friend id.
type Friends struct {
	Map          *cell.State[map[string]*model.Friend]
	Requests     *cell.State[map[string]*model.FriendRequest]
	Friendships  *cell.State[map[string]*model.Friendship]
	TicketsCache *cell.State[map[string]*model.FriendTicketsEntry]

	// Fetch status of the backend lists. Their data is also merged into the
	// maps above.
	Remote         *cell.State[apistate.State[[]*model.Friend]]
	ReceivedRemote *cell.State[apistate.State[[]*model.FriendRequest]]
	SentRemote     *cell.State[apistate.State[[]*model.FriendRequest]]

	// List is ordered by nickname under Korean collation.
	List  *cell.Derived[[]*model.Friend]
	Count *cell.Derived[int]
	ByID  *cell.Derived[func(id string) (*model.Friend, bool)]
	// Received and Sent are the pending requests to and from the current
	// user, newest first.
	Received *cell.Derived[[]*model.FriendRequest]
	Sent     *cell.Derived[[]*model.FriendRequest]
	Tickets  *cell.Derived[func(friendID string) []*model.Ticket]
	Search   *cell.Derived[func(query string) []*model.Friend]
	Stats    *cell.Derived[model.FriendStats]

	SendRequest   *cell.Action[SendFriendRequestParams, result.Result[*model.FriendRequest]]
	Respond       *cell.Action[RespondFriendRequestParams, result.Result[bool]]
	Remove        *cell.Action[RemoveFriendParams, result.Result[bool]]
	UpdateTickets *cell.Action[UpdateFriendTicketsParams, result.Result[bool]]

	Fetch         *cell.Action[FetchFriendsParams, result.Result[[]*model.Friend]]
	FetchReceived *cell.Action[FetchReceivedParams, result.Result[[]*model.FriendRequest]]
	FetchSent     *cell.Action[FetchSentParams, result.Result[[]*model.FriendRequest]]
	FetchTickets  *cell.Action[FetchFriendTicketsParams, result.Result[[]*model.Ticket]]
	SendRemote    *cell.Action[SendFriendRequestParams, result.Result[*model.FriendRequest]]
	Accept        *cell.Action[AcceptRequestParams, result.Result[bool]]
	Reject        *cell.Action[RejectRequestParams, result.Result[bool]]
	RemoveRemote  *cell.Action[RemoveFriendParams, result.Result[bool]]
}

type SendFriendRequestParams struct {
	ToUserID string
	// Nickname, UserID and ProfileImage describe the recipient for display.
	Nickname     string
	UserID       string
	ProfileImage string
	Message      string
}

type RespondFriendRequestParams struct {
	RequestID string
	Accept    bool
}

type RemoveFriendParams struct {
	FriendID string
}

type UpdateFriendTicketsParams struct {
	FriendID string
	Tickets  []*model.Ticket
}

func newFriends(e *env, s *Session, n *Network) *Friends {
	f := &Friends{
		Map:            cell.NewState(map[string]*model.Friend{}),
		Requests:       cell.NewState(map[string]*model.FriendRequest{}),
		Friendships:    cell.NewState(map[string]*model.Friendship{}),
		TicketsCache:   cell.NewState(map[string]*model.FriendTicketsEntry{}),
		Remote:         cell.NewState(apistate.Initial[[]*model.Friend]()),
		ReceivedRemote: cell.NewState(apistate.Initial[[]*model.FriendRequest]()),
		SentRemote:     cell.NewState(apistate.Initial[[]*model.FriendRequest]()),
	}
	f.views(s)
	f.localActions(e, s)
	f.remoteActions(e, s, n)
	return f
}

func (f *Friends) views(s *Session) {
	f.List = cell.NewDerived(func(g cell.Getter) []*model.Friend {
		list := keyed.Values(cell.Get(g, f.Map), nil)
		SortFriends(list)
		return list
	})
	f.Count = cell.NewDerived(func(g cell.Getter) int {
		return len(cell.Get(g, f.Map))
	})
	f.ByID = cell.NewDerived(func(g cell.Getter) func(string) (*model.Friend, bool) {
		m := cell.Get(g, f.Map)
		return func(id string) (*model.Friend, bool) {
			fr, ok := m[id]
			return fr, ok
		}
	})
	f.Received = cell.NewDerived(func(g cell.Getter) []*model.FriendRequest {
		me := cell.Get(g, s.CurrentUserID)
		return pending(cell.Get(g, f.Requests), func(r *model.FriendRequest) bool { return r.ToUserID == me })
	})
	f.Sent = cell.NewDerived(func(g cell.Getter) []*model.FriendRequest {
		me := cell.Get(g, s.CurrentUserID)
		return pending(cell.Get(g, f.Requests), func(r *model.FriendRequest) bool { return r.FromUserID == me })
	})
	f.Tickets = cell.NewDerived(func(g cell.Getter) func(string) []*model.Ticket {
		cache := cell.Get(g, f.TicketsCache)
		return func(friendID string) []*model.Ticket {
			if entry := cache[friendID]; entry != nil {
				return entry.Tickets
			}
			return nil
		}
	})
	f.Search = cell.NewDerived(func(g cell.Getter) func(string) []*model.Friend {
		list := cell.Get(g, f.List)
		return func(query string) []*model.Friend {
			q := strings.ToLower(strings.TrimSpace(query))
			if q == "" {
				return list
			}
			return keyed.Filter(list, func(fr *model.Friend) bool {
				return strings.Contains(strings.ToLower(fr.Nickname), q) ||
					strings.Contains(strings.ToLower(fr.UserID), q)
			})
		}
	})
	f.Stats = cell.NewDerived(func(g cell.Getter) model.FriendStats {
		st := model.FriendStats{
			Friends:         cell.Get(g, f.Count),
			PendingReceived: len(cell.Get(g, f.Received)),
			PendingSent:     len(cell.Get(g, f.Sent)),
		}
		for _, entry := range cell.Get(g, f.TicketsCache) {
			if len(entry.Tickets) > 0 {
				st.WithCachedTicket++
			}
		}
		return st
	})
}

func (f *Friends) localActions(e *env, s *Session) {
	f.SendRequest = action(func(_ context.Context, tx *cell.Tx, p SendFriendRequestParams) result.Result[*model.FriendRequest] {
		me := cell.Get(tx, s.CurrentUserID)
		if err := f.checkTarget(tx, me, p.ToUserID); err != nil {
			return result.Failure[*model.FriendRequest](err)
		}
		now := e.now()
		req := newRequest(model.NewRequestID(), me, p, now)

		var failed *result.AppError
		cell.Update(tx, f.Requests, func(m map[string]*model.FriendRequest) map[string]*model.FriendRequest {
			if hasPending(m, me, p.ToUserID) {
				failed = result.Duplicate("friend request")
				return m
			}
			return keyed.Put(m, req.ID, req)
		})
		if failed != nil {
			return result.Failure[*model.FriendRequest](failed)
		}
		return result.Success(req)
	})

	f.Respond = action(func(_ context.Context, tx *cell.Tx, p RespondFriendRequestParams) result.Result[bool] {
		if err := validate.EntityID("requestId", p.RequestID); err != nil {
			return result.Failure[bool](err)
		}
		req, err := f.resolve(tx, p.RequestID, p.Accept, e.now())
		if err != nil {
			return result.Failure[bool](err)
		}
		if p.Accept {
			f.befriend(tx, req, model.NewFriendshipID(), cell.Get(tx, s.CurrentUserID), e.now())
		}
		return result.Success(true)
	})

	f.Remove = action(func(_ context.Context, tx *cell.Tx, p RemoveFriendParams) result.Result[bool] {
		if err := validate.EntityID("friendId", p.FriendID); err != nil {
			return result.Failure[bool](err)
		}
		if !f.unfriend(tx, p.FriendID) {
			return result.Failure[bool](result.NotFound("friend", p.FriendID))
		}
		return result.Success(true)
	})

	f.UpdateTickets = action(func(_ context.Context, tx *cell.Tx, p UpdateFriendTicketsParams) result.Result[bool] {
		if err := validate.EntityID("friendId", p.FriendID); err != nil {
			return result.Failure[bool](err)
		}
		f.cacheTickets(tx, p.FriendID, p.Tickets, e.now())
		return result.Success(true)
	})
}

// checkTarget rejects requests to self, to existing friends, and duplicates
// of a pending request.
func (f *Friends) checkTarget(g cell.Getter, me, target string) *result.AppError {
	if err := validate.FriendTarget(me, target); err != nil {
		return err
	}
	if _, ok := cell.Get(g, f.Map)[target]; ok {
		return result.Validation("already friends with this user", "toUserId")
	}
	if hasPending(cell.Get(g, f.Requests), me, target) {
		return result.Duplicate("friend request")
	}
	return nil
}

// resolve marks a pending request accepted or rejected and returns the
// updated request.
func (f *Friends) resolve(tx *cell.Tx, id string, accept bool, now time.Time) (*model.FriendRequest, *result.AppError) {
	var (
		updated *model.FriendRequest
		failed  *result.AppError
	)
	cell.Update(tx, f.Requests, func(m map[string]*model.FriendRequest) map[string]*model.FriendRequest {
		cur, ok := m[id]
		switch {
		case !ok:
			failed = result.NotFound("friend request", id)
			return m
		case cur.Status != model.RequestPending:
			failed = result.Validation("friend request was already answered", "requestId")
			return m
		}
		next := *cur
		next.Status = model.RequestRejected
		if accept {
			next.Status = model.RequestAccepted
		}
		next.UpdatedAt = now
		updated = &next
		return keyed.Put(m, id, updated)
	})
	return updated, failed
}

// befriend records the sender of an accepted request as a friend.
func (f *Friends) befriend(tx *cell.Tx, req *model.FriendRequest, friendshipID, me string, now time.Time) {
	friend := &model.Friend{
		ID:           req.FromUserID,
		UserID:       req.UserID,
		FriendshipID: friendshipID,
		Nickname:     req.Nickname,
		ProfileImage: req.ProfileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	link := &model.Friendship{
		ID:        friendshipID,
		UserID:    me,
		FriendID:  req.FromUserID,
		CreatedAt: now,
	}
	cell.Update(tx, f.Map, func(m map[string]*model.Friend) map[string]*model.Friend {
		return keyed.Put(m, friend.ID, friend)
	})
	cell.Update(tx, f.Friendships, func(m map[string]*model.Friendship) map[string]*model.Friendship {
		return keyed.Put(m, link.ID, link)
	})
}

// unfriend drops a friend with its friendship and cached tickets. It reports
// whether the friend existed.
func (f *Friends) unfriend(tx *cell.Tx, friendID string) bool {
	removed := false
	cell.Update(tx, f.Map, func(m map[string]*model.Friend) map[string]*model.Friend {
		next, deleted, _ := keyed.Delete(m, friendID)
		removed = len(deleted) > 0
		return next
	})
	if !removed {
		return false
	}
	cell.Update(tx, f.Friendships, func(m map[string]*model.Friendship) map[string]*model.Friendship {
		return keyed.DeleteFunc(m, func(_ string, fs *model.Friendship) bool { return fs.FriendID == friendID })
	})
	cell.Update(tx, f.TicketsCache, func(m map[string]*model.FriendTicketsEntry) map[string]*model.FriendTicketsEntry {
		next, _, _ := keyed.Delete(m, friendID)
		return next
	})
	return true
}

func (f *Friends) cacheTickets(tx *cell.Tx, friendID string, tickets []*model.Ticket, now time.Time) {
	entry := &model.FriendTicketsEntry{
		Tickets:     slices.Clone(tickets),
		LastUpdated: now.UTC().Format(time.RFC3339Nano),
	}
	cell.Update(tx, f.TicketsCache, func(m map[string]*model.FriendTicketsEntry) map[string]*model.FriendTicketsEntry {
		return keyed.Put(m, friendID, entry)
	})
}

func newRequest(id, from string, p SendFriendRequestParams, now time.Time) *model.FriendRequest {
	nickname := p.Nickname
	if nickname == "" {
		nickname = "Unknown User"
	}
	return &model.FriendRequest{
		ID:           id,
		FromUserID:   from,
		ToUserID:     p.ToUserID,
		Nickname:     nickname,
		UserID:       p.UserID,
		ProfileImage: p.ProfileImage,
		Status:       model.RequestPending,
		Message:      p.Message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// hasPending reports whether a pending request from "from" to "to" exists.
func hasPending(m map[string]*model.FriendRequest, from, to string) bool {
	for _, r := range m {
		if r.FromUserID == from && r.ToUserID == to && r.Status == model.RequestPending {
			return true
		}
	}
	return false
}

func pending(m map[string]*model.FriendRequest, match func(*model.FriendRequest) bool) []*model.FriendRequest {
	out := make([]*model.FriendRequest, 0, len(m))
	for _, r := range m {
		if r.Status == model.RequestPending && match(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.FriendRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SortFriends orders friends by nickname under Korean collation, then by id.
func SortFriends(list []*model.Friend) {
	// A Collator is not safe for concurrent use.
	col := collate.New(language.Korean)
	slices.SortStableFunc(list, func(a, b *model.Friend) int {
		if c := col.CompareString(a.Nickname, b.Nickname); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
