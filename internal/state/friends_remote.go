package state

import (
	"context"
	"maps"

	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/keyed"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/validate"
)

type FetchFriendsParams struct {
	Force bool
}

type FetchReceivedParams struct {
	Force bool
}

type FetchSentParams struct {
	Force bool
}

type FetchFriendTicketsParams struct {
	FriendID string
	Force    bool
}

type AcceptRequestParams struct {
	RequestID string
}

type RejectRequestParams struct {
	RequestID string
}

// graph is a snapshot of the friend maps taken before an optimistic change.
type graph struct {
	friends     map[string]*model.Friend
	requests    map[string]*model.FriendRequest
	friendships map[string]*model.Friendship
	tickets     map[string]*model.FriendTicketsEntry
}

func (f *Friends) remoteActions(e *env, s *Session, n *Network) {
	f.Fetch = action(func(ctx context.Context, tx *cell.Tx, p FetchFriendsParams) result.Result[[]*model.Friend] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[[]*model.Friend](err)
		}
		return fetch(ctx, tx, e, n, f.Remote, "friends", p.Force, func(ctx context.Context) result.Result[[]*model.Friend] {
			res := e.svc.Friends(ctx, me)
			if list, ok := res.Value(); ok {
				cell.Set(tx, f.Map, keyed.FromSlice(list, func(fr *model.Friend) string { return fr.ID }))
			}
			return res
		})
	})

	f.FetchReceived = action(func(ctx context.Context, tx *cell.Tx, p FetchReceivedParams) result.Result[[]*model.FriendRequest] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[[]*model.FriendRequest](err)
		}
		return fetch(ctx, tx, e, n, f.ReceivedRemote, "friend_requests_received", p.Force, func(ctx context.Context) result.Result[[]*model.FriendRequest] {
			res := e.svc.ReceivedRequests(ctx, me)
			list, ok := res.Value()
			if !ok {
				return res
			}
			list = withParties(list, func(r *model.FriendRequest) {
				if r.ToUserID == "" {
					r.ToUserID = me
				}
				if r.FromUserID == "" {
					r.FromUserID = r.UserID
				}
			})
			f.mergeRequests(tx, list, func(r *model.FriendRequest) bool { return r.ToUserID == me })
			return result.Success(list)
		})
	})

	f.FetchSent = action(func(ctx context.Context, tx *cell.Tx, p FetchSentParams) result.Result[[]*model.FriendRequest] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[[]*model.FriendRequest](err)
		}
		return fetch(ctx, tx, e, n, f.SentRemote, "friend_requests_sent", p.Force, func(ctx context.Context) result.Result[[]*model.FriendRequest] {
			res := e.svc.SentRequests(ctx, me)
			list, ok := res.Value()
			if !ok {
				return res
			}
			list = withParties(list, func(r *model.FriendRequest) {
				if r.FromUserID == "" {
					r.FromUserID = me
				}
				if r.ToUserID == "" {
					r.ToUserID = r.UserID
				}
			})
			f.mergeRequests(tx, list, func(r *model.FriendRequest) bool { return r.FromUserID == me })
			return result.Success(list)
		})
	})

	f.FetchTickets = action(func(ctx context.Context, tx *cell.Tx, p FetchFriendTicketsParams) result.Result[[]*model.Ticket] {
		if err := validate.EntityID("friendId", p.FriendID); err != nil {
			return result.Failure[[]*model.Ticket](err)
		}
		entry := cell.Get(tx, f.TicketsCache)[p.FriendID]
		if !p.Force && entry != nil && e.policy.Valid(entry.Updated()) {
			e.metrics.CacheHit("friend_tickets")
			return result.Success(entry.Tickets)
		}
		e.metrics.CacheMiss("friend_tickets")

		res := e.svc.FriendTickets(ctx, p.FriendID)
		list, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			e.log.Warn().Str("friend", p.FriendID).Str("kind", string(res.Err().Kind)).Msg(res.Err().Message)
			return res
		}
		f.cacheTickets(tx, p.FriendID, list, e.now())
		return res
	})

	refetchFriends := func(tx *cell.Tx) func(context.Context) bool {
		return func(ctx context.Context) bool {
			return f.Fetch.Dispatch(ctx, tx, FetchFriendsParams{Force: true}).OK()
		}
	}
	refetchReceived := func(tx *cell.Tx) func(context.Context) bool {
		return func(ctx context.Context) bool {
			return f.FetchReceived.Dispatch(ctx, tx, FetchReceivedParams{Force: true}).OK()
		}
	}
	refetchSent := func(tx *cell.Tx) func(context.Context) bool {
		return func(ctx context.Context) bool {
			return f.FetchSent.Dispatch(ctx, tx, FetchSentParams{Force: true}).OK()
		}
	}

	f.SendRemote = action(func(ctx context.Context, tx *cell.Tx, p SendFriendRequestParams) result.Result[*model.FriendRequest] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[*model.FriendRequest](err)
		}
		if err := f.checkTarget(tx, me, p.ToUserID); err != nil {
			return result.Failure[*model.FriendRequest](err)
		}
		now := e.now()
		prev := f.snapshot(tx)
		temp := newRequest(model.TempID(now), me, p, now)
		cell.Update(tx, f.Requests, func(m map[string]*model.FriendRequest) map[string]*model.FriendRequest {
			return keyed.Put(m, temp.ID, temp)
		})

		res := e.svc.SendFriendRequest(ctx, me, p.ToUserID)
		sent, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			f.rollback(ctx, tx, e, me, prev, res.Err(), refetchSent(tx))
			return res
		}
		if sent == nil {
			// The server acknowledged without a body; reloading replaces the
			// placeholder with the stored request.
			refetchSent(tx)(ctx)
			return result.Success(temp)
		}
		sent = withParties([]*model.FriendRequest{sent}, func(r *model.FriendRequest) {
			if r.FromUserID == "" {
				r.FromUserID = me
			}
			if r.ToUserID == "" {
				r.ToUserID = p.ToUserID
			}
		})[0]
		cell.Update(tx, f.Requests, func(m map[string]*model.FriendRequest) map[string]*model.FriendRequest {
			next, _, _ := keyed.Delete(m, temp.ID)
			return keyed.Put(next, sent.ID, sent)
		})
		return result.Success(sent)
	})

	f.Accept = action(func(ctx context.Context, tx *cell.Tx, p AcceptRequestParams) result.Result[bool] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[bool](err)
		}
		if err := validate.EntityID("requestId", p.RequestID); err != nil {
			return result.Failure[bool](err)
		}
		prev := f.snapshot(tx)
		now := e.now()
		req, err := f.resolve(tx, p.RequestID, true, now)
		if err != nil {
			return result.Failure[bool](err)
		}
		// Server-side the request id is the friendship id.
		f.befriend(tx, req, req.ID, me, now)

		if err := e.svc.AcceptFriendRequest(ctx, me, p.RequestID).Err(); err != nil {
			n.surface(tx, err)
			f.rollback(ctx, tx, e, me, prev, err, refetchReceived(tx), refetchFriends(tx))
			return result.Failure[bool](err)
		}
		return result.Success(true)
	})

	f.Reject = action(func(ctx context.Context, tx *cell.Tx, p RejectRequestParams) result.Result[bool] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[bool](err)
		}
		if err := validate.EntityID("requestId", p.RequestID); err != nil {
			return result.Failure[bool](err)
		}
		prev := f.snapshot(tx)
		if _, err := f.resolve(tx, p.RequestID, false, e.now()); err != nil {
			return result.Failure[bool](err)
		}

		if err := e.svc.RejectFriendRequest(ctx, me, p.RequestID).Err(); err != nil {
			n.surface(tx, err)
			f.rollback(ctx, tx, e, me, prev, err, refetchReceived(tx))
			return result.Failure[bool](err)
		}
		return result.Success(true)
	})

	f.RemoveRemote = action(func(ctx context.Context, tx *cell.Tx, p RemoveFriendParams) result.Result[bool] {
		me, err := signedIn(tx, s)
		if err != nil {
			return result.Failure[bool](err)
		}
		if err := validate.EntityID("friendId", p.FriendID); err != nil {
			return result.Failure[bool](err)
		}
		prev := f.snapshot(tx)
		friend, ok := prev.friends[p.FriendID]
		if !ok {
			return result.Failure[bool](result.NotFound("friend", p.FriendID))
		}
		link := friend.FriendshipID
		if link == "" {
			for _, fs := range prev.friendships {
				if fs.FriendID == p.FriendID {
					link = fs.ID
					break
				}
			}
		}
		if link == "" {
			return result.Failure[bool](result.Validation("friend is not linked on the server", "friendId"))
		}
		f.unfriend(tx, p.FriendID)

		if err := e.svc.RemoveFriend(ctx, me, link).Err(); err != nil {
			n.surface(tx, err)
			f.rollback(ctx, tx, e, me, prev, err, refetchFriends(tx))
			return result.Failure[bool](err)
		}
		return result.Success(true)
	})
}

// signedIn returns the current user id, failing for guests.
func signedIn(g cell.Getter, s *Session) (string, *result.AppError) {
	me := cell.Get(g, s.CurrentUserID)
	if me == model.GuestUserID {
		return "", result.Unauthorized("sign in to manage friends")
	}
	return me, nil
}

// withParties returns copies of list with fill applied to each.
func withParties(list []*model.FriendRequest, fill func(*model.FriendRequest)) []*model.FriendRequest {
	out := make([]*model.FriendRequest, len(list))
	for i, r := range list {
		c := *r
		fill(&c)
		out[i] = &c
	}
	return out
}

// mergeRequests replaces the requests selected by mine with list.
func (f *Friends) mergeRequests(tx *cell.Tx, list []*model.FriendRequest, mine func(*model.FriendRequest) bool) {
	cell.Update(tx, f.Requests, func(m map[string]*model.FriendRequest) map[string]*model.FriendRequest {
		next := keyed.DeleteFunc(m, func(_ string, r *model.FriendRequest) bool { return mine(r) })
		next = maps.Clone(next)
		for _, r := range list {
			next[r.ID] = r
		}
		return next
	})
}

func (f *Friends) snapshot(g cell.Getter) graph {
	return graph{
		friends:     cell.Get(g, f.Map),
		requests:    cell.Get(g, f.Requests),
		friendships: cell.Get(g, f.Friendships),
		tickets:     cell.Get(g, f.TicketsCache),
	}
}

// rollback reloads the friend lists after a failed write. If any reload fails
// the maps are put back as they were in prev. Otherwise friendships and cached
// tickets are reconciled with the reloaded friends. Reloads run even when ctx
// is already done.
func (f *Friends) rollback(ctx context.Context, tx *cell.Tx, e *env, me string, prev graph, cause *result.AppError, refetch ...func(context.Context) bool) {
	e.metrics.Rollback("friends")
	e.log.Warn().Str("resource", "friends").Str("kind", string(cause.Kind)).Msg("rolling back optimistic change")
	ctx = context.WithoutCancel(ctx)
	ok := true
	for _, r := range refetch {
		if !r(ctx) {
			ok = false
		}
	}
	if ok {
		f.reconcile(tx, me, prev)
		return
	}
	cell.Set(tx, f.Map, prev.friends)
	cell.Set(tx, f.Requests, prev.requests)
	cell.Set(tx, f.Friendships, prev.friendships)
	cell.Set(tx, f.TicketsCache, prev.tickets)
}

// reconcile keeps exactly one friendship per current friend: links from prev
// survive while their friend does, and friends the server linked are added.
// Cached tickets of friends that are gone are dropped.
func (f *Friends) reconcile(tx *cell.Tx, me string, prev graph) {
	friends := cell.Get(tx, f.Map)

	links := keyed.DeleteFunc(prev.friendships, func(_ string, fs *model.Friendship) bool {
		_, ok := friends[fs.FriendID]
		return !ok
	})
	linked := make(map[string]bool, len(links))
	for _, fs := range links {
		linked[fs.FriendID] = true
	}
	for _, fr := range friends {
		if linked[fr.ID] || fr.FriendshipID == "" {
			continue
		}
		links = keyed.Put(links, fr.FriendshipID, &model.Friendship{
			ID:        fr.FriendshipID,
			UserID:    me,
			FriendID:  fr.ID,
			CreatedAt: fr.CreatedAt,
		})
		linked[fr.ID] = true
	}
	cell.Set(tx, f.Friendships, links)

	cell.Set(tx, f.TicketsCache, keyed.DeleteFunc(prev.tickets, func(id string, _ *model.FriendTicketsEntry) bool {
		_, ok := friends[id]
		return !ok
	}))
}
