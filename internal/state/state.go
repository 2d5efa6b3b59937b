package state

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/backend"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/metrics"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/tokens"
)

// Deps are the collaborators of a State. Service and Tokens may be nil for
// purely local use; backend-backed actions then fail with NETWORK.
type Deps struct {
	Service  backend.Service
	Tokens   tokens.Storage
	Now      func() time.Time
	CacheTTL time.Duration
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// State is one client's cells and the store holding their values.
type State struct {
	Store *cell.Store

	Session   *Session
	Tickets   *Tickets
	MyTickets *MyTickets
	Friends   *Friends
	Network   *Network

	now func() time.Time
}

// Now reads the clock the state was built with.
func (s *State) Now() time.Time { return s.now() }

// New defines the cells and binds them to a fresh store.
func New(deps Deps) *State {
	e := newEnv(deps)
	st := &State{Store: cell.NewStore(), now: e.now}

	st.Network = newNetwork()
	st.Session = newSession(e, st.Network)
	st.Tickets = newTickets(e, st.Session)
	st.MyTickets = newMyTickets(e, st.Session, st.Network)
	st.Friends = newFriends(e, st.Session, st.Network)
	st.Network.bind(st)

	st.Session.userData = []cell.Resettable{
		st.Tickets.Map,
		st.Tickets.Filter,
		st.MyTickets.State,
		st.MyTickets.Filter,
		st.Friends.Map,
		st.Friends.Requests,
		st.Friends.Friendships,
		st.Friends.TicketsCache,
		st.Friends.Remote,
		st.Friends.ReceivedRemote,
		st.Friends.SentRemote,
		st.Network.GlobalError,
	}
	return st
}

// env is what action closures need from Deps, with defaults filled in.
type env struct {
	svc     backend.Service
	tokens  tokens.Storage
	now     func() time.Time
	policy  apistate.Policy
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func newEnv(d Deps) *env {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	svc := d.Service
	if svc == nil {
		svc = offline{}
	}
	st := d.Tokens
	if st == nil {
		st = tokens.NewMemoryStorage()
	}
	return &env{
		svc:     svc,
		tokens:  st,
		now:     now,
		policy:  apistate.Policy{TTL: d.CacheTTL, Now: now},
		log:     d.Logger,
		metrics: d.Metrics,
	}
}

// action defines an action cell whose panics become UNKNOWN failures.
func action[P, R any](run func(ctx context.Context, tx *cell.Tx, p P) result.Result[R]) *cell.Action[P, result.Result[R]] {
	return cell.NewAction(func(ctx context.Context, tx *cell.Tx, p P) result.Result[R] {
		return result.Guard(func() result.Result[R] { return run(ctx, tx, p) })
	})
}

// fetch serves c from cache when it is fresh, otherwise calls load and
// records the outcome in c. Failures keep the stale data.
func fetch[T any](ctx context.Context, tx *cell.Tx, e *env, n *Network, c *cell.State[apistate.State[T]], resource string, force bool, load func(context.Context) result.Result[T]) result.Result[T] {
	cur := cell.Get(tx, c)
	if apistate.Fresh(e.policy, cur, force) {
		e.metrics.CacheHit(resource)
		e.log.Debug().Str("resource", resource).Msg("served from cache")
		return result.Success(cur.Data)
	}
	e.metrics.CacheMiss(resource)

	cell.Update(tx, c, apistate.SetLoading[T])
	res := load(ctx)
	if v, ok := res.Value(); ok {
		now := e.now()
		cell.Update(tx, c, func(s apistate.State[T]) apistate.State[T] {
			return apistate.SetSuccess(s, v, now)
		})
		return res
	}

	err := res.Err()
	cell.Update(tx, c, func(s apistate.State[T]) apistate.State[T] {
		return apistate.SetError(s, err.Message)
	})
	n.surface(tx, err)
	e.log.Warn().Str("resource", resource).Str("kind", string(err.Kind)).Msg(err.Message)
	return res
}

// offline is the Service used when none is configured.
type offline struct{}

func offlineFailure[T any]() result.Result[T] {
	return result.Failure[T](result.Network("no backend configured"))
}

func (offline) MyTickets(context.Context) result.Result[[]*model.Ticket] {
	return offlineFailure[[]*model.Ticket]()
}
func (offline) CreateTicket(context.Context, model.TicketDraft) result.Result[*model.Ticket] {
	return offlineFailure[*model.Ticket]()
}
func (offline) UpdateTicket(context.Context, string, model.TicketPatch) result.Result[*model.Ticket] {
	return offlineFailure[*model.Ticket]()
}
func (offline) DeleteTicket(context.Context, string) result.Result[struct{}] {
	return offlineFailure[struct{}]()
}
func (offline) FriendTickets(context.Context, string) result.Result[[]*model.Ticket] {
	return offlineFailure[[]*model.Ticket]()
}
func (offline) Friends(context.Context, string) result.Result[[]*model.Friend] {
	return offlineFailure[[]*model.Friend]()
}
func (offline) ReceivedRequests(context.Context, string) result.Result[[]*model.FriendRequest] {
	return offlineFailure[[]*model.FriendRequest]()
}
func (offline) SentRequests(context.Context, string) result.Result[[]*model.FriendRequest] {
	return offlineFailure[[]*model.FriendRequest]()
}
func (offline) SendFriendRequest(context.Context, string, string) result.Result[*model.FriendRequest] {
	return offlineFailure[*model.FriendRequest]()
}
func (offline) AcceptFriendRequest(context.Context, string, string) result.Result[struct{}] {
	return offlineFailure[struct{}]()
}
func (offline) RejectFriendRequest(context.Context, string, string) result.Result[struct{}] {
	return offlineFailure[struct{}]()
}
func (offline) RemoveFriend(context.Context, string, string) result.Result[struct{}] {
	return offlineFailure[struct{}]()
}
func (offline) Login(context.Context, string, string) result.Result[backend.Session] {
	return offlineFailure[backend.Session]()
}
func (offline) Register(context.Context, backend.Registration) result.Result[backend.Session] {
	return offlineFailure[backend.Session]()
}
func (offline) Logout(context.Context) result.Result[struct{}] {
	return offlineFailure[struct{}]()
}
func (offline) Profile(context.Context) result.Result[model.UserProfile] {
	return offlineFailure[model.UserProfile]()
}
func (offline) UpdateProfile(context.Context, model.ProfilePatch) result.Result[model.UserProfile] {
	return offlineFailure[model.UserProfile]()
}
func (offline) Settings(context.Context) result.Result[model.UserSettings] {
	return offlineFailure[model.UserSettings]()
}
func (offline) UpdateSettings(context.Context, model.UserSettings) result.Result[model.UserSettings] {
	return offlineFailure[model.UserSettings]()
}
