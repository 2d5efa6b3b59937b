package state

import (
	"context"
	"sync"
	"testing"
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

var start = time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeService answers with the configured funcs. Calling an operation
// without one panics through the nil embedded Service.
type fakeService struct {
	backend.Service

	mu    sync.Mutex
	calls map[string]int

	myTickets     func() result.Result[[]*model.Ticket]
	createTicket  func(model.TicketDraft) result.Result[*model.Ticket]
	updateTicket  func(string, model.TicketPatch) result.Result[*model.Ticket]
	deleteTicket  func(string) result.Result[struct{}]
	friendTickets func(string) result.Result[[]*model.Ticket]
	friends       func(string) result.Result[[]*model.Friend]
	received      func(string) result.Result[[]*model.FriendRequest]
	sent          func(string) result.Result[[]*model.FriendRequest]
	send          func(string, string) result.Result[*model.FriendRequest]
	accept        func(string, string) result.Result[struct{}]
	reject        func(string, string) result.Result[struct{}]
	remove        func(string, string) result.Result[struct{}]
	login         func(string, string) result.Result[backend.Session]
	logout        func() result.Result[struct{}]
	profile       func() result.Result[model.UserProfile]
	updateProfile func(model.ProfilePatch) result.Result[model.UserProfile]
	settings      func() result.Result[model.UserSettings]
	saveSettings  func(model.UserSettings) result.Result[model.UserSettings]
}

func (f *fakeService) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) MyTickets(context.Context) result.Result[[]*model.Ticket] {
	f.hit("MyTickets")
	return f.myTickets()
}

func (f *fakeService) CreateTicket(_ context.Context, d model.TicketDraft) result.Result[*model.Ticket] {
	f.hit("CreateTicket")
	return f.createTicket(d)
}

func (f *fakeService) UpdateTicket(_ context.Context, id string, p model.TicketPatch) result.Result[*model.Ticket] {
	f.hit("UpdateTicket")
	return f.updateTicket(id, p)
}

func (f *fakeService) DeleteTicket(_ context.Context, id string) result.Result[struct{}] {
	f.hit("DeleteTicket")
	return f.deleteTicket(id)
}

func (f *fakeService) FriendTickets(_ context.Context, id string) result.Result[[]*model.Ticket] {
	f.hit("FriendTickets")
	return f.friendTickets(id)
}

func (f *fakeService) Friends(_ context.Context, user string) result.Result[[]*model.Friend] {
	f.hit("Friends")
	return f.friends(user)
}

func (f *fakeService) ReceivedRequests(_ context.Context, user string) result.Result[[]*model.FriendRequest] {
	f.hit("ReceivedRequests")
	return f.received(user)
}

func (f *fakeService) SentRequests(_ context.Context, user string) result.Result[[]*model.FriendRequest] {
	f.hit("SentRequests")
	return f.sent(user)
}

func (f *fakeService) SendFriendRequest(_ context.Context, user, target string) result.Result[*model.FriendRequest] {
	f.hit("SendFriendRequest")
	return f.send(user, target)
}

func (f *fakeService) AcceptFriendRequest(_ context.Context, user, id string) result.Result[struct{}] {
	f.hit("AcceptFriendRequest")
	return f.accept(user, id)
}

func (f *fakeService) RejectFriendRequest(_ context.Context, user, id string) result.Result[struct{}] {
	f.hit("RejectFriendRequest")
	return f.reject(user, id)
}

func (f *fakeService) RemoveFriend(_ context.Context, user, id string) result.Result[struct{}] {
	f.hit("RemoveFriend")
	return f.remove(user, id)
}

func (f *fakeService) Login(_ context.Context, id, password string) result.Result[backend.Session] {
	f.hit("Login")
	return f.login(id, password)
}

func (f *fakeService) Logout(context.Context) result.Result[struct{}] {
	f.hit("Logout")
	return f.logout()
}

func (f *fakeService) Profile(context.Context) result.Result[model.UserProfile] {
	f.hit("Profile")
	return f.profile()
}

func (f *fakeService) UpdateProfile(_ context.Context, p model.ProfilePatch) result.Result[model.UserProfile] {
	f.hit("UpdateProfile")
	return f.updateProfile(p)
}

func (f *fakeService) Settings(context.Context) result.Result[model.UserSettings] {
	f.hit("Settings")
	return f.settings()
}

func (f *fakeService) UpdateSettings(_ context.Context, s model.UserSettings) result.Result[model.UserSettings] {
	f.hit("UpdateSettings")
	return f.saveSettings(s)
}

type harness struct {
	st      *State
	svc     *fakeService
	clock   *clock
	tokens  *tokens.MemoryStorage
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		svc:     &fakeService{},
		clock:   &clock{t: start},
		tokens:  tokens.NewMemoryStorage(),
		metrics: metrics.New(nil),
	}
	h.st = New(Deps{
		Service: h.svc,
		Tokens:  h.tokens,
		Now:     h.clock.Now,
		Logger:  zerolog.Nop(),
		Metrics: h.metrics,
	})
	return h
}

// signIn loads a profile for id so CurrentUserID reports it.
func (h *harness) signIn(id string) {
	profile := model.UserProfile{ID: id, Nickname: id}
	cell.Set(h.st.Store, h.st.Session.Profile, apistate.SetSuccess(apistate.Initial[model.UserProfile](), profile, h.clock.Now()))
	cell.Set(h.st.Store, h.st.Session.AuthToken, "token-"+id)
}

func ticket(id, owner string, created time.Time) *model.Ticket {
	return &model.Ticket{
		ID:          id,
		UserID:      owner,
		Title:       "ticket " + id,
		Genre:       "밴드",
		Status:      model.StatusPublic,
		PerformedAt: created,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func kindOf[T any](r result.Result[T]) result.ErrorKind {
	if r.OK() {
		return ""
	}
	return r.Err().Kind
}
