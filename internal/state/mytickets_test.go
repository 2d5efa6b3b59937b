package state

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

func TestFetchMyTicketsServesFromCache(t *testing.T) {
	h := newHarness(t)
	server := []*model.Ticket{ticket("ticket_1", "user_me", start)}
	h.svc.myTickets = func() result.Result[[]*model.Ticket] { return result.Success(server) }
	ctx := context.Background()
	fetch := func(force bool) result.Result[[]*model.Ticket] {
		return h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{Force: force})
	}

	if !fetch(false).OK() {
		t.Fatalf("first fetch failed")
	}
	h.clock.Advance(apistate.CacheTTL - time.Millisecond)
	if got := fetch(false); !got.OK() || h.svc.count("MyTickets") != 1 {
		t.Fatalf("fresh fetch hit backend: calls = %d", h.svc.count("MyTickets"))
	}
	if fetch(true); h.svc.count("MyTickets") != 2 {
		t.Fatalf("forced fetch calls = %d, want 2", h.svc.count("MyTickets"))
	}
	h.clock.Advance(apistate.CacheTTL)
	if fetch(false); h.svc.count("MyTickets") != 3 {
		t.Fatalf("stale fetch calls = %d, want 3", h.svc.count("MyTickets"))
	}

	st := cell.Get(h.st.Store, h.st.MyTickets.State)
	if st.Loading != apistate.Done || !st.LastFetch.Equal(h.clock.Now()) {
		t.Fatalf("state = %+v", st)
	}
	if hits := testutil.ToFloat64(h.metrics.CacheLookups.WithLabelValues("my_tickets", "hit")); hits != 1 {
		t.Fatalf("cache hits = %v, want 1", hits)
	}
}

func TestFetchFailureKeepsStaleData(t *testing.T) {
	h := newHarness(t)
	server := []*model.Ticket{ticket("ticket_1", "user_me", start)}
	h.svc.myTickets = func() result.Result[[]*model.Ticket] { return result.Success(server) }
	ctx := context.Background()
	h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{})

	h.svc.myTickets = func() result.Result[[]*model.Ticket] {
		return result.Failure[[]*model.Ticket](result.Server("boom"))
	}
	res := h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{Force: true})

	if kindOf(res) != result.KindServer {
		t.Fatalf("kind = %q, want SERVER", kindOf(res))
	}
	st := cell.Get(h.st.Store, h.st.MyTickets.State)
	if st.Loading != apistate.Failed || st.Err != "boom" || len(st.Data) != 1 {
		t.Fatalf("state = %+v", st)
	}
	if cell.Get(h.st.Store, h.st.MyTickets.Loading) || cell.Get(h.st.Store, h.st.MyTickets.Error) != "boom" {
		t.Fatalf("loading/error views out of sync")
	}
	if ge := cell.Get(h.st.Store, h.st.Network.GlobalError); ge == nil || ge.Kind != result.KindServer {
		t.Fatalf("global error = %v", ge)
	}
}

func TestCreateRollsBackByRefetch(t *testing.T) {
	h := newHarness(t)
	h.signIn("user_me")
	server := []*model.Ticket{ticket("ticket_1", "user_me", start)}
	h.svc.myTickets = func() result.Result[[]*model.Ticket] { return result.Success(server) }
	ctx := context.Background()
	h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{})

	sawTemp := false
	h.svc.createTicket = func(model.TicketDraft) result.Result[*model.Ticket] {
		for _, tk := range cell.Get(h.st.Store, h.st.MyTickets.State).Data {
			if model.IsTempID(tk.ID) {
				sawTemp = true
			}
		}
		return result.Failure[*model.Ticket](result.Server("insert failed"))
	}

	res := h.st.MyTickets.Create.Dispatch(ctx, h.st.Store, CreateTicketParams{Ticket: validDraft()})

	if kindOf(res) != result.KindServer {
		t.Fatalf("kind = %q, want SERVER", kindOf(res))
	}
	if !sawTemp {
		t.Fatalf("optimistic entry was not visible during the call")
	}
	if n := h.svc.count("MyTickets"); n != 2 {
		t.Fatalf("MyTickets calls = %d, want 2 (refetch)", n)
	}
	for _, tk := range cell.Get(h.st.Store, h.st.MyTickets.State).Data {
		if model.IsTempID(tk.ID) {
			t.Fatalf("temp entity %q survived rollback", tk.ID)
		}
	}
	if n := testutil.ToFloat64(h.metrics.Rollbacks.WithLabelValues("my_tickets")); n != 1 {
		t.Fatalf("rollbacks = %v, want 1", n)
	}
}

func TestCreateRestoresSnapshotWhenRefetchFails(t *testing.T) {
	h := newHarness(t)
	h.svc.createTicket = func(model.TicketDraft) result.Result[*model.Ticket] {
		return result.Failure[*model.Ticket](result.Network("offline"))
	}
	h.svc.myTickets = func() result.Result[[]*model.Ticket] {
		return result.Failure[[]*model.Ticket](result.Network("offline"))
	}

	res := h.st.MyTickets.Create.Dispatch(context.Background(), h.st.Store, CreateTicketParams{Ticket: validDraft()})

	if kindOf(res) != result.KindNetwork {
		t.Fatalf("kind = %q, want NETWORK", kindOf(res))
	}
	st := cell.Get(h.st.Store, h.st.MyTickets.State)
	if len(st.Data) != 0 || st.HasData {
		t.Fatalf("state after failed rollback = %+v", st)
	}
}

func TestCreateAdoptsServerTicket(t *testing.T) {
	h := newHarness(t)
	h.signIn("user_me")
	server := []*model.Ticket{ticket("ticket_1", "user_me", start)}
	h.svc.myTickets = func() result.Result[[]*model.Ticket] { return result.Success(server) }
	ctx := context.Background()
	h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{})
	fetchedAt := cell.Get(h.st.Store, h.st.MyTickets.State).LastFetch

	h.clock.Advance(time.Minute)
	saved := ticket("ticket_2", "user_me", h.clock.Now())
	h.svc.createTicket = func(model.TicketDraft) result.Result[*model.Ticket] { return result.Success(saved) }

	res := h.st.MyTickets.Create.Dispatch(ctx, h.st.Store, CreateTicketParams{Ticket: validDraft()})

	if got, _ := res.Value(); got != saved {
		t.Fatalf("result = %v, want server ticket", got)
	}
	list := cell.Get(h.st.Store, h.st.MyTickets.List)
	if len(list) != 2 || list[0] != saved {
		t.Fatalf("list = %v", list)
	}
	if st := cell.Get(h.st.Store, h.st.MyTickets.State); !st.LastFetch.Equal(fetchedAt) {
		t.Fatalf("optimistic write moved LastFetch to %v", st.LastFetch)
	}
}

func TestUpdateAndDeleteRemote(t *testing.T) {
	h := newHarness(t)
	h.signIn("user_me")
	orig := ticket("ticket_1", "user_me", start)
	h.svc.myTickets = func() result.Result[[]*model.Ticket] { return result.Success([]*model.Ticket{orig}) }
	ctx := context.Background()
	h.st.MyTickets.Fetch.Dispatch(ctx, h.st.Store, FetchMyTicketsParams{})

	h.svc.updateTicket = func(id string, p model.TicketPatch) result.Result[*model.Ticket] {
		return result.Success(orig.Apply(p, start.Add(time.Second)))
	}
	res := h.st.MyTickets.Update.Dispatch(ctx, h.st.Store, UpdateTicketParams{
		ID:    orig.ID,
		Patch: model.TicketPatch{Title: model.Ptr("renamed")},
	})
	if got, ok := res.Value(); !ok || got.Title != "renamed" {
		t.Fatalf("update = %v", res)
	}
	if list := cell.Get(h.st.Store, h.st.MyTickets.List); list[0].Title != "renamed" {
		t.Fatalf("list title = %q", list[0].Title)
	}

	h.svc.deleteTicket = func(string) result.Result[struct{}] {
		return result.Failure[struct{}](result.Forbidden("nope"))
	}
	del := h.st.MyTickets.Delete.Dispatch(ctx, h.st.Store, DeleteTicketParams{ID: orig.ID})
	if kindOf(del) != result.KindForbidden {
		t.Fatalf("delete kind = %q, want FORBIDDEN", kindOf(del))
	}
	if list := cell.Get(h.st.Store, h.st.MyTickets.List); len(list) != 1 || list[0] != orig {
		t.Fatalf("list after rollback = %v", list)
	}

	h.svc.deleteTicket = func(string) result.Result[struct{}] { return result.Success(struct{}{}) }
	if !h.st.MyTickets.Delete.Dispatch(ctx, h.st.Store, DeleteTicketParams{ID: orig.ID}).OK() {
		t.Fatalf("delete failed")
	}
	if list := cell.Get(h.st.Store, h.st.MyTickets.List); len(list) != 0 {
		t.Fatalf("list after delete = %v", list)
	}
}

func TestPanicsBecomeUnknown(t *testing.T) {
	h := newHarness(t)
	// No deleteTicket func is configured, so the fake panics.
	res := h.st.MyTickets.Delete.Dispatch(context.Background(), h.st.Store, DeleteTicketParams{ID: "ticket_1"})
	if kindOf(res) != result.KindUnknown {
		t.Fatalf("kind = %q, want UNKNOWN", kindOf(res))
	}
}

func TestGlobalLoadingDuringFetch(t *testing.T) {
	h := newHarness(t)
	during := false
	h.svc.myTickets = func() result.Result[[]*model.Ticket] {
		during = cell.Get(h.st.Store, h.st.Network.GlobalLoading)
		return result.Success([]*model.Ticket{})
	}
	h.st.MyTickets.Fetch.Dispatch(context.Background(), h.st.Store, FetchMyTicketsParams{})
	if !during {
		t.Fatalf("GlobalLoading false while fetching")
	}
	if cell.Get(h.st.Store, h.st.Network.GlobalLoading) {
		t.Fatalf("GlobalLoading true after fetch")
	}
}
