package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/prefs"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/retry"
	"github.com/five82/ticketbook/internal/state"
)

var now = time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)

func testModel(t *testing.T, refresh func(context.Context, bool) bool) (Model, *state.State) {
	t.Helper()
	st := state.New(state.Deps{Now: func() time.Time { return now }})
	m := New(Options{
		State:     st,
		Refresh:   refresh,
		Retry:     &retry.Controller{After: instant},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	t.Cleanup(m.subs.stop)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), st
}

func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func loadTickets(st *state.State, tickets ...*model.Ticket) {
	cell.Set(st.Store, st.MyTickets.State, apistate.SetSuccess(apistate.Initial[[]*model.Ticket](), tickets, now))
}

func newTicket(id, title string, status model.TicketStatus) *model.Ticket {
	return &model.Ticket{
		ID:          id,
		Title:       title,
		Venue:       "KSPO Dome",
		Genre:       "밴드",
		Status:      status,
		PerformedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// settle delivers the pending change signal the way the program would.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	select {
	case <-m.changes:
	default:
		t.Fatalf("no change was signalled")
	}
	next, _ := m.Update(changedMsg{})
	return next.(Model)
}

func TestStoreWritesReachTheView(t *testing.T) {
	m, st := testModel(t, nil)
	loadTickets(st, newTicket("ticket_1", "Spring Tour", model.StatusPublic))

	m = settle(t, m)

	if len(m.snap.Tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(m.snap.Tickets))
	}
	if out := m.View(); !strings.Contains(out, "Spring Tour") {
		t.Fatalf("view does not list the ticket:\n%s", out)
	}
}

func TestCycleFilterNarrowsTickets(t *testing.T) {
	m, st := testModel(t, nil)
	loadTickets(st,
		newTicket("ticket_1", "Open Air", model.StatusPublic),
		newTicket("ticket_2", "Secret Show", model.StatusPrivate),
	)
	m = settle(t, m)

	m, _ = press(t, m, "f")
	m = settle(t, m)

	if got := cell.Get(st.Store, st.MyTickets.Filter).Status; got != model.StatusPublic {
		t.Fatalf("filter status = %q, want PUBLIC", got)
	}
	if len(m.snap.Tickets) != 1 || m.snap.Tickets[0].ID != "ticket_1" {
		t.Fatalf("filtered = %v", m.snap.Tickets)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil || saved.Status != "PUBLIC" {
		t.Fatalf("prefs = %+v, %v", saved, err)
	}
}

func TestSearchSetsTicketQuery(t *testing.T) {
	m, st := testModel(t, nil)
	loadTickets(st,
		newTicket("ticket_1", "Open Air", model.StatusPublic),
		newTicket("ticket_2", "Secret Show", model.StatusPrivate),
	)
	m = settle(t, m)

	m, _ = press(t, m, "/")
	if !m.searching {
		t.Fatalf("search mode not entered")
	}
	m, _ = press(t, m, "secret")
	m, _ = press(t, m, "enter")

	if m.searching {
		t.Fatalf("search mode not left")
	}
	if got := cell.Get(st.Store, st.MyTickets.Filter).SearchText; got != "secret" {
		t.Fatalf("search text = %q", got)
	}
	if len(m.snap.Tickets) != 1 || m.snap.Tickets[0].ID != "ticket_2" {
		t.Fatalf("matches = %v", m.snap.Tickets)
	}
}

func TestErrorBannerAndDismiss(t *testing.T) {
	m, st := testModel(t, nil)
	cell.Set(st.Store, st.Network.GlobalError, result.Network("connection refused"))
	m = settle(t, m)

	out := m.View()
	if !strings.Contains(out, "connection refused") || !strings.Contains(out, "R retry") {
		t.Fatalf("banner missing:\n%s", out)
	}

	m, _ = press(t, m, "x")
	m = settle(t, m)
	if cell.Get(st.Store, st.Network.GlobalError) != nil || m.snap.Err != nil {
		t.Fatalf("error not dismissed")
	}
}

func TestValidationErrorOffersNoRetry(t *testing.T) {
	if retryable(result.Validation("title is required", "title")) {
		t.Fatalf("validation errors should not be retryable")
	}
	if !retryable(result.Timeout("slow")) {
		t.Fatalf("timeouts should be retryable")
	}
}

func TestRetryKeyRunsController(t *testing.T) {
	calls := 0
	m, _ := testModel(t, func(_ context.Context, force bool) bool {
		if !force {
			t.Errorf("retry refreshed without force")
		}
		calls++
		return calls == 2
	})

	m, cmd := press(t, m, "R")
	if cmd == nil || !m.retrying {
		t.Fatalf("retry not started")
	}
	if _, again := press(t, m, "R"); again != nil {
		t.Fatalf("second retry started while one is running")
	}

	msg := cmd()
	done, ok := msg.(refreshedMsg)
	if !ok || !done.ok || !done.retried {
		t.Fatalf("msg = %#v", msg)
	}
	if calls != 2 {
		t.Fatalf("refresh calls = %d, want 2", calls)
	}
	next, _ := m.Update(done)
	if m = next.(Model); m.retrying || m.notice != "retry succeeded" {
		t.Fatalf("retrying = %v, notice = %q", m.retrying, m.notice)
	}
}

func TestTabAndThemePersist(t *testing.T) {
	m, _ := testModel(t, nil)

	m, _ = press(t, m, "tab")
	m, _ = press(t, m, "T")

	if m.view != ViewFriends || m.theme.Name != "Kanagawa" {
		t.Fatalf("view = %v, theme = %q", m.view, m.theme.Name)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.View != "friends" || saved.Theme != "Kanagawa" {
		t.Fatalf("prefs = %+v", saved)
	}
	if out := m.View(); !strings.Contains(out, "No friends yet.") {
		t.Fatalf("friends pane not shown:\n%s", out)
	}
}

func TestSelectionStaysInRange(t *testing.T) {
	m, st := testModel(t, nil)
	loadTickets(st,
		newTicket("ticket_1", "A", model.StatusPublic),
		newTicket("ticket_2", "B", model.StatusPublic),
	)
	m = settle(t, m)

	m, _ = press(t, m, "G")
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	m, _ = press(t, m, "j")
	if m.selected != 1 {
		t.Fatalf("selected moved past the end: %d", m.selected)
	}

	loadTickets(st, newTicket("ticket_1", "A", model.StatusPublic))
	m = settle(t, m)
	if m.selected != 0 {
		t.Fatalf("selected = %d after shrink", m.selected)
	}
}
