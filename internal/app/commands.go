package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/prometheus/common/expfmt"

	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/state"
)

const dateLayout = "2006-01-02"

// ErrSignedOut is returned by commands that need a session.
var ErrSignedOut = errors.New("not signed in; run ticketbook login first")

// Login signs in and loads the profile.
func (a *App) Login(ctx context.Context, id, password string) error {
	st := a.State
	if _, err := st.Session.Login.Dispatch(ctx, st.Store, state.LoginParams{ID: id, Password: password}).Unwrap(); err != nil {
		return err
	}
	if _, err := st.Session.FetchProfile.Dispatch(ctx, st.Store, state.FetchProfileParams{Force: true}).Unwrap(); err != nil {
		return err
	}
	return nil
}

// Logout ends the session. Local state is cleared even when the server call
// fails.
func (a *App) Logout(ctx context.Context) error {
	_, err := a.State.Session.Logout.Dispatch(ctx, a.State.Store, state.LogoutParams{}).Unwrap()
	return err
}

// Whoami writes the signed-in user, or "guest".
func (a *App) Whoami(w io.Writer) error {
	st := a.State
	if !cell.Get(st.Store, st.Session.IsAuthenticated) {
		_, err := fmt.Fprintln(w, "guest")
		return err
	}
	profile := cell.Get(st.Store, st.Session.Profile).Data
	_, err := fmt.Fprintf(w, "%s (%s)\n", profile.Nickname, cell.Get(st.Store, st.Session.CurrentUserID))
	return err
}

// ListTickets loads the user's tickets and writes them as a table followed
// by a summary line.
func (a *App) ListTickets(ctx context.Context, w io.Writer, status model.TicketStatus, force bool) error {
	st := a.State
	if !cell.Get(st.Store, st.Session.IsAuthenticated) {
		return ErrSignedOut
	}
	if _, err := st.MyTickets.Fetch.Dispatch(ctx, st.Store, state.FetchMyTicketsParams{Force: force}).Unwrap(); err != nil {
		return err
	}
	cell.Update(st.Store, st.MyTickets.Filter, func(f model.TicketFilter) model.TicketFilter {
		f.Status = status
		return f
	})

	var (
		tickets []*model.Ticket
		stats   model.TicketStats
	)
	st.Store.View(func(g cell.Getter) {
		tickets = cell.Get(g, st.MyTickets.Filtered)
		stats = cell.Get(g, st.MyTickets.Stats)(st.Now())
	})

	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []string{t.PerformedAt.Format(dateLayout), t.Title, t.Venue, string(t.Status)})
	}
	if err := writeTable(w, []string{"DATE", "TITLE", "VENUE", "STATUS"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d total, %d public, %d private, %d this month\n",
		stats.Total, stats.Public, stats.Private, stats.ThisMonth)
	return err
}

// ListFriends loads friends and pending requests and writes them.
func (a *App) ListFriends(ctx context.Context, w io.Writer, force bool) error {
	st := a.State
	if !cell.Get(st.Store, st.Session.IsAuthenticated) {
		return ErrSignedOut
	}
	if _, err := st.Friends.Fetch.Dispatch(ctx, st.Store, state.FetchFriendsParams{Force: force}).Unwrap(); err != nil {
		return err
	}
	if _, err := st.Friends.FetchReceived.Dispatch(ctx, st.Store, state.FetchReceivedParams{Force: force}).Unwrap(); err != nil {
		return err
	}

	var (
		friends  []*model.Friend
		received []*model.FriendRequest
	)
	st.Store.View(func(g cell.Getter) {
		friends = cell.Get(g, st.Friends.List)
		received = cell.Get(g, st.Friends.Received)
	})

	rows := make([][]string, 0, len(friends))
	for _, f := range friends {
		rows = append(rows, []string{f.Nickname, f.UserID, f.CreatedAt.Format(dateLayout)})
	}
	if err := writeTable(w, []string{"NICKNAME", "USER", "SINCE"}, rows); err != nil {
		return err
	}
	if len(received) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%d pending request(s)\n", len(received)); err != nil {
		return err
	}
	for _, r := range received {
		if _, err := fmt.Fprintf(w, "  %s  %s (%s)\n", r.ID, r.Nickname, r.CreatedAt.Format(dateLayout)); err != nil {
			return err
		}
	}
	return nil
}

// Answer accepts or rejects a received friend request.
func (a *App) Answer(ctx context.Context, requestID string, accept bool) error {
	st := a.State
	if !cell.Get(st.Store, st.Session.IsAuthenticated) {
		return ErrSignedOut
	}
	if _, err := st.Friends.FetchReceived.Dispatch(ctx, st.Store, state.FetchReceivedParams{}).Unwrap(); err != nil {
		return err
	}
	if accept {
		_, err := st.Friends.Accept.Dispatch(ctx, st.Store, state.AcceptRequestParams{RequestID: requestID}).Unwrap()
		return err
	}
	_, err := st.Friends.Reject.Dispatch(ctx, st.Store, state.RejectRequestParams{RequestID: requestID}).Unwrap()
	return err
}

// WriteMetrics writes the client metrics gathered so far in the Prometheus
// text exposition format.
func (a *App) WriteMetrics(w io.Writer) error {
	families, err := a.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "nothing to show")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
