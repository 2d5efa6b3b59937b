package ui

import (
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/state"
)

// snapshot is the part of the store the view renders, read in one pass.
type snapshot struct {
	User          string
	Authenticated bool
	Online        bool
	Loading       bool
	Err           *result.AppError

	Tickets []*model.Ticket
	Total   int
	Stats   model.TicketStats
	Filter  model.TicketFilter

	Friends  []*model.Friend
	Received []*model.FriendRequest
	Sent     []*model.FriendRequest
}

func readSnapshot(st *state.State, friendQuery string) snapshot {
	var snap snapshot
	st.Store.View(func(g cell.Getter) {
		snap = snapshot{
			User:          cell.Get(g, st.Session.CurrentUserID),
			Authenticated: cell.Get(g, st.Session.IsAuthenticated),
			Online:        cell.Get(g, st.Network.Online),
			Loading:       cell.Get(g, st.Network.GlobalLoading),
			Err:           cell.Get(g, st.Network.GlobalError),
			Tickets:       cell.Get(g, st.MyTickets.Filtered),
			Total:         len(cell.Get(g, st.MyTickets.List)),
			Stats:         cell.Get(g, st.MyTickets.Stats)(st.Now()),
			Filter:        cell.Get(g, st.MyTickets.Filter),
			Friends:       cell.Get(g, st.Friends.Search)(friendQuery),
			Received:      cell.Get(g, st.Friends.Received),
			Sent:          cell.Get(g, st.Friends.Sent),
		}
	})
	return snap
}

// rows is the number of selectable rows in view v.
func (s snapshot) rows(v View) int {
	if v == ViewFriends {
		return len(s.Received) + len(s.Friends)
	}
	return len(s.Tickets)
}

// retryable reports whether err is worth retrying unchanged.
func retryable(err *result.AppError) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case result.KindNetwork, result.KindTimeout, result.KindServer, result.KindUnknown:
		return true
	}
	return false
}
