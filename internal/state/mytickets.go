package state

import (
	"context"
	"slices"
	"time"

	"github.com/five82/ticketbook/internal/apistate"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/validate"
)

type ticketList = apistate.State[[]*model.Ticket]

// MyTickets mirrors the signed-in user's tickets from the backend.
type MyTickets struct {
	State *cell.State[ticketList]

	// List is the fetched tickets, newest first.
	List     *cell.Derived[[]*model.Ticket]
	Filtered *cell.Derived[[]*model.Ticket]
	Stats    *cell.Derived[func(now time.Time) model.TicketStats]
	Loading  *cell.Derived[bool]
	Error    *cell.Derived[string]

	// Filter narrows Filtered. It is separate from the local collection's
	// filter.
	Filter *cell.State[model.TicketFilter]

	Fetch  *cell.Action[FetchMyTicketsParams, result.Result[[]*model.Ticket]]
	Create *cell.Action[CreateTicketParams, result.Result[*model.Ticket]]
	Update *cell.Action[UpdateTicketParams, result.Result[*model.Ticket]]
	Delete *cell.Action[DeleteTicketParams, result.Result[bool]]
}

type FetchMyTicketsParams struct {
	Force bool
}

func newMyTickets(e *env, s *Session, n *Network) *MyTickets {
	m := &MyTickets{
		State:  cell.NewState(apistate.Initial[[]*model.Ticket]()),
		Filter: cell.NewState(model.TicketFilter{}),
	}

	m.List = cell.NewDerived(func(g cell.Getter) []*model.Ticket {
		list := slices.Clone(cell.Get(g, m.State).Data)
		slices.SortStableFunc(list, model.NewestFirst)
		return list
	})
	m.Filtered = cell.NewDerived(func(g cell.Getter) []*model.Ticket {
		return ApplyFilter(cell.Get(g, m.List), cell.Get(g, m.Filter))
	})
	m.Stats = cell.NewDerived(func(g cell.Getter) func(time.Time) model.TicketStats {
		list := cell.Get(g, m.List)
		return func(now time.Time) model.TicketStats { return Stats(list, now) }
	})
	m.Loading = cell.NewDerived(func(g cell.Getter) bool {
		return cell.Get(g, m.State).IsLoading()
	})
	m.Error = cell.NewDerived(func(g cell.Getter) string {
		return cell.Get(g, m.State).Err
	})

	m.Fetch = action(func(ctx context.Context, tx *cell.Tx, p FetchMyTicketsParams) result.Result[[]*model.Ticket] {
		return fetch(ctx, tx, e, n, m.State, "my_tickets", p.Force, e.svc.MyTickets)
	})

	refetch := func(tx *cell.Tx) func(context.Context) bool {
		return func(ctx context.Context) bool {
			return m.Fetch.Dispatch(ctx, tx, FetchMyTicketsParams{Force: true}).OK()
		}
	}

	m.Create = action(func(ctx context.Context, tx *cell.Tx, p CreateTicketParams) result.Result[*model.Ticket] {
		if err := validate.CreateTicket(p.Ticket); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		now := e.now()
		temp := model.NewTicket(p.Ticket, model.TempID(now), cell.Get(tx, s.CurrentUserID), now)
		prev := cell.Get(tx, m.State)
		m.edit(tx, func(list []*model.Ticket) []*model.Ticket {
			return append([]*model.Ticket{temp}, list...)
		})

		res := e.svc.CreateTicket(ctx, p.Ticket)
		created, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			rollback(ctx, tx, e, m.State, prev, "my_tickets", res.Err(), refetch(tx))
			return res
		}
		m.edit(tx, func(list []*model.Ticket) []*model.Ticket {
			return replaceTicket(list, temp.ID, created)
		})
		return res
	})

	m.Update = action(func(ctx context.Context, tx *cell.Tx, p UpdateTicketParams) result.Result[*model.Ticket] {
		if err := validate.EntityID("id", p.ID); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		if err := validate.UpdateTicket(p.Patch); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		now := e.now()
		prev := cell.Get(tx, m.State)
		m.edit(tx, func(list []*model.Ticket) []*model.Ticket {
			i := slices.IndexFunc(list, func(tk *model.Ticket) bool { return tk.ID == p.ID })
			if i < 0 {
				return list
			}
			return replaceTicket(list, p.ID, list[i].Apply(p.Patch, now))
		})

		res := e.svc.UpdateTicket(ctx, p.ID, p.Patch)
		updated, ok := res.Value()
		if !ok {
			n.surface(tx, res.Err())
			rollback(ctx, tx, e, m.State, prev, "my_tickets", res.Err(), refetch(tx))
			return res
		}
		m.edit(tx, func(list []*model.Ticket) []*model.Ticket {
			return replaceTicket(list, p.ID, updated)
		})
		return res
	})

	m.Delete = action(func(ctx context.Context, tx *cell.Tx, p DeleteTicketParams) result.Result[bool] {
		if err := validate.EntityID("id", p.ID); err != nil {
			return result.Failure[bool](err)
		}
		prev := cell.Get(tx, m.State)
		m.edit(tx, func(list []*model.Ticket) []*model.Ticket {
			return slices.DeleteFunc(slices.Clone(list), func(tk *model.Ticket) bool { return tk.ID == p.ID })
		})

		if err := e.svc.DeleteTicket(ctx, p.ID).Err(); err != nil {
			n.surface(tx, err)
			rollback(ctx, tx, e, m.State, prev, "my_tickets", err, refetch(tx))
			return result.Failure[bool](err)
		}
		return result.Success(true)
	})

	return m
}

// edit replaces the ticket list optimistically. LastFetch is left alone so an
// optimistic change never extends freshness.
func (m *MyTickets) edit(tx *cell.Tx, fn func([]*model.Ticket) []*model.Ticket) {
	cell.Update(tx, m.State, func(s ticketList) ticketList {
		return apistate.WithData(s, fn(s.Data))
	})
}

// replaceTicket returns a copy of list with the ticket id swapped for tk, or
// tk prepended when id is absent.
func replaceTicket(list []*model.Ticket, id string, tk *model.Ticket) []*model.Ticket {
	i := slices.IndexFunc(list, func(cur *model.Ticket) bool { return cur.ID == id })
	if i < 0 {
		return append([]*model.Ticket{tk}, list...)
	}
	next := slices.Clone(list)
	next[i] = tk
	return next
}
