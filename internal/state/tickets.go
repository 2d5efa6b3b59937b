package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/keyed"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/validate"
)

// RecentWindow is how far back the recent tickets view reaches.
const RecentWindow = 7 * 24 * time.Hour

// Tickets is the locally held ticket collection keyed by id.
type Tickets struct {
	Map    *cell.State[map[string]*model.Ticket]
	Filter *cell.State[model.TicketFilter]

	List        *cell.Derived[[]*model.Ticket]
	Count       *cell.Derived[int]
	ByID        *cell.Derived[func(id string) (*model.Ticket, bool)]
	Public      *cell.Derived[[]*model.Ticket]
	Private     *cell.Derived[[]*model.Ticket]
	WithReviews *cell.Derived[[]*model.Ticket]
	WithImages  *cell.Derived[[]*model.Ticket]
	Filtered    *cell.Derived[[]*model.Ticket]
	// Recent returns the tickets created within RecentWindow of now.
	Recent *cell.Derived[func(now time.Time) []*model.Ticket]
	// Stats summarises the tickets as of now.
	Stats *cell.Derived[func(now time.Time) model.TicketStats]

	Add         *cell.Action[CreateTicketParams, result.Result[*model.Ticket]]
	Update      *cell.Action[UpdateTicketParams, result.Result[*model.Ticket]]
	Delete      *cell.Action[DeleteTicketParams, result.Result[bool]]
	BulkDelete  *cell.Action[BulkDeleteParams, result.Result[BulkDeleteReport]]
	SetFilter   *cell.Action[SetFilterParams, result.Result[model.TicketFilter]]
	ResetFilter *cell.Action[ResetFilterParams, result.Result[model.TicketFilter]]
	Search      *cell.Action[SearchTicketsParams, result.Result[model.TicketFilter]]
}

type CreateTicketParams struct {
	Ticket model.TicketDraft
}

type UpdateTicketParams struct {
	ID    string
	Patch model.TicketPatch
}

type DeleteTicketParams struct {
	ID string
}

type BulkDeleteParams struct {
	IDs []string
}

// BulkDeleteReport lists what a bulk delete removed and why the rest failed.
type BulkDeleteReport struct {
	Deleted []string
	Failed  map[string]*result.AppError
}

// SetFilterParams merges the non-zero fields of Filter into the current
// filter.
type SetFilterParams struct {
	Filter model.TicketFilter
}

type ResetFilterParams struct{}

type SearchTicketsParams struct {
	Text string
}

func newTickets(e *env, s *Session) *Tickets {
	t := &Tickets{
		Map:    cell.NewState(map[string]*model.Ticket{}),
		Filter: cell.NewState(model.TicketFilter{}),
	}

	t.List = cell.NewDerived(func(g cell.Getter) []*model.Ticket {
		return keyed.Values(cell.Get(g, t.Map), model.NewestFirst)
	})
	t.Count = cell.NewDerived(func(g cell.Getter) int {
		return len(cell.Get(g, t.Map))
	})
	t.ByID = cell.NewDerived(func(g cell.Getter) func(string) (*model.Ticket, bool) {
		m := cell.Get(g, t.Map)
		return func(id string) (*model.Ticket, bool) {
			tk, ok := m[id]
			return tk, ok
		}
	})
	t.Public = filteredView(t.List, func(tk *model.Ticket) bool { return tk.Status == model.StatusPublic })
	t.Private = filteredView(t.List, func(tk *model.Ticket) bool { return tk.Status == model.StatusPrivate })
	t.WithReviews = filteredView(t.List, (*model.Ticket).HasReview)
	t.WithImages = filteredView(t.List, (*model.Ticket).HasImages)
	t.Filtered = cell.NewDerived(func(g cell.Getter) []*model.Ticket {
		return ApplyFilter(cell.Get(g, t.List), cell.Get(g, t.Filter))
	})
	t.Recent = cell.NewDerived(func(g cell.Getter) func(time.Time) []*model.Ticket {
		list := cell.Get(g, t.List)
		return func(now time.Time) []*model.Ticket {
			cutoff := now.Add(-RecentWindow)
			return keyed.Filter(list, func(tk *model.Ticket) bool { return !tk.CreatedAt.Before(cutoff) })
		}
	})
	t.Stats = cell.NewDerived(func(g cell.Getter) func(time.Time) model.TicketStats {
		list := cell.Get(g, t.List)
		return func(now time.Time) model.TicketStats { return Stats(list, now) }
	})

	t.Add = action(func(_ context.Context, tx *cell.Tx, p CreateTicketParams) result.Result[*model.Ticket] {
		if err := validate.CreateTicket(p.Ticket); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		owner := cell.Get(tx, s.CurrentUserID)
		tk := model.NewTicket(p.Ticket, model.NewTicketID(), owner, e.now())

		var failed *result.AppError
		cell.Update(tx, t.Map, func(m map[string]*model.Ticket) map[string]*model.Ticket {
			if len(m) >= model.MaxTicketsPerUser {
				failed = result.Validation(fmt.Sprintf("at most %d tickets can be registered", model.MaxTicketsPerUser), "")
				return m
			}
			return keyed.Put(m, tk.ID, tk)
		})
		if failed != nil {
			return result.Failure[*model.Ticket](failed)
		}
		return result.Success(tk)
	})

	t.Update = action(func(_ context.Context, tx *cell.Tx, p UpdateTicketParams) result.Result[*model.Ticket] {
		if err := validate.EntityID("id", p.ID); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		if err := validate.UpdateTicket(p.Patch); err != nil {
			return result.Failure[*model.Ticket](err)
		}
		user := cell.Get(tx, s.CurrentUserID)
		now := e.now()

		var (
			updated *model.Ticket
			failed  *result.AppError
		)
		cell.Update(tx, t.Map, func(m map[string]*model.Ticket) map[string]*model.Ticket {
			cur, err := owned(m, p.ID, user, "update ticket")
			if err != nil {
				failed = err
				return m
			}
			updated = cur.Apply(p.Patch, now)
			return keyed.Put(m, p.ID, updated)
		})
		if failed != nil {
			return result.Failure[*model.Ticket](failed)
		}
		return result.Success(updated)
	})

	t.Delete = action(func(_ context.Context, tx *cell.Tx, p DeleteTicketParams) result.Result[bool] {
		if err := validate.EntityID("id", p.ID); err != nil {
			return result.Failure[bool](err)
		}
		user := cell.Get(tx, s.CurrentUserID)

		var failed *result.AppError
		cell.Update(tx, t.Map, func(m map[string]*model.Ticket) map[string]*model.Ticket {
			if _, err := owned(m, p.ID, user, "delete ticket"); err != nil {
				failed = err
				return m
			}
			next, _, _ := keyed.Delete(m, p.ID)
			return next
		})
		if failed != nil {
			return result.Failure[bool](failed)
		}
		return result.Success(true)
	})

	t.BulkDelete = action(func(_ context.Context, tx *cell.Tx, p BulkDeleteParams) result.Result[BulkDeleteReport] {
		if len(p.IDs) == 0 {
			return result.Failure[BulkDeleteReport](result.Validation("no tickets selected", "ids"))
		}
		user := cell.Get(tx, s.CurrentUserID)

		var report BulkDeleteReport
		cell.Update(tx, t.Map, func(m map[string]*model.Ticket) map[string]*model.Ticket {
			report = BulkDeleteReport{Failed: map[string]*result.AppError{}}
			allowed := make([]string, 0, len(p.IDs))
			for _, id := range p.IDs {
				if _, err := owned(m, id, user, "delete ticket"); err != nil {
					report.Failed[id] = err
					continue
				}
				allowed = append(allowed, id)
			}
			next, deleted, _ := keyed.Delete(m, allowed...)
			report.Deleted = deleted
			return next
		})
		return result.Success(report)
	})

	t.SetFilter = action(func(_ context.Context, tx *cell.Tx, p SetFilterParams) result.Result[model.TicketFilter] {
		if p.Filter.Status != "" && !p.Filter.Status.Valid() {
			return result.Failure[model.TicketFilter](result.Validation(fmt.Sprintf("status %q is not one of PUBLIC, PRIVATE", p.Filter.Status), "status"))
		}
		return result.Success(cell.Update(tx, t.Filter, func(cur model.TicketFilter) model.TicketFilter {
			return mergeFilter(cur, p.Filter)
		}))
	})

	t.ResetFilter = action(func(_ context.Context, tx *cell.Tx, _ ResetFilterParams) result.Result[model.TicketFilter] {
		cell.Reset(tx, t.Filter)
		return result.Success(model.TicketFilter{})
	})

	t.Search = action(func(_ context.Context, tx *cell.Tx, p SearchTicketsParams) result.Result[model.TicketFilter] {
		return result.Success(cell.Update(tx, t.Filter, func(cur model.TicketFilter) model.TicketFilter {
			cur.SearchText = p.Text
			return cur
		}))
	})

	return t
}

// owned returns m[id] if it exists and belongs to user.
func owned(m map[string]*model.Ticket, id, user, op string) (*model.Ticket, *result.AppError) {
	tk, ok := m[id]
	if !ok {
		return nil, result.NotFound("ticket", id)
	}
	if tk.UserID != user {
		return nil, result.PermissionDenied(op)
	}
	return tk, nil
}

func filteredView(list *cell.Derived[[]*model.Ticket], keep func(*model.Ticket) bool) *cell.Derived[[]*model.Ticket] {
	return cell.NewDerived(func(g cell.Getter) []*model.Ticket {
		return keyed.Filter(cell.Get(g, list), keep)
	})
}

func mergeFilter(cur, next model.TicketFilter) model.TicketFilter {
	if next.Status != "" {
		cur.Status = next.Status
	}
	if next.Genre != "" {
		cur.Genre = next.Genre
	}
	if !next.From.IsZero() {
		cur.From = next.From
	}
	if !next.To.IsZero() {
		cur.To = next.To
	}
	if next.SearchText != "" {
		cur.SearchText = next.SearchText
	}
	return cur
}

// ApplyFilter returns the tickets matching f in their original order. The
// date range is inclusive and applies to PerformedAt; search text matches
// title, artist or venue case-insensitively.
func ApplyFilter(tickets []*model.Ticket, f model.TicketFilter) []*model.Ticket {
	if f.IsZero() {
		return tickets
	}
	search := strings.ToLower(strings.TrimSpace(f.SearchText))
	return keyed.Filter(tickets, func(tk *model.Ticket) bool {
		switch {
		case f.Status != "" && tk.Status != f.Status:
			return false
		case f.Genre != "" && tk.Genre != f.Genre:
			return false
		case !f.From.IsZero() && tk.PerformedAt.Before(f.From):
			return false
		case !f.To.IsZero() && tk.PerformedAt.After(f.To):
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(tk.Title), search) ||
			strings.Contains(strings.ToLower(tk.Artist), search) ||
			strings.Contains(strings.ToLower(tk.Venue), search)
	})
}

// Stats summarises tickets. ThisMonth and ThisYear count performances in the
// calendar month and year of now, in now's location.
func Stats(tickets []*model.Ticket, now time.Time) model.TicketStats {
	year, month, _ := now.Date()

	st := model.TicketStats{Total: len(tickets), ByGenre: map[string]int{}}
	for _, tk := range tickets {
		switch tk.Status {
		case model.StatusPublic:
			st.Public++
		case model.StatusPrivate:
			st.Private++
		}
		if tk.HasReview() {
			st.WithReviews++
		}
		if tk.HasImages() {
			st.WithImages++
		}
		if y, m, _ := tk.PerformedAt.In(now.Location()).Date(); y == year {
			st.ThisYear++
			if m == month {
				st.ThisMonth++
			}
		}
		if tk.Genre != "" {
			st.ByGenre[tk.Genre]++
		}
	}
	return st
}
