package state

import (
	"context"

	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/result"
)

// Network holds process-wide status cells.
type Network struct {
	// Online is written by the reachability probe. It starts true.
	Online *cell.State[bool]
	// GlobalError is the last backend failure to show the user.
	GlobalError *cell.State[*result.AppError]
	// GlobalLoading is true while any backend fetch is in flight.
	GlobalLoading *cell.Derived[bool]

	SetOnline    *cell.Action[SetOnlineParams, result.Result[bool]]
	DismissError *cell.Action[DismissErrorParams, result.Result[bool]]
}

type SetOnlineParams struct {
	Online bool
}

type DismissErrorParams struct{}

func newNetwork() *Network {
	n := &Network{
		Online:      cell.NewState(true),
		GlobalError: cell.NewState[*result.AppError](nil),
	}
	n.SetOnline = action(func(_ context.Context, tx *cell.Tx, p SetOnlineParams) result.Result[bool] {
		cell.Set(tx, n.Online, p.Online)
		return result.Success(p.Online)
	})
	n.DismissError = action(func(_ context.Context, tx *cell.Tx, _ DismissErrorParams) result.Result[bool] {
		cell.Reset(tx, n.GlobalError)
		return result.Success(true)
	})
	return n
}

// bind defines the views that span groups.
func (n *Network) bind(st *State) {
	n.GlobalLoading = cell.NewDerived(func(g cell.Getter) bool {
		return cell.Get(g, st.MyTickets.State).IsLoading() ||
			cell.Get(g, st.Friends.Remote).IsLoading() ||
			cell.Get(g, st.Friends.ReceivedRemote).IsLoading() ||
			cell.Get(g, st.Friends.SentRemote).IsLoading() ||
			cell.Get(g, st.Session.Profile).IsLoading() ||
			cell.Get(g, st.Session.Settings).IsLoading()
	})
}

// surface publishes err unless it is a local input error.
func (n *Network) surface(w cell.Writer, err *result.AppError) {
	if err == nil || err.Kind == result.KindValidation {
		return
	}
	cell.Set(w, n.GlobalError, err)
}
