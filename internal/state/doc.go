// Package state is the client state layer: entity collections, the views
// derived from them, and the action cells that change them.
//
// # Overview
//
// A State bundles the cell definitions for one signed-in client together with
// the cell.Store holding their values. Nothing here is package-global; tests
// build as many independent States as they need.
//
//	st := state.New(state.Deps{Service: client, Tokens: store, Logger: log})
//	res := st.Tickets.Add.Dispatch(ctx, st.Store, state.CreateTicketParams{Ticket: draft})
//	list := cell.Get(st.Store, st.Tickets.List)
//
// # Groups
//
//   - Session: auth token pair, profile and settings, CurrentUserID
//   - Tickets: the local ticket collection with filter, stats and bulk delete
//   - MyTickets: the signed-in user's tickets mirrored from the backend
//   - Friends: friends, friend requests, friendships and the friend tickets
//     cache, with local and backend-backed actions
//   - Network: reachability, global loading and the last surfaced error
//
// # Actions
//
// Every action returns a result.Result and never panics; a panic inside an
// action becomes an UNKNOWN failure. Local actions validate, look the entity
// up (NOT_FOUND), check ownership against CurrentUserID (PERMISSION_DENIED)
// and commit a copy-on-write map.
//
// Backend-backed writes are optimistic. The local snapshot changes first, the
// backend call follows, and a failure forces a refetch that replaces the
// optimistic data with the server's. If the refetch fails too the snapshot
// taken before the change is restored.
//
// Fetch actions serve cached data while it is fresh under the cache policy
// unless Force is set.
//
// # Concurrency
//
// Commits are atomic per cell but nothing serializes two actions on the same
// entity: the last commit wins.
package state
