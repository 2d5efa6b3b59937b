// Package app is the composition root of ticketbook.
//
// # Overview
//
// New loads configuration, opens token storage, builds the backend client and
// the reactive state, and restores a stored session. The App it returns backs
// both the one-shot commands (login, tickets, friends) and the terminal view.
//
// # Startup
//
//  1. Load config from defaults, ~/.config/ticketbook/config.toml and TICKETBOOK_* variables
//  2. Initialize the zerolog logger
//  3. Open the token store (file, badger or memory)
//  4. Register client metrics on a private Prometheus registry
//  5. Build the backend client; a 401 clears the session
//  6. Build state.State and the retry controller
//  7. Restore the stored session and load the profile
//
// # Background work
//
// Start runs two goroutines until its context is done:
//
//	┌──────────────────────────────────────────┐
//	│ retry.Probe                              │
//	│  └─> Client.Ping ─> Network.SetOnline    │
//	│        └─> back online ─> Refresh(force) │
//	├──────────────────────────────────────────┤
//	│ Poller                                   │
//	│  └─> Refresh(cached) every interval      │
//	└──────────────────────────────────────────┘
//
// A failed poll waits for the next tick. The terminal view's retry key runs
// the retry controller's backoff schedule.
//
// Refresh reads through the five-minute cache unless forced, so a poll
// against fresh data makes no request.
//
// # Errors
//
// Failures while building the App are returned from New. Failures during a
// refresh land in the state's error cells and the log; polling continues.
package app
