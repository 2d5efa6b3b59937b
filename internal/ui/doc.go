// Package ui is the terminal view of ticketbook, built on Bubble Tea.
//
// The view never owns data. It subscribes to derived cells of a
// state.State and re-reads a snapshot whenever one of them changes, so
// writes made by the poller or the probe show up without a redraw request.
// User intents are dispatched as state actions.
//
// Backend failures arrive through the GlobalError cell and render as a
// banner. Retryable kinds offer R, which re-runs a forced refresh on the
// retry.Controller schedule; x dismisses the banner.
//
// Key bindings live in keys.go, colors in theme.go. The chosen theme, pane
// and visibility filter persist through the prefs package.
package ui
