// Package apistate wraps remotely fetched data with its loading status, last
// error and fetch time, and decides when a fetch may be served from cache.
package apistate

import "time"

// Loading is the status of the most recent fetch.
type Loading string

const (
	Idle    Loading = "idle"
	Pending Loading = "loading"
	Done    Loading = "success"
	Failed  Loading = "error"
)

// CacheTTL is how long a successful fetch stays fresh.
const CacheTTL = 5 * time.Minute

// State is remote data together with its fetch status. HasData false means no
// data has been loaded; a zero LastFetch means no fetch has succeeded.
type State[T any] struct {
	Data      T
	HasData   bool
	Loading   Loading
	Err       string
	LastFetch time.Time
}

// Initial returns the empty idle state.
func Initial[T any]() State[T] {
	return State[T]{Loading: Idle}
}

// Reset is Initial under the name callers use when clearing data.
func Reset[T any]() State[T] {
	return Initial[T]()
}

// SetLoading marks a fetch in flight, keeping stale data and clearing the
// previous error.
func SetLoading[T any](s State[T]) State[T] {
	s.Loading = Pending
	s.Err = ""
	return s
}

// SetSuccess stores data fetched at now.
func SetSuccess[T any](s State[T], data T, now time.Time) State[T] {
	return State[T]{
		Data:      data,
		HasData:   true,
		Loading:   Done,
		LastFetch: now,
	}
}

// SetError records a failed fetch. Existing data and LastFetch are kept.
func SetError[T any](s State[T], message string) State[T] {
	s.Loading = Failed
	s.Err = message
	return s
}

// WithData replaces the data without touching status or LastFetch. It is used
// for optimistic local changes, which must not extend cache freshness.
func WithData[T any](s State[T], data T) State[T] {
	s.Data = data
	s.HasData = true
	return s
}

// IsLoading reports whether a fetch is in flight.
func (s State[T]) IsLoading() bool { return s.Loading == Pending }

// IsCacheValid reports whether a fetch at lastFetch is still fresh at now
// under CacheTTL. A zero lastFetch is never valid and the boundary is
// exclusive.
func IsCacheValid(lastFetch, now time.Time) bool {
	return isValid(lastFetch, now, CacheTTL)
}

func isValid(lastFetch, now time.Time, ttl time.Duration) bool {
	if lastFetch.IsZero() {
		return false
	}
	return now.Sub(lastFetch) < ttl
}

// Policy is an injectable cache policy.
type Policy struct {
	TTL time.Duration
	Now func() time.Time
}

// DefaultPolicy uses CacheTTL and the wall clock.
func DefaultPolicy() Policy {
	return Policy{TTL: CacheTTL, Now: time.Now}
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p Policy) ttl() time.Duration {
	if p.TTL <= 0 {
		return CacheTTL
	}
	return p.TTL
}

// Valid reports whether lastFetch is fresh under p.
func (p Policy) Valid(lastFetch time.Time) bool {
	return isValid(lastFetch, p.now(), p.ttl())
}

// Fresh reports whether s can be served without fetching: force is false, s
// has data and its LastFetch is still valid.
func Fresh[T any](p Policy, s State[T], force bool) bool {
	return !force && s.HasData && p.Valid(s.LastFetch)
}
