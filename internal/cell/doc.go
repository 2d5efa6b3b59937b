// Package cell implements a small reactive store built from three kinds of
// cells.
//
// # Cells
//
//   - State cells hold a value and are written with Set, Update or Reset.
//   - Derived cells compute a value from other cells. The value is cached per
//     Store and recomputed on read only when one of the state cells it read in
//     its last computation has a new version.
//   - Action cells are write-only. Dispatch runs them with a Tx that can read
//     and write the Store. Actions are the only place side effects happen.
//
// Cell definitions carry no data. All values live in a Store, so two Stores
// built from the same definitions never share state, which keeps tests
// independent of each other.
//
// # Consistency
//
// A top-level Get takes the Store's read lock once. Every derived cell read
// during that call, however deeply nested, observes the same snapshot. Writes
// take the write lock briefly and never run user code other than the update
// function given to Update.
//
// Writing a value that is identical to the current one (same map, pointer or
// slice identity, or == for comparable values) is not a change: the version
// stays the same, derived caches stay valid and subscribers are not called.
// Collections rely on this together with keyed.Put to make no-op updates free.
//
// # Subscriptions
//
// Subscribe registers a callback that runs on the writing goroutine after the
// write lock is released, once per committed write that changes the watched
// cell's value identity.
package cell
