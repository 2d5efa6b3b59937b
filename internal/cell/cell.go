package cell

import (
	"context"
	"sync"
)

// Getter reads cell values. *Store, *Tx and the argument handed to a derived
// computation all satisfy it.
type Getter interface {
	withPass(fn func(p *pass))
}

// Writer commits state cell values. *Store and *Tx satisfy it.
type Writer interface {
	Getter
	target() *Store
}

// Readable is any cell whose value can be read: state or derived.
type Readable[T any] interface {
	read(p *pass) T
}

// Resettable is a cell that can be restored to its initial value.
type Resettable interface {
	cellKey() key
}

// State is a writable cell with an initial value.
type State[T any] struct {
	key     key
	initial T
}

// NewState defines a state cell. The definition holds no data itself.
func NewState[T any](initial T) *State[T] {
	return &State[T]{key: newKey(), initial: initial}
}

func (c *State[T]) cellKey() key { return c.key }

func (c *State[T]) read(p *pass) T {
	p.track(c.key)
	return c.current(p.store)
}

// current must be called with the store lock held.
func (c *State[T]) current(s *Store) T {
	if v, ok := s.values[c.key]; ok {
		return v.(T)
	}
	return c.initial
}

func (c *State[T]) store(s *Store, v T) bool {
	if identical(any(c.current(s)), any(v)) {
		return false
	}
	return s.write(c.key, v)
}

// Derived is a read-only cell computed from other cells. Its value is cached
// per Store and recomputed on read when a state cell it read has changed.
type Derived[T any] struct {
	compute func(Getter) T

	mu     sync.Mutex
	caches map[*Store]*derivedCache[T]
}

type derivedCache[T any] struct {
	value T
	deps  map[key]uint64
}

// NewDerived defines a derived cell. compute must only read cells through g
// and must not have side effects.
func NewDerived[T any](compute func(g Getter) T) *Derived[T] {
	return &Derived[T]{compute: compute}
}

func (d *Derived[T]) read(p *pass) T {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.caches[p.store]
	if c == nil || p.stale(c.deps) {
		child := &pass{store: p.store, deps: make(map[key]uint64)}
		value := d.compute(child)
		c = &derivedCache[T]{value: value, deps: child.deps}
		if d.caches == nil {
			d.caches = make(map[*Store]*derivedCache[T])
		}
		d.caches[p.store] = c
	}
	p.merge(c.deps)
	return c.value
}

// Get reads the value of c from g.
func Get[T any](g Getter, c Readable[T]) T {
	var v T
	g.withPass(func(p *pass) { v = c.read(p) })
	return v
}

// Set stores v in c. Storing the identical value is not a change.
func Set[T any](w Writer, c *State[T], v T) {
	s := w.target()
	s.commit(func() bool { return c.store(s, v) })
}

// Update atomically replaces the value of c with fn(current). fn runs under
// the store's write lock and must not read or write other cells through the
// store.
func Update[T any](w Writer, c *State[T], fn func(T) T) T {
	s := w.target()
	var next T
	s.commit(func() bool {
		next = fn(c.current(s))
		return c.store(s, next)
	})
	return next
}

// Reset restores each cell to its initial value.
func Reset(w Writer, cells ...Resettable) {
	s := w.target()
	s.commit(func() bool {
		changed := false
		for _, c := range cells {
			if s.clear(c.cellKey()) {
				changed = true
			}
		}
		return changed
	})
}

// Tx is the capability handed to an action: it reads and writes the Store the
// action was dispatched on.
type Tx struct {
	store *Store
}

func (tx *Tx) withPass(fn func(p *pass)) { tx.store.withPass(fn) }
func (tx *Tx) target() *Store            { return tx.store }

// Store returns the store the action runs against.
func (tx *Tx) Store() *Store { return tx.store }

// Action is a write-only cell. Running it is the only way the state layer
// performs side effects.
type Action[P, R any] struct {
	run func(ctx context.Context, tx *Tx, params P) R
}

// NewAction defines an action cell.
func NewAction[P, R any](run func(ctx context.Context, tx *Tx, params P) R) *Action[P, R] {
	return &Action[P, R]{run: run}
}

// Dispatch runs the action against the store behind w and returns its result.
func (a *Action[P, R]) Dispatch(ctx context.Context, w Writer, params P) R {
	return a.run(ctx, &Tx{store: w.target()}, params)
}
