package cell

import (
	"reflect"
	"sync"
	"sync/atomic"
)

type key uint64

var lastKey atomic.Uint64

func newKey() key { return key(lastKey.Add(1)) }

// Store holds the current value of every state cell. Cell definitions are
// plain values; only the Store carries mutable data, so separate Stores are
// fully isolated. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	values   map[key]any
	versions map[key]uint64

	subMu   sync.Mutex
	subs    map[uint64]*subscription
	nextSub uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) withPass(fn func(p *pass)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&pass{store: s})
}

func (s *Store) target() *Store { return s }

// View runs fn with a Getter that reads one consistent version of the store.
// fn must not write.
func (s *Store) View(fn func(g Getter)) {
	s.withPass(func(p *pass) { fn(p) })
}

// commit applies fn under the write lock and notifies subscribers when any
// cell changed.
func (s *Store) commit(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// write stores v for k and bumps its version. It must run under the write
// lock; callers have already ruled out identical values.
func (s *Store) write(k key, v any) bool {
	if s.values == nil {
		s.values = make(map[key]any)
		s.versions = make(map[key]uint64)
	}
	s.values[k] = v
	s.versions[k]++
	return true
}

func (s *Store) clear(k key) bool {
	if _, ok := s.values[k]; !ok {
		return false
	}
	delete(s.values, k)
	s.versions[k]++
	return true
}

// pass is one consistent read of the store. All reads through a pass happen
// under the single read lock taken by Store.withPass.
type pass struct {
	store *Store
	deps  map[key]uint64
}

func (p *pass) withPass(fn func(p *pass)) { fn(p) }

func (p *pass) track(k key) {
	if p.deps == nil {
		return
	}
	p.deps[k] = p.store.versions[k]
}

func (p *pass) merge(deps map[key]uint64) {
	if p.deps == nil {
		return
	}
	for k, v := range deps {
		p.deps[k] = v
	}
}

func (p *pass) stale(deps map[key]uint64) bool {
	for k, v := range deps {
		if p.store.versions[k] != v {
			return true
		}
	}
	return false
}

// identical reports whether a and b are the same value for change detection.
// Reference kinds compare by identity, comparable values by ==.
func identical(a, b any) (same bool) {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}
	if !va.Type().Comparable() {
		return false
	}
	// Interface fields can hold incomparable dynamic values.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
