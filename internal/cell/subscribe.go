package cell

import "sync"

type subscription struct {
	mu    sync.Mutex
	check func()
}

// Subscribe calls fn with the new value of c after every committed write that
// changes it. fn runs on the writing goroutine, outside the store lock. The
// returned cancel func stops delivery.
func Subscribe[T any](s *Store, c Readable[T], fn func(T)) (cancel func()) {
	last := Get[T](s, c)
	sub := &subscription{}
	sub.check = func() {
		v := Get[T](s, c)
		sub.mu.Lock()
		if identical(any(last), any(v)) {
			sub.mu.Unlock()
			return
		}
		last = v
		sub.mu.Unlock()
		fn(v)
	}

	s.subMu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]*subscription)
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = sub
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.check()
	}
}
