package cell

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestStateDefaultsAndSet(t *testing.T) {
	s := NewStore()
	count := NewState(3)

	if got := Get(s, count); got != 3 {
		t.Fatalf("initial = %d, want 3", got)
	}
	Set(s, count, 7)
	if got := Get(s, count); got != 7 {
		t.Fatalf("after Set = %d, want 7", got)
	}
	if got := Update(s, count, func(v int) int { return v + 1 }); got != 8 {
		t.Fatalf("Update returned %d, want 8", got)
	}
	Reset(s, count)
	if got := Get(s, count); got != 3 {
		t.Fatalf("after Reset = %d, want 3", got)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	name := NewState("init")
	upper := NewDerived(func(g Getter) string { return Get(g, name) + "!" })

	a, b := NewStore(), NewStore()
	Set(a, name, "a")

	if got := Get(a, upper); got != "a!" {
		t.Fatalf("store a derived = %q", got)
	}
	if got := Get(b, upper); got != "init!" {
		t.Fatalf("store b derived = %q, want init!", got)
	}
}

func TestDerivedRecomputesOnlyOnDependencyChange(t *testing.T) {
	s := NewStore()
	items := NewState(map[string]int{"a": 1})
	other := NewState(0)
	var computations atomic.Int32
	total := NewDerived(func(g Getter) int {
		computations.Add(1)
		sum := 0
		for _, v := range Get(g, items) {
			sum += v
		}
		return sum
	})

	if got := Get(s, total); got != 1 {
		t.Fatalf("total = %d, want 1", got)
	}
	_ = Get(s, total)
	Set(s, other, 5)
	_ = Get(s, total)
	if n := computations.Load(); n != 1 {
		t.Fatalf("computations = %d, want 1", n)
	}

	// Same map identity is not a change.
	m := Get(s, items)
	Set(s, items, m)
	_ = Get(s, total)
	if n := computations.Load(); n != 1 {
		t.Fatalf("computations after identical write = %d, want 1", n)
	}

	Set(s, items, map[string]int{"a": 1, "b": 2})
	if got := Get(s, total); got != 3 {
		t.Fatalf("total = %d, want 3", got)
	}
	if n := computations.Load(); n != 2 {
		t.Fatalf("computations = %d, want 2", n)
	}
}

func TestDerivedChainsTrackTransitiveDependencies(t *testing.T) {
	s := NewStore()
	base := NewState(2)
	double := NewDerived(func(g Getter) int { return Get(g, base) * 2 })
	var outer atomic.Int32
	plusOne := NewDerived(func(g Getter) int {
		outer.Add(1)
		return Get(g, double) + 1
	})

	if got := Get(s, plusOne); got != 5 {
		t.Fatalf("plusOne = %d, want 5", got)
	}
	Set(s, base, 10)
	if got := Get(s, plusOne); got != 21 {
		t.Fatalf("plusOne = %d, want 21", got)
	}
	_ = Get(s, plusOne)
	if n := outer.Load(); n != 2 {
		t.Fatalf("outer computations = %d, want 2", n)
	}
}

func TestActionDispatchReadsAndWrites(t *testing.T) {
	s := NewStore()
	counter := NewState(0)
	incr := NewAction(func(_ context.Context, tx *Tx, by int) int {
		Set(tx, counter, Get(tx, counter)+by)
		return Get(tx, counter)
	})
	twice := NewAction(func(ctx context.Context, tx *Tx, by int) int {
		incr.Dispatch(ctx, tx, by)
		return incr.Dispatch(ctx, tx, by)
	})

	if got := twice.Dispatch(context.Background(), s, 2); got != 4 {
		t.Fatalf("twice = %d, want 4", got)
	}
}

func TestSubscribeFiresOnChangeOnly(t *testing.T) {
	s := NewStore()
	flag := NewState(false)
	var seen []bool
	cancel := Subscribe(s, flag, func(v bool) { seen = append(seen, v) })

	Set(s, flag, false)
	Set(s, flag, true)
	Set(s, flag, true)
	cancel()
	Set(s, flag, false)

	if len(seen) != 1 || !seen[0] {
		t.Fatalf("seen = %v, want [true]", seen)
	}
}

func TestSubscriberMayWrite(t *testing.T) {
	s := NewStore()
	src := NewState(0)
	mirror := NewState(0)
	cancel := Subscribe(s, src, func(v int) { Set(s, mirror, v) })
	defer cancel()

	Set(s, src, 9)
	if got := Get(s, mirror); got != 9 {
		t.Fatalf("mirror = %d, want 9", got)
	}
}

func TestConcurrentUpdatesAreAtomic(t *testing.T) {
	s := NewStore()
	n := NewState(0)
	doubled := NewDerived(func(g Getter) int { return Get(g, n) * 2 })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Update(s, n, func(v int) int { return v + 1 })
			_ = Get(s, doubled)
		}()
	}
	wg.Wait()
	if got := Get(s, n); got != 50 {
		t.Fatalf("n = %d, want 50", got)
	}
	if got := Get(s, doubled); got != 100 {
		t.Fatalf("doubled = %d, want 100", got)
	}
}

func TestIdentical(t *testing.T) {
	m := map[string]int{}
	sl := []int{1, 2}
	p := &struct{}{}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"different maps", map[string]int{}, map[string]int{}, false},
		{"same slice", sl, sl, true},
		{"resliced", sl, sl[:1], false},
		{"same pointer", p, p, true},
		{"equal ints", 1, 1, true},
		{"different types", 1, int64(1), false},
		{"incomparable struct", struct{ s []int }{sl}, struct{ s []int }{sl}, false},
		{"nil nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := identical(tt.a, tt.b); got != tt.want {
				t.Fatalf("identical = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewReadsDerivedAndState(t *testing.T) {
	s := NewStore()
	a := NewState(2)
	double := NewDerived(func(g Getter) int { return Get(g, a) * 2 })
	Set(s, a, 5)

	var gotA, gotDouble int
	s.View(func(g Getter) {
		gotA = Get(g, a)
		gotDouble = Get(g, double)
	})
	if gotA != 5 || gotDouble != 10 {
		t.Fatalf("View read %d, %d; want 5, 10", gotA, gotDouble)
	}
}
