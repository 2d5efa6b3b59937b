package keyed

import (
	"reflect"
	"slices"
	"strings"
	"testing"
)

type item struct{ name string }

func TestPutReturnsSameMapForIdenticalValue(t *testing.T) {
	a := &item{name: "a"}
	m := map[string]*item{"a": a}

	if got := Put(m, "a", a); !sameMap(got, m) {
		t.Fatalf("Put with identical value returned a new map")
	}

	replacement := &item{name: "a"}
	got := Put(m, "a", replacement)
	if sameMap(got, m) {
		t.Fatalf("Put with new pointer reused the map")
	}
	if m["a"] != a {
		t.Fatalf("Put mutated the input map")
	}
	if got["a"] != replacement {
		t.Fatalf("Put did not store the replacement")
	}
}

func TestPutIntoNilMap(t *testing.T) {
	var m map[string]int
	got := Put(m, "x", 1)
	if got["x"] != 1 || len(got) != 1 {
		t.Fatalf("Put(nil) = %v", got)
	}
}

func TestDeleteReportsDeletedAndMissing(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3}
	next, deleted, missing := Delete(m, "a", "zz", "c")
	if !slices.Equal(deleted, []string{"a", "c"}) {
		t.Fatalf("deleted = %v", deleted)
	}
	if !slices.Equal(missing, []string{"zz"}) {
		t.Fatalf("missing = %v", missing)
	}
	if len(next) != 1 || next["b"] != 2 {
		t.Fatalf("next = %v", next)
	}
	if len(m) != 3 {
		t.Fatalf("Delete mutated input: %v", m)
	}

	same, _, _ := Delete(m, "nope")
	if !sameMap(same, m) {
		t.Fatalf("Delete with no hits returned a new map")
	}
}

func TestDeleteFunc(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2}
	if got := DeleteFunc(m, func(string, int) bool { return false }); !sameMap(got, m) {
		t.Fatalf("DeleteFunc without matches returned a new map")
	}
	got := DeleteFunc(m, func(_ string, v int) bool { return v == 2 })
	if len(got) != 1 || got["a"] != 1 || len(m) != 2 {
		t.Fatalf("DeleteFunc = %v, input = %v", got, m)
	}
}

func TestValuesSortedAndFilter(t *testing.T) {
	m := FromSlice([]*item{{"b"}, {"a"}, {"c"}}, func(i *item) string { return i.name })
	vals := Values(m, func(a, b *item) int { return strings.Compare(a.name, b.name) })
	var names []string
	for _, v := range vals {
		names = append(names, v.name)
	}
	if !slices.Equal(names, []string{"a", "b", "c"}) {
		t.Fatalf("Values order = %v", names)
	}
	kept := Filter(vals, func(i *item) bool { return i.name != "b" })
	if len(kept) != 2 || kept[0].name != "a" || kept[1].name != "c" {
		t.Fatalf("Filter = %v", kept)
	}
}

func sameMap[K comparable, V any](a, b map[K]V) bool {
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}
