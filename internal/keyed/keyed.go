// Package keyed holds copy-on-write helpers for the id-keyed maps that back
// entity collections. None of the helpers mutate their input.
package keyed

import (
	"maps"
	"slices"
)

// Put returns m with k set to v. If m already holds exactly v under k the
// original map is returned so identity-based change detection sees no write.
func Put[K comparable, V comparable](m map[K]V, k K, v V) map[K]V {
	if cur, ok := m[k]; ok && cur == v {
		return m
	}
	next := make(map[K]V, len(m)+1)
	maps.Copy(next, m)
	next[k] = v
	return next
}

// Delete returns a copy of m without keys. Keys present in m are reported in
// deleted and absent keys in missing, both in argument order. When nothing was
// deleted m itself is returned.
func Delete[K comparable, V any](m map[K]V, keys ...K) (next map[K]V, deleted, missing []K) {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			deleted = append(deleted, k)
		} else {
			missing = append(missing, k)
		}
	}
	if len(deleted) == 0 {
		return m, nil, missing
	}
	next = maps.Clone(m)
	for _, k := range deleted {
		delete(next, k)
	}
	return next, deleted, missing
}

// DeleteFunc returns a copy of m without the entries for which drop returns
// true, or m itself when no entry matches.
func DeleteFunc[K comparable, V any](m map[K]V, drop func(K, V) bool) map[K]V {
	var next map[K]V
	for k, v := range m {
		if !drop(k, v) {
			continue
		}
		if next == nil {
			next = maps.Clone(m)
		}
		delete(next, k)
	}
	if next == nil {
		return m
	}
	return next
}

// FromSlice builds a map from items keyed by key.
func FromSlice[K comparable, V any](items []V, key func(V) K) map[K]V {
	m := make(map[K]V, len(items))
	for _, item := range items {
		m[key(item)] = item
	}
	return m
}

// Values returns the values of m ordered by cmp. The result is a fresh slice.
func Values[K comparable, V any](m map[K]V, cmp func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// Filter returns the elements of items that match keep, preserving order.
func Filter[V any](items []V, keep func(V) bool) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
