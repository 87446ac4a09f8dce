package doublehash

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Stats is a snapshot of a Map's counters.
type Stats struct {
	Gets      int64
	GetProbes int64 // slots visited by Get beyond the first

	Resizes int64
	// StaleResizes counts resizes skipped because another insert had
	// already grown the table.
	StaleResizes int64
	// ExhaustedGrows counts inserts that found no usable slot in their
	// probe cycle and grew the table to make room.
	ExhaustedGrows int64
	// Compactions counts inserts that found no usable slot and made room
	// by rebuilding the table at the same capacity without tombstones.
	Compactions int64
}

// Stats returns the Map's counters.
func (m *Map[V]) Stats() Stats {
	return Stats{
		Gets:           m.stats.gets.Load(),
		GetProbes:      m.stats.getProbes.Load(),
		Resizes:        m.stats.resizes.Load(),
		StaleResizes:   m.stats.staleResizes.Load(),
		ExhaustedGrows: m.stats.exhaustedGrows.Load(),
		Compactions:    m.stats.compactions.Load(),
	}
}

type keyValue[V any] struct {
	key   int32
	value V
}

func (m *Map[V]) snapshot() []keyValue[V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kvs := make([]keyValue[V], 0, m.table.live)
	m.table.each(func(k int32, v V) {
		kvs = append(kvs, keyValue[V]{k, v})
	})
	return kvs
}

// Range calls f for each key and value present in m, stopping if f returns
// false. The order is unspecified.
//
// Range works on a copy taken when it starts, so f may call any method of m.
// Changes made after Range starts are not seen.
func (m *Map[V]) Range(f func(k int32, v V) bool) {
	for _, kv := range m.snapshot() {
		if !f(kv.key, kv.value) {
			return
		}
	}
}

// Keys returns the keys present in m in increasing order.
func (m *Map[V]) Keys() []int32 {
	kvs := m.snapshot()
	keys := make([]int32, len(kvs))
	for i := range kvs {
		keys[i] = kvs[i].key
	}
	slices.Sort(keys)
	return keys
}

// String formats m as doublehash.Map[k:v k:v ...] with keys in increasing
// order.
func (m *Map[V]) String() string {
	if m == nil {
		return "doublehash.Map[]"
	}
	kvs := m.snapshot()
	index := make(map[int32]V, len(kvs))
	keys := make([]int32, len(kvs))
	for i, kv := range kvs {
		keys[i] = kv.key
		index[kv.key] = kv.value
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString("doublehash.Map[")
	for i, k := range keys {
		if i != 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%v", k, index[k])
	}
	b.WriteByte(']')
	return b.String()
}

// Equal reports whether m1 and m2 hold the same keys with equal values.
// Len is not compared, since it counts operations rather than keys.
func Equal[V comparable](m1, m2 *Map[V]) bool {
	return EqualFunc(m1, m2, func(a, b V) bool { return a == b })
}

// EqualFunc is like Equal, but compares values using eq.
func EqualFunc[V any](m1, m2 *Map[V], eq func(V, V) bool) bool {
	kvs := m1.snapshot()
	n := 0
	m2.Range(func(int32, V) bool {
		n++
		return true
	})
	if n != len(kvs) {
		return false
	}
	for _, kv := range kvs {
		v2, ok := m2.Get(kv.key)
		if !ok || !eq(kv.value, v2) {
			return false
		}
	}
	return true
}
