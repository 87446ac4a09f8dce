// Package doublehash provides Map, a thread-safe hash map from int32 keys
// to values of any type.
//
// Underneath there is a single fixed length table using open addressing
// with double hashing: a key starts at hash(key) mod capacity and, on a
// collision, advances by a per-key step of (key mod (capacity-1)) + 1,
// wrapping around the end of the table:
//
//	index, index+step, index+2*step, ...
//
// Deleted keys leave a tombstone behind so that later lookups for keys that
// probed past them still find their way. Tombstones are not reused for new
// inserts; they disappear when the table is rebuilt.
//
// When the number of inserts minus deletes reaches 80% of the capacity, the
// next Insert replaces the table with one twice as large, re-inserting the
// live entries.
//
// Note that Len counts operations, not keys: overwriting a key still
// increments it, and deleting an absent key still decrements it.
package doublehash

import (
	"sync"

	"go.uber.org/zap"
)

// Map is safe for concurrent use by multiple goroutines.
// The zero Map is not usable; create one with New.
type Map[V any] struct {
	// mu guards table, including its slots.
	mu    sync.RWMutex
	table *table[V]

	loadMu sync.Mutex
	load   int

	capMu    sync.Mutex
	capacity int

	initialCapacity int
	maxCapacity     int
	hashFunc        hashFunc
	logger          *zap.Logger
	stats           counters
}

// New returns an empty Map with capacity for 32 slots unless WithCapacity
// says otherwise.
func New[V any](opts ...Option) *Map[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	m := &Map[V]{
		capacity:        o.capacity,
		initialCapacity: o.capacity,
		maxCapacity:     o.maxCapacity,
		hashFunc:        o.hashFunc,
		logger:          o.logger,
	}
	m.table = newTable[V](o.capacity, m.hashFunc, &m.stats)
	return m
}

// Insert sets the value for k, overwriting any existing value.
func (m *Map[V]) Insert(k int32, v V) {
	// Decide on a resize with only the counters locked. Two inserts may both
	// decide to grow; the second sees a table larger than the capacity it
	// observed and leaves it alone.
	m.capMu.Lock()
	m.loadMu.Lock()
	capacity := m.capacity
	grow := m.load*5 >= capacity*4
	m.loadMu.Unlock()
	m.capMu.Unlock()

	if grow {
		m.resize(capacity)
		m.syncCapacity()
	}
	if m.store(k, v) {
		m.syncCapacity()
	}

	m.loadMu.Lock()
	m.load++
	m.loadMu.Unlock()
}

// store puts v under k, making room if every slot k's probe cycle can reach
// holds another key or a tombstone. It reports whether the table was
// replaced.
func (m *Map[V]) store(k int32, v V) (replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.table.insert(k, v) {
		replaced = true
		if m.table.tombstones > m.table.live && m.compactLocked() {
			continue
		}
		m.stats.exhaustedGrows.Add(1)
		m.logger.Warn("probe cycle exhausted, growing table",
			zap.Int32("key", k),
			zap.Int("capacity", len(m.table.slots)))
		m.growLocked()
	}
	return replaced
}

// Get returns the value stored for k and true, or the zero value of V and
// false if k is not present.
func (m *Map[V]) Get(k int32) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.get(k)
}

// Delete removes k. It does nothing to the contents if k is not present,
// but Len is decremented either way.
func (m *Map[V]) Delete(k int32) {
	m.mu.Lock()
	m.table.delete(k)
	m.mu.Unlock()

	m.loadMu.Lock()
	m.load--
	m.loadMu.Unlock()
}

// Len returns the number of Insert calls minus the number of Delete calls.
// This is only the number of keys present if no key was inserted twice and
// no absent key was deleted.
func (m *Map[V]) Len() int {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.load
}

// Cap returns the number of slots in the current table.
func (m *Map[V]) Cap() int {
	m.capMu.Lock()
	defer m.capMu.Unlock()
	return m.capacity
}

// Clear removes all keys and goes back to the initial capacity.
func (m *Map[V]) Clear() {
	m.capMu.Lock()
	defer m.capMu.Unlock()
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table = newTable[V](m.initialCapacity, m.hashFunc, &m.stats)
	m.capacity = m.initialCapacity
	m.load = 0
}

// resize doubles the table if it still has the capacity the caller
// observed, and returns the capacity of the table afterwards.
func (m *Map[V]) resize(observed int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.table.slots); n != observed {
		m.stats.staleResizes.Add(1)
		m.logger.Debug("skipping stale resize",
			zap.Int("observed", observed),
			zap.Int("capacity", n))
		return n
	}
	return m.growLocked()
}

// growLocked replaces the table with a rebuilt one at least twice as large
// and returns the new capacity. m.mu must be held for writing.
func (m *Map[V]) growLocked() int {
	old := m.table
	capacity := len(old.slots) * 2
	for {
		if capacity > m.maxCapacity {
			panic(errCapacityExhausted(len(old.slots)))
		}
		nt, ok := old.rehash(capacity)
		if ok {
			m.table = nt
			break
		}
		capacity *= 2
	}
	m.stats.resizes.Add(1)
	m.logger.Debug("resized table",
		zap.Int("from", len(old.slots)),
		zap.Int("to", capacity),
		zap.Int("live", m.table.live),
		zap.Int("tombstonesDropped", old.tombstones))
	return capacity
}

// compactLocked rebuilds the table at its current capacity, dropping
// tombstones, and reports whether every key fit. m.mu must be held for
// writing.
func (m *Map[V]) compactLocked() bool {
	old := m.table
	nt, ok := old.rehash(len(old.slots))
	if !ok {
		return false
	}
	m.table = nt
	m.stats.compactions.Add(1)
	m.logger.Debug("compacted table",
		zap.Int("capacity", len(nt.slots)),
		zap.Int("live", nt.live),
		zap.Int("tombstonesDropped", old.tombstones))
	return true
}

// syncCapacity copies the current table length into the capacity counter.
// Locks are taken in the same order as Clear: capMu, then mu.
func (m *Map[V]) syncCapacity() {
	m.capMu.Lock()
	defer m.capMu.Unlock()
	m.mu.RLock()
	m.capacity = len(m.table.slots)
	m.mu.RUnlock()
}
