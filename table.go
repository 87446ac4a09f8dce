package doublehash

import "sync/atomic"

type slotState uint8

const (
	// empty slots have not been used since this table was built.
	// A lookup that reaches one can stop.
	empty slotState = iota
	occupied
	// tombstone marks a slot whose key was deleted. Lookups and inserts
	// probe past it, and it is never reused within this table.
	tombstone
)

type slot[V any] struct {
	state slotState
	key   int32
	value V
}

// counters are shared by every table generation of a Map.
// They are updated by readers holding only the shared lock, so they are atomic.
type counters struct {
	gets           atomic.Int64
	getProbes      atomic.Int64 // slots visited by gets beyond the first
	resizes        atomic.Int64
	staleResizes   atomic.Int64
	exhaustedGrows atomic.Int64
	compactions    atomic.Int64
}

// table is a fixed length array of slots using open addressing with
// double hashing. It never grows itself and does no locking.
type table[V any] struct {
	slots      []slot[V]
	hashFunc   hashFunc
	stats      *counters
	live       int
	tombstones int
}

func newTable[V any](capacity int, hf hashFunc, stats *counters) *table[V] {
	if capacity < minCapacity {
		panic(errDegenerateCapacity(capacity))
	}
	return &table[V]{
		slots:    make([]slot[V], capacity),
		hashFunc: hf,
		stats:    stats,
	}
}

// lookup walks k's probe sequence: start, start+step, start+2*step, ...
// wrapping around the end of the slots.
//
// When forInsert is false it returns the index of the occupied slot
// holding k, or -1 once an empty slot is reached.
// When forInsert is true it returns the first empty slot or the occupied
// slot holding k, whichever comes first.
// Tombstones are always skipped. If the sequence comes back to its start
// without stopping, lookup returns -1.
//
// The returned probes is the number of slots visited.
func (t *table[V]) lookup(k int32, forInsert bool) (index int, probes int) {
	n := len(t.slots)
	start := int(t.hashFunc(k) % uint32(n))
	step := innerHash(n, k)

	index = start
	for {
		probes++
		s := &t.slots[index]
		switch s.state {
		case empty:
			if forInsert {
				return index, probes
			}
			return -1, probes
		case occupied:
			if s.key == k {
				return index, probes
			}
		}

		index += step
		if index >= n {
			index -= n
		}
		if index == start {
			// Visited every slot this step can reach.
			return -1, probes
		}
	}
}

func (t *table[V]) get(k int32) (v V, ok bool) {
	i, probes := t.lookup(k, false)
	t.stats.gets.Add(1)
	t.stats.getProbes.Add(int64(probes - 1))
	if i < 0 {
		return v, false
	}
	return t.slots[i].value, true
}

// insert stores v under k, overwriting any existing value.
// It reports false if k's probe sequence has neither k nor an empty slot,
// in which case the table is unchanged.
func (t *table[V]) insert(k int32, v V) bool {
	i, _ := t.lookup(k, true)
	if i < 0 {
		return false
	}
	s := &t.slots[i]
	if s.state == empty {
		t.live++
	}
	*s = slot[V]{state: occupied, key: k, value: v}
	return true
}

// delete turns the slot holding k into a tombstone, and reports whether
// there was one.
func (t *table[V]) delete(k int32) bool {
	i, _ := t.lookup(k, false)
	if i < 0 {
		return false
	}
	// Zero the value so the tombstone does not keep it reachable.
	t.slots[i] = slot[V]{state: tombstone}
	t.live--
	t.tombstones++
	return true
}

// rehash builds a new table of the given capacity holding every occupied
// slot of t. Tombstones are dropped. It reports false if some key could not
// be placed, which can happen when capacity and that key's step share a
// factor and the shorter cycle fills up.
func (t *table[V]) rehash(capacity int) (*table[V], bool) {
	nt := newTable[V](capacity, t.hashFunc, t.stats)
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != occupied {
			continue
		}
		if !nt.insert(s.key, s.value) {
			return nil, false
		}
	}
	return nt, true
}

// each calls f for every occupied slot in slot order.
func (t *table[V]) each(f func(k int32, v V)) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.state == occupied {
			f(s.key, s.value)
		}
	}
}
