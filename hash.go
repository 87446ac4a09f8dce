package doublehash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// hashFunc produces the base hash for a key. The table reduces it
// modulo its capacity to pick the first slot of the probe sequence.
type hashFunc func(k int32) uint32

func hashInt32(k int32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(k))
	h := xxhash.Sum64(buf[:])
	return uint32(h) ^ uint32(h>>32)
}

// innerHash returns the distance between successive slots in k's probe
// sequence for a table of the given capacity: (k mod (capacity-1)) + 1.
// The modulo is non-negative, so the step is always in [1, capacity-1].
func innerHash(capacity int, k int32) int {
	if capacity < minCapacity {
		panic(errDegenerateCapacity(capacity))
	}
	m := int64(capacity - 1)
	r := int64(k) % m
	if r < 0 {
		r += m
	}
	return int(r) + 1
}
