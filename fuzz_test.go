package doublehash

import (
	"testing"

	"github.com/thepudds/fzgen/fuzzer"
)

// Fuzz_Map_Chain drives a validating map through a fuzzer-chosen sequence
// of operations. Any disagreement with the mirrored runtime map panics.
func Fuzz_Map_Chain(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var capacity byte
		var identity bool
		fz := fuzzer.NewFuzzer(data)
		fz.Fill(&capacity, &identity)

		hf := hashInt32
		if identity {
			// lumpier, and keys land in predictable slots
			hf = identityHash
		}
		vm := newVmap(capacity, hf)

		steps := []fuzzer.Step{
			{
				Name: "Fuzz_Map_Get",
				Func: func(k int32) {
					vm.Get(k)
				},
			},
			{
				Name: "Fuzz_Map_Insert",
				Func: func(k int32, v int64) {
					vm.Insert(k, v)
				},
			},
			{
				Name: "Fuzz_Map_Delete",
				Func: func(k int32) {
					vm.Delete(k)
				},
			},
			{
				Name: "Fuzz_Map_Len",
				Func: func() {
					vm.Len()
				},
			},
			{
				Name: "Fuzz_Map_Range",
				Func: func() {
					vm.Range()
				},
			},
			{
				Name: "Fuzz_Map_BulkInsert",
				Func: func(start, end int8, stride uint8) {
					vm.BulkInsert(keyRange{Start: start, End: end, Stride: stride})
				},
			},
			{
				Name: "Fuzz_Map_BulkDelete",
				Func: func(start, end int8, stride uint8) {
					vm.BulkDelete(keyRange{Start: start, End: end, Stride: stride})
				},
			},
		}

		// Execute a specific chain of steps, with the count, sequence and arguments controlled by fz.Chain
		fz.Chain(steps)

		vm.Range()
		vm.Len()
	})
}

// Fuzz_Map_ChainParallel runs a fuzzer-chosen chain with steps executing
// concurrently. There is no mirror to compare against, so it checks that
// values are never torn and relies on the race detector for the rest.
func Fuzz_Map_ChainParallel(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var capacity byte
		fz := fuzzer.NewFuzzer(data)
		fz.Fill(&capacity)

		target := New[int64](WithCapacity(int(capacity)))

		steps := []fuzzer.Step{
			{
				Name: "Fuzz_Map_Get",
				Func: func(k int32) {
					if v, ok := target.Get(k); ok && v != int64(k)*3 {
						t.Errorf("Map.Get(%d) = %d, want %d", k, v, int64(k)*3)
					}
				},
			},
			{
				Name: "Fuzz_Map_Insert",
				Func: func(k int32) {
					target.Insert(k, int64(k)*3)
				},
			},
			{
				Name: "Fuzz_Map_Delete",
				Func: func(k int32) {
					target.Delete(k)
				},
			},
			{
				Name: "Fuzz_Map_Keys",
				Func: func() []int32 {
					return target.Keys()
				},
			},
		}

		fz.Chain(steps, fuzzer.ChainParallel)
	})
}
