// Package compute provides the reduction backend behind the force kernel.
//
// Pair and triplet contributions are independent and only combine through
// addition, so the CPU backend hands each goroutine a private
// [Accumulator] and merges them in worker order once all chunks finish:
//
//	acc := compute.GetBackend().Reduce(len(bonds), nBead, dim,
//		func(start, end int, acc *compute.Accumulator) {
//			for b := start; b < end; b++ {
//				acc.AddPair(i, j, f, r)
//			}
//		})
//
// For a fixed worker count the merge order, and therefore the result, is
// deterministic.
package compute
