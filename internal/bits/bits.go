// Package bits provides low-level range arithmetic shared by the table
// builder and the spot-check sampler.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// SplitRange partitions [0, n) into parts contiguous, disjoint ranges
// whose sizes differ by at most one. It returns parts+1 boundaries:
// range i is [b[i], b[i+1]). parts must be positive.
func SplitRange(n, parts int) []int {
	if parts <= 0 {
		panic("bits: SplitRange with non-positive parts")
	}
	b := make([]int, parts+1)
	for i := range b {
		hi, lo := bits.Mul64(uint64(n), uint64(i))
		q, _ := bits.Div64(hi, lo, uint64(parts))
		b[i] = int(q)
	}
	return b
}

// CeilDiv returns ceil(a / b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
