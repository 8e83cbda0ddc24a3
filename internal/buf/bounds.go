// Package buf holds overflow-checked size arithmetic and slice clamping shared
// by the allocator and the descriptor helpers.
package buf

import "math/bits"

// AddOverflowSafe adds a and b, returning ok = false when the sum wraps.
func AddOverflowSafe(a, b uintptr) (uintptr, bool) {
	sum, carry := bits.Add(uint(a), uint(b), 0)
	return uintptr(sum), carry == 0
}

// MulOverflowSafe multiplies a and b, returning ok = false when the product wraps.
// Used for count * elementSize requests such as Calloc.
func MulOverflowSafe(a, b uintptr) (uintptr, bool) {
	hi, lo := bits.Mul(uint(a), uint(b))
	return uintptr(lo), hi == 0
}

// IsPowerOfTwo reports whether x is a non-zero power of two.
func IsPowerOfTwo(x uintptr) bool {
	return x != 0 && x&(x-1) == 0
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
// ok is false when align is not a power of two or the result wraps.
func AlignUp(n, align uintptr) (uintptr, bool) {
	if !IsPowerOfTwo(align) {
		return 0, false
	}
	sum, ok := AddOverflowSafe(n, align-1)
	if !ok {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// Limit truncates b to at most limit bytes. A negative limit means no limit.
func Limit(b []byte, limit int) []byte {
	if limit >= 0 && limit < len(b) {
		return b[:limit]
	}
	return b
}
