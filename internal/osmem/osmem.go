// Package osmem reserves and releases anonymous read/write memory straight
// from the operating system, outside the Go heap.
//
// Memory returned by Map is zero filled and stays valid until it is passed to
// Unmap. Addresses are plain uintptr values; the Go garbage collector never
// scans or moves them.
package osmem

import "errors"

// ErrUnsupported is returned on platforms without an anonymous mapping primitive.
var ErrUnsupported = errors.New("osmem: anonymous mapping not supported on this platform")

// ErrMisaligned is returned when an aligned mapping could not be produced.
var ErrMisaligned = errors.New("osmem: could not obtain an aligned mapping")

// Placement describes how an aligned mapping was obtained.
type Placement int

const (
	// PlacedAtHint means the first mapping was already aligned.
	PlacedAtHint Placement = iota
	// PlacedByRetry means the first mapping was misaligned and the range was
	// re-requested at the next aligned address.
	PlacedByRetry
	// PlacedByTrim means an over-sized mapping was trimmed down to the aligned range.
	PlacedByTrim
)

// MapAligned maps size bytes whose start is a multiple of align. hint is the
// preferred address; it is advisory only. align must be a power of two.
func MapAligned(hint, size, align uintptr) (uintptr, Placement, error) {
	if align == 0 || align&(align-1) != 0 || size == 0 {
		return 0, 0, ErrMisaligned
	}
	addr, err := Map(hint, size)
	if err != nil {
		return 0, 0, err
	}
	if addr&(align-1) == 0 {
		return addr, PlacedAtHint, nil
	}
	if err := Unmap(addr, size); err != nil {
		return 0, 0, err
	}

	// One more try at the aligned address just above the misplaced mapping;
	// the kernel usually grows mappings contiguously so this often lands.
	next := (addr + align - 1) &^ (align - 1)
	addr, err = Map(next, size)
	if err != nil {
		return 0, 0, err
	}
	if addr&(align-1) == 0 {
		return addr, PlacedByRetry, nil
	}
	if err := Unmap(addr, size); err != nil {
		return 0, 0, err
	}

	addr, err = mapTrimmed(size, align)
	if err != nil {
		return 0, 0, err
	}
	return addr, PlacedByTrim, nil
}
