package alloc

import "sync/atomic"

// The segment map resolves any address to the segment containing it: the
// address is masked to its SegmentSize unit and the unit index is looked up
// in a two-level radix table, like the runtime's heap arena index. Readers
// use plain atomic loads; only segment map and unmap write.
const (
	addrBits     = 32 + 16*(^uintptr(0)>>63) // user address space covered
	mapIndexBits = addrBits - SegmentShift
	mapL2Bits    = min(mapIndexBits, 16)
	mapL1Bits    = mapIndexBits - mapL2Bits
)

type segmentMapL2 [1 << mapL2Bits]atomic.Pointer[segment]

var segmentMap [1 << mapL1Bits]atomic.Pointer[segmentMapL2]

func mapIndex(addr uintptr) (uintptr, bool) {
	idx := addr >> SegmentShift
	return idx, idx < 1<<mapIndexBits
}

func mapL2(idx uintptr, create bool) *segmentMapL2 {
	slot := &segmentMap[idx>>mapL2Bits]
	l2 := slot.Load()
	if l2 == nil && create {
		slot.CompareAndSwap(nil, new(segmentMapL2))
		l2 = slot.Load()
	}
	return l2
}

// segmentMapSet registers every SegmentSize unit of s. Returns false when s
// lies outside the covered address space.
func segmentMapSet(s *segment) bool {
	first, ok := mapIndex(s.base)
	last, okLast := mapIndex(s.base + s.size - 1)
	if !ok || !okLast {
		return false
	}
	for idx := first; idx <= last; idx++ {
		mapL2(idx, true)[idx&(1<<mapL2Bits-1)].Store(s)
	}
	return true
}

// segmentMapClear removes s.
func segmentMapClear(s *segment) {
	first, _ := mapIndex(s.base)
	last, _ := mapIndex(s.base + s.size - 1)
	for idx := first; idx <= last; idx++ {
		if l2 := mapL2(idx, false); l2 != nil {
			l2[idx&(1<<mapL2Bits-1)].CompareAndSwap(s, nil)
		}
	}
}

// segmentOf returns the segment containing addr, or nil.
func segmentOf(addr uintptr) *segment {
	idx, ok := mapIndex(addr)
	if !ok {
		return nil
	}
	l2 := mapL2(idx, false)
	if l2 == nil {
		return nil
	}
	return l2[idx&(1<<mapL2Bits-1)].Load()
}
