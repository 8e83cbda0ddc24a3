package alloc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/internal/osmem"
)

// reservedBytes is the process-wide total mapped from the OS, checked against
// Config.ReserveLimit.
var reservedBytes atomic.Int64

// ReservedBytes reports the bytes currently mapped by all threads.
func ReservedBytes() int64 { return reservedBytes.Load() }

// osTLD is a thread's cursor into the address space. Mapping right after the
// previous segment usually yields an aligned address on the first try.
type osTLD struct {
	mmapNextProbable uintptr
	mmapPrevious     uintptr
}

// alloc maps size bytes aligned to SegmentSize.
func (o *osTLD) alloc(td *tld, size uintptr) (uintptr, error) {
	n := int64(size)
	if n < 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrSizeOverflow, size)
	}
	total := reservedBytes.Add(n)
	if limit := td.config.ReserveLimit; limit > 0 && total > limit {
		reservedBytes.Add(-n)
		return 0, fmt.Errorf("%w: reserve limit %d reached", ErrOutOfMemory, limit)
	}

	addr, placement, err := osmem.MapAligned(o.mmapNextProbable, size, SegmentSize)
	td.stats.MmapCalls.increase(1)
	if err != nil {
		reservedBytes.Add(-n)
		if errors.Is(err, osmem.ErrUnsupported) {
			return 0, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return 0, fmt.Errorf("%w: mapping %d bytes: %v", ErrOutOfMemory, size, err)
	}
	switch placement {
	case osmem.PlacedByRetry:
		td.stats.MmapCalls.increase(1)
		td.stats.MmapRightAlign.increase(1)
	case osmem.PlacedByTrim:
		td.stats.MmapCalls.increase(2)
		td.stats.MmapEnsureAligned.increase(1)
	}
	o.mmapPrevious = addr
	o.mmapNextProbable = addr + size
	td.stats.Reserved.increase(n)
	return addr, nil
}

// free unmaps [addr, addr+size).
func (o *osTLD) free(td *tld, addr, size uintptr) {
	if err := osmem.Unmap(addr, size); err != nil {
		fail("os", "unmap %#x+%d: %v", addr, size, err)
	}
	if o.mmapPrevious == addr {
		o.mmapNextProbable = addr
	}
	reservedBytes.Add(-int64(size))
	td.stats.Reserved.decrease(int64(size))
}
