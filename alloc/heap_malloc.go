package alloc

import (
	"github.com/joshuapare/ntmalloc/internal/buf"
	"github.com/joshuapare/ntmalloc/internal/rawmem"
)

// heartbeatCollect is how many slow-path allocations pass between sweeps for
// pages emptied by foreign frees.
const heartbeatCollect = 1 << 14

// mallocFast pops from the page the direct-lookup table holds for size, or
// returns 0. size must be at most SmallSizeMax.
func (h *heap) mallocFast(size uintptr) uintptr {
	p := h.pagesFreeDirect[wsizeFromSize(size)]
	b := p.free
	if b != 0 {
		p.free = p.blockNext(b)
		p.used++
	}
	return b
}

func (h *heap) malloc(size uintptr) uintptr {
	if size <= SmallSizeMax {
		if b := h.mallocFast(size); b != 0 {
			return b
		}
	}
	return h.mallocGeneric(size)
}

// mallocGeneric is the slow path: handle delayed frees, find or make a page
// with a free block, and pop it. Returns 0 when memory is exhausted.
func (h *heap) mallocGeneric(size uintptr) uintptr {
	td := h.tld
	td.heartbeat++
	if td.heartbeat%heartbeatCollect == 0 {
		h.collect(collectNormal)
	}
	h.drainDelayed()

	if size > LargeSizeMax {
		return h.mallocHuge(size)
	}
	p := h.findFreePage(size)
	if p == nil {
		return 0
	}
	td.stats.Malloc.increase(int64(p.blockSize))
	return p.pop()
}

func (h *heap) findFreePage(size uintptr) *page {
	q := &h.pages[binFor(size)]
	if p := q.first; p != nil {
		p.collect()
		if p.immediateAvailable() {
			return p
		}
	}
	if p := h.queueFindFree(q); p != nil {
		return p
	}
	return h.pageFresh(q)
}

// queueFindFree walks q for a page that can serve an allocation, extending
// pages that still have uninitialised room and parking exhausted ones in the
// full queue.
func (h *heap) queueFindFree(q *pageQueue) *page {
	var found *page
	searched := int64(0)
	for p := q.first; p != nil; {
		next := p.next
		searched++
		p.collect()
		if p.immediateAvailable() {
			found = p
			break
		}
		if p.capacity < p.reserved {
			p.extend(h.tld)
			found = p
			break
		}
		if !h.pageToFull(p, q) {
			p.collect()
			if p.immediateAvailable() {
				found = p
				break
			}
		}
		p = next
	}
	h.tld.stats.Searches.add(searched)
	return found
}

// pageFresh gets a new page for q: first by adopting an abandoned segment,
// then from the thread's segments.
func (h *heap) pageFresh(q *pageQueue) *page {
	if !h.noReclaim && h.tld.segments.reclaim(h) {
		if p := h.queueFindFree(q); p != nil {
			return p
		}
	}
	p := h.tld.segments.pageAlloc(h.tld, q.blockSize, h.threadID)
	if p == nil {
		return nil
	}
	p.init(h, q.blockSize)
	h.tld.stats.Normal[binFor(q.blockSize)].increase(1)
	h.queuePush(q, p)
	return p
}

// mallocHuge gives size its own segment. Huge pages emptied by foreign frees
// are released first.
func (h *heap) mallocHuge(size uintptr) uintptr {
	q := &h.pages[BinHuge]
	for p := q.first; p != nil; {
		next := p.next
		p.collectThreadFree()
		if p.allFree() {
			h.pageFree(p)
		}
		p = next
	}
	bs, ok := buf.AlignUp(size, WordSize)
	if !ok {
		return 0
	}
	p := h.tld.segments.pageAlloc(h.tld, bs, h.threadID)
	if p == nil {
		return 0
	}
	p.init(h, bs)
	h.tld.stats.Normal[BinHuge].increase(1)
	h.queuePush(q, p)
	h.tld.stats.Huge.increase(int64(bs))
	return p.pop()
}

func (h *heap) zalloc(size uintptr) uintptr {
	b := h.malloc(size)
	if b != 0 {
		rawmem.Zero(b, size)
	}
	return b
}

func (h *heap) calloc(count, size uintptr) uintptr {
	total, ok := buf.MulOverflowSafe(count, size)
	if !ok {
		return 0
	}
	return h.zalloc(total)
}

// mallocAligned over-allocates by align-1 bytes and rounds up inside the
// block. The page is flagged so frees of the interior pointer find the block.
func (h *heap) mallocAligned(size, align uintptr) uintptr {
	if !buf.IsPowerOfTwo(align) {
		return 0
	}
	if align <= WordSize {
		return h.malloc(size)
	}
	total, ok := buf.AddOverflowSafe(size, align-1)
	if !ok {
		return 0
	}
	b := h.malloc(total)
	if b == 0 || b&(align-1) == 0 {
		return b
	}
	segmentOf(b).pageOf(b).hasAligned.Store(true)
	aligned, _ := buf.AlignUp(b, align)
	return aligned
}
