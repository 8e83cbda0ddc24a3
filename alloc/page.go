package alloc

import (
	"fmt"
	"sync/atomic"
)

// page is a run of equally sized blocks inside a segment. Everything except
// threadFree, heap and hasAligned belongs to the owning thread.
type page struct {
	free      uintptr // next block to hand out
	used      int     // blocks handed out, including those pending on threadFree
	localFree uintptr // blocks reclaimed from threadFree, merged into free when it runs dry
	blockSize uintptr
	capacity  int // blocks initialised so far
	reserved  int // blocks that fit in the page area
	start     uintptr
	key       uintptr // free-list encoding key
	cookie    uintptr
	isFull    bool

	next, prev *page

	segment *segment
	index   int
	inUse   bool // claimed from its segment

	threadFree atomic.Uintptr
	heap       atomic.Pointer[heap]
	hasAligned atomic.Bool // some block was handed out at an interior offset
}

// pageEmpty backs every direct-lookup slot with no real page. Its free list is
// always empty so the fast path falls through without a nil check.
var pageEmpty page

func (p *page) String() string {
	return fmt.Sprintf("page{seg=%#x idx=%d bs=%d used=%d cap=%d res=%d}",
		p.segment.base, p.index, p.blockSize, p.used, p.capacity, p.reserved)
}

// init prepares a freshly claimed page for blocks of blockSize owned by h.
func (p *page) init(h *heap, blockSize uintptr) {
	start, area := p.segment.pageArea(p.index)
	p.heap.Store(h)
	p.blockSize = blockSize
	p.start = start
	p.reserved = int(area / blockSize)
	if p.segment.kind == PageHuge {
		p.reserved = 1
	}
	assertf(p.reserved > 0, "page", "block size %d does not fit page area %d", blockSize, area)
	p.capacity = 0
	p.used = 0
	p.free = 0
	p.localFree = 0
	p.isFull = false
	p.next, p.prev = nil, nil
	p.threadFree.Store(0)
	p.hasAligned.Store(false)
	p.cookie = h.randomNext() | 1
	p.key = 0
	if h.tld.config.EncodeFreeList {
		p.key = p.cookie
	}
	p.extend(h.tld)
}

// reset forgets the page's blocks when it returns to its segment.
func (p *page) reset() {
	p.heap.Store(nil)
	p.threadFree.Store(0)
	p.hasAligned.Store(false)
	p.free, p.localFree = 0, 0
	p.used, p.capacity, p.reserved = 0, 0, 0
	p.blockSize, p.start, p.key, p.cookie = 0, 0, 0, 0
	p.isFull = false
	p.next, p.prev = nil, nil
}

// extend initialises up to Config.PageExtendBytes of further blocks, at least
// one, and pushes them onto free in address order.
func (p *page) extend(td *tld) {
	avail := p.reserved - p.capacity
	if avail <= 0 {
		return
	}
	n := int(uintptr(td.config.PageExtendBytes) / p.blockSize)
	n = max(1, min(n, avail))

	first := p.start + uintptr(p.capacity)*p.blockSize
	b := first
	for range n - 1 {
		next := b + p.blockSize
		p.setBlockNext(b, next)
		b = next
	}
	p.setBlockNext(b, p.free)
	p.free = first
	p.capacity += n
	td.stats.PagesExtended.increase(1)
}

// pop hands out the head of free. The caller checked free != 0.
func (p *page) pop() uintptr {
	b := p.free
	p.free = p.blockNext(b)
	p.used++
	return b
}

// collect pulls foreign frees in and refills free from localFree once free is
// exhausted.
func (p *page) collect() {
	p.collectThreadFree()
	if p.free == 0 && p.localFree != 0 {
		p.free = p.localFree
		p.localFree = 0
	}
}

// collectAll merges every reclaimable block into free.
func (p *page) collectAll() {
	p.collectThreadFree()
	if p.localFree == 0 {
		return
	}
	tail := p.localFree
	for next := p.blockNext(tail); next != 0; next = p.blockNext(tail) {
		tail = next
	}
	p.setBlockNext(tail, p.free)
	p.free = p.localFree
	p.localFree = 0
}

func (p *page) allFree() bool { return p.used == 0 }

// hasFree reports whether blocks can be handed out without extending.
func (p *page) hasFree() bool { return p.free != 0 || p.localFree != 0 }

// immediateAvailable reports whether the fast path would succeed.
func (p *page) immediateAvailable() bool { return p.free != 0 }

// mostlyUsed is the retire heuristic: a neighbour with at most an eighth of
// its blocks available. A missing neighbour counts as mostly used.
func (p *page) mostlyUsed() bool {
	return p == nil || p.reserved-p.used <= p.reserved/8
}

// checkInvariant validates the block accounting of p:
// live + pending + |free| + |localFree| == capacity, where used counts live
// and pending blocks.
func (p *page) checkInvariant() error {
	if p.capacity > p.reserved {
		return &InvariantError{Component: "page", Detail: fmt.Sprintf("%v: capacity above reserved", p)}
	}
	nfree, err := p.countList(p.free, p.capacity)
	if err != nil {
		return err
	}
	nlocal, err := p.countList(p.localFree, p.capacity)
	if err != nil {
		return err
	}
	pending, _, err := p.threadFreeCount()
	if err != nil {
		return err
	}
	if pending > p.used {
		return &InvariantError{Component: "page", Detail: fmt.Sprintf("%v: %d pending foreign frees exceed used", p, pending)}
	}
	if live := p.used - pending; live+pending+nfree+nlocal != p.capacity {
		return &InvariantError{Component: "page", Detail: fmt.Sprintf(
			"%v: live %d + pending %d + free %d + local %d != capacity", p, live, pending, nfree, nlocal)}
	}
	return nil
}
