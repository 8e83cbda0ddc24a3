package alloc

import (
	"fmt"
	"sync/atomic"
)

// heap serves allocations for one thread. Only the owning thread allocates
// from it; any thread may free into its pages.
type heap struct {
	tld               *tld
	pagesFreeDirect   [SmallWsizeMax + 2]*page
	pages             [BinFull + 1]pageQueue
	threadDelayedFree atomic.Pointer[delayedNode]
	threadID          uintptr
	cookie            uintptr
	random            uintptr
	pageCount         int
	noReclaim         bool
}

// heapEmpty is the default heap of a thread that has not allocated yet. It
// owns no pages and is never written after package initialisation.
var heapEmpty heap

func (h *heap) initQueues() {
	for b := range h.pages {
		h.pages[b] = pageQueue{blockSize: binTable[b]}
	}
	for i := range h.pagesFreeDirect {
		h.pagesFreeDirect[i] = &pageEmpty
	}
}

func newHeap(td *tld, threadID uintptr) *heap {
	h := &heap{tld: td, threadID: threadID}
	h.initQueues()
	h.random = nextProcessRandom()
	h.cookie = h.randomNext() | 1
	return h
}

// drainDelayed handles pages that foreign frees reported while they sat in
// the full queue.
func (h *heap) drainDelayed() {
	if h.threadDelayedFree.Load() == nil {
		return
	}
	for n := h.threadDelayedFree.Swap(nil); n != nil; n = n.next {
		p := n.page
		if p.heap.Load() != h || !p.inUse {
			continue
		}
		p.collect()
		if p.isFull && p.hasFree() {
			h.pageUnfull(p)
		}
	}
}

// pageFree removes p from its queue and returns it to its segment.
func (h *heap) pageFree(p *page) {
	h.queueRemove(h.queueOf(p), p)
	if p.isFull {
		p.clearUseDelayedFree()
	}
	h.tld.segments.pageFree(h.tld, p)
}

// pageRetire frees a page whose last block was just freed, unless it is
// worth keeping: a small page whose neighbours are nearly full would only be
// re-acquired on the next allocation of its size.
func (h *heap) pageRetire(p *page) {
	if p.blockSize <= SmallSizeMax && !p.isFull && p.prev.mostlyUsed() && p.next.mostlyUsed() {
		return
	}
	h.pageFree(p)
}

type collectMode int

const (
	collectNormal  collectMode = iota // free empty pages
	collectAbandon                    // also abandon every live page
)

// collect sweeps every queue: foreign frees are merged, empty pages go back to
// their segments and, when abandoning, live pages are left for other threads.
func (h *heap) collect(mode collectMode) {
	h.drainDelayed()
	for b := range h.pages {
		q := &h.pages[b]
		for p := q.first; p != nil; {
			next := p.next
			p.collectAll()
			switch {
			case p.allFree():
				h.pageFree(p)
			case mode == collectAbandon:
				h.pageAbandon(q, p)
			case p.isFull && p.hasFree():
				h.pageUnfull(p)
			}
			p = next
		}
	}
}

// pageAbandon detaches a live page from h. Foreign frees keep landing on its
// thread_free list until another thread reclaims the segment.
func (h *heap) pageAbandon(q *pageQueue, p *page) {
	h.queueRemove(q, p)
	p.clearUseDelayedFree()
	p.isFull = false
	p.heap.Store(nil)
	h.tld.segments.pageAbandon(h.tld, p)
}

// absorb moves every page of from into h. Full pages are put back in their
// bins so no page depends on a notification posted to the retired heap.
func (h *heap) absorb(from *heap) {
	from.drainDelayed()
	for b := range from.pages {
		q := &from.pages[b]
		for p := q.first; p != nil; {
			next := p.next
			from.queueRemove(q, p)
			p.clearUseDelayedFree()
			p.isFull = false
			p.heap.Store(h)
			h.queueAppend(h.queueOf(p), p)
			p = next
		}
	}
}

// checkInvariants validates queue membership and every page of h.
func (h *heap) checkInvariants() error {
	count := 0
	for b := range h.pages {
		q := &h.pages[b]
		var prev *page
		for p := q.first; p != nil; p = p.next {
			count++
			if count > h.pageCount {
				return &InvariantError{Component: "heap", Detail: "queues hold more pages than pageCount"}
			}
			if p.prev != prev {
				return &InvariantError{Component: "heap", Detail: fmt.Sprintf("%v: broken prev link", p)}
			}
			if p.heap.Load() != h {
				return &InvariantError{Component: "heap", Detail: fmt.Sprintf("%v: queued in a heap it does not belong to", p)}
			}
			if (b == BinFull) != p.isFull {
				return &InvariantError{Component: "heap", Detail: fmt.Sprintf("%v: full flag disagrees with queue %d", p, b)}
			}
			if b != BinFull && binFor(p.blockSize) != b {
				return &InvariantError{Component: "heap", Detail: fmt.Sprintf("%v: queued in bin %d", p, b)}
			}
			if !p.inUse {
				return &InvariantError{Component: "heap", Detail: fmt.Sprintf("%v: queued but not claimed", p)}
			}
			if err := p.checkInvariant(); err != nil {
				return err
			}
			prev = p
		}
		if q.last != prev {
			return &InvariantError{Component: "heap", Detail: fmt.Sprintf("queue %d: last link stale", b)}
		}
	}
	if count != h.pageCount {
		return &InvariantError{Component: "heap", Detail: fmt.Sprintf("pageCount %d but %d pages queued", h.pageCount, count)}
	}
	for w, p := range h.pagesFreeDirect {
		if w > SmallWsizeMax {
			break
		}
		want := h.pages[binFor(uintptr(w)*WordSize)].first
		if want == nil {
			want = &pageEmpty
		}
		if p != want {
			return &InvariantError{Component: "heap", Detail: fmt.Sprintf("direct slot %d is stale", w)}
		}
	}
	return nil
}
