package alloc

import "runtime"

// The thread_free word packs the head of a lock-free stack of blocks freed by
// other threads with a two-bit delayed-free tag in its low bits. Blocks are
// word aligned so the low bits of a block address are always zero.
type delayedTag uintptr

const (
	// NoDelayedFree: foreign frees push onto the stack and nothing else.
	NoDelayedFree delayedTag = iota
	// UseDelayedFree: the page sits in the full queue; the first foreign free
	// flips the tag back and tells the owning heap to look at the page.
	UseDelayedFree
	// DelayedFreeing: the owner is splicing the stack. Foreign frees keep
	// pushing but leave the tag alone; the owner clears it.
	DelayedFreeing

	tagMask = uintptr(3)
)

func (t delayedTag) String() string {
	switch t {
	case NoDelayedFree:
		return "no-delayed-free"
	case UseDelayedFree:
		return "use-delayed-free"
	case DelayedFreeing:
		return "delayed-freeing"
	}
	return "invalid"
}

func pack(head uintptr, tag delayedTag) uintptr { return head | uintptr(tag) }

func unpack(w uintptr) (uintptr, delayedTag) { return w &^ tagMask, delayedTag(w & tagMask) }

// backoff is called after a failed CAS. A few immediate retries, then yield.
func backoff(spins *int) {
	*spins++
	if *spins > 4 {
		runtime.Gosched()
	}
}

// delayedNode carries a page notification on a heap's delayed-free stack.
type delayedNode struct {
	page *page
	next *delayedNode
}

// freeRemote pushes b onto the thread_free stack. Called by any thread other
// than the owner. A block is always pushed onto the page itself, so a missing
// or stale heap can only delay its reuse.
func (p *page) freeRemote(b uintptr) {
	spins := 0
	for {
		w := p.threadFree.Load()
		head, tag := unpack(w)
		p.setBlockNext(b, head)
		next := tag
		if tag == UseDelayedFree {
			next = NoDelayedFree
		}
		if p.threadFree.CompareAndSwap(w, pack(b, next)) {
			if tag == UseDelayedFree {
				p.notifyHeap()
			}
			return
		}
		backoff(&spins)
	}
}

// notifyHeap posts p on its owning heap's delayed-free stack. Only the freer
// that moved the tag off UseDelayedFree does this, so there is one post per
// stay in the full queue.
func (p *page) notifyHeap() {
	h := p.heap.Load()
	if h == nil {
		return
	}
	n := &delayedNode{page: p}
	spins := 0
	for {
		n.next = h.threadDelayedFree.Load()
		if h.threadDelayedFree.CompareAndSwap(n.next, n) {
			return
		}
		backoff(&spins)
	}
}

// collectThreadFree splices the thread_free stack into localFree. Owner only.
// The stack is detached under DelayedFreeing; pushes that race with the
// splice are picked up by another round before the tag is restored.
func (p *page) collectThreadFree() {
	w := p.threadFree.Load()
	if head, _ := unpack(w); head == 0 {
		return
	}
	restore := NoDelayedFree
	claimed := false
	spins := 0
	for {
		head, tag := unpack(w)
		if head == 0 {
			if p.threadFree.CompareAndSwap(w, pack(0, restore)) {
				return
			}
			w = p.threadFree.Load()
			backoff(&spins)
			continue
		}
		if !p.threadFree.CompareAndSwap(w, pack(0, DelayedFreeing)) {
			w = p.threadFree.Load()
			backoff(&spins)
			continue
		}
		if !claimed {
			claimed = true
			if tag != DelayedFreeing {
				restore = tag
			}
		}
		p.spliceLocal(head)
		w = p.threadFree.Load()
	}
}

// spliceLocal prepends a detached list to localFree and releases its blocks
// from the used count.
func (p *page) spliceLocal(head uintptr) {
	n := 1
	tail := head
	for next := p.blockNext(tail); next != 0; next = p.blockNext(tail) {
		tail = next
		n++
		if n > p.capacity {
			fail("page", "thread_free list longer than capacity %d", p.capacity)
		}
	}
	p.setBlockNext(tail, p.localFree)
	p.localFree = head
	p.used -= n
	if p.used < 0 {
		fail("page", "used went negative after splicing %d blocks", n)
	}
}

// trySetUseDelayedFree arms the notification for a page entering the full
// queue. It refuses while blocks are pending on thread_free; the caller
// should collect them instead.
func (p *page) trySetUseDelayedFree() bool {
	spins := 0
	for {
		w := p.threadFree.Load()
		head, tag := unpack(w)
		if head != 0 {
			return false
		}
		if tag == UseDelayedFree {
			return true
		}
		if p.threadFree.CompareAndSwap(w, pack(0, UseDelayedFree)) {
			return true
		}
		backoff(&spins)
	}
}

// clearUseDelayedFree disarms the notification, keeping any pending blocks.
func (p *page) clearUseDelayedFree() {
	spins := 0
	for {
		w := p.threadFree.Load()
		head, tag := unpack(w)
		if tag != UseDelayedFree {
			return
		}
		if p.threadFree.CompareAndSwap(w, pack(head, NoDelayedFree)) {
			return
		}
		backoff(&spins)
	}
}

// threadFreeCount counts pending foreign frees from one snapshot of the head.
// Only the owner unlinks blocks, so the snapshot list is stable.
func (p *page) threadFreeCount() (int, delayedTag, error) {
	head, tag := unpack(p.threadFree.Load())
	n, err := p.countList(head, p.capacity)
	return n, tag, err
}
