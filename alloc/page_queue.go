package alloc

// pageQueue is a doubly linked list of pages of one bin.
type pageQueue struct {
	first, last *page
	blockSize   uintptr
}

func (q *pageQueue) isEmpty() bool { return q.first == nil }

func (q *pageQueue) contains(p *page) bool {
	for x := q.first; x != nil; x = x.next {
		if x == p {
			return true
		}
	}
	return false
}

// isOnly reports whether p is the only page in its queue.
func (q *pageQueue) isOnly(p *page) bool {
	return q.first == p && q.last == p
}

// queueOf returns the queue p belongs to in h.
func (h *heap) queueOf(p *page) *pageQueue {
	if p.isFull {
		return &h.pages[BinFull]
	}
	return &h.pages[binFor(p.blockSize)]
}

// queueFirstUpdate refreshes the direct-lookup slots served by q after its
// head changed. Every word size that maps to q's bin points at the new head.
func (h *heap) queueFirstUpdate(q *pageQueue) {
	if q.blockSize > SmallSizeMax {
		return
	}
	idx := wsizeFromSize(q.blockSize)
	pg := q.first
	if pg == nil {
		pg = &pageEmpty
	}
	if h.pagesFreeDirect[idx] == pg {
		return
	}
	var start uintptr
	if idx > 1 {
		bin := binFor(q.blockSize)
		start = wsizeFromSize(binTable[bin-1]) + 1
		if start > idx {
			start = idx
		}
	}
	for sz := start; sz <= idx; sz++ {
		h.pagesFreeDirect[sz] = pg
	}
}

// queuePush adds p at the head of q.
func (h *heap) queuePush(q *pageQueue, p *page) {
	p.prev = nil
	p.next = q.first
	if q.first != nil {
		q.first.prev = p
	} else {
		q.last = p
	}
	q.first = p
	h.pageCount++
	h.queueFirstUpdate(q)
}

// queueAppend adds p at the tail of q.
func (h *heap) queueAppend(q *pageQueue, p *page) {
	p.next = nil
	p.prev = q.last
	if q.last != nil {
		q.last.next = p
	} else {
		q.first = p
	}
	q.last = p
	h.pageCount++
	if q.first == p {
		h.queueFirstUpdate(q)
	}
}

// queueRemove unlinks p from q.
func (h *heap) queueRemove(q *pageQueue, p *page) {
	if p.prev != nil {
		p.prev.next = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
	if p == q.last {
		q.last = p.prev
	}
	wasFirst := p == q.first
	if wasFirst {
		q.first = p.next
	}
	p.next, p.prev = nil, nil
	h.pageCount--
	if wasFirst {
		h.queueFirstUpdate(q)
	}
}

// queueMove unlinks p from one queue and appends it to another.
func (h *heap) queueMove(to, from *pageQueue, p *page) {
	h.queueRemove(from, p)
	h.queueAppend(to, p)
}

// pageToFull parks p in the full queue with the foreign-free notification
// armed. It returns false, leaving p in place, when foreign frees are
// already pending; the caller collects them instead.
func (h *heap) pageToFull(p *page, q *pageQueue) bool {
	if p.isFull {
		return true
	}
	if !p.trySetUseDelayedFree() {
		return false
	}
	h.queueMove(&h.pages[BinFull], q, p)
	p.isFull = true
	return true
}

// pageUnfull returns p from the full queue to its bin.
func (h *heap) pageUnfull(p *page) {
	if !p.isFull {
		return
	}
	p.clearUseDelayedFree()
	full := &h.pages[BinFull]
	p.isFull = false
	h.queueMove(h.queueOf(p), full, p)
}
