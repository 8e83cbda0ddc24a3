package alloc

import "github.com/joshuapare/ntmalloc/internal/rawmem"

// lookup resolves a block address to its segment and page. An address outside
// every segment is an invariant violation: it was never handed out here.
func lookup(addr uintptr) (*segment, *page) {
	s := segmentOf(addr)
	if s == nil {
		fail("free", "%#x does not belong to any segment", addr)
	}
	return s, s.pageOf(addr)
}

// free releases b on behalf of the thread with id tid.
func free(tid uintptr, b uintptr) {
	s, p := lookup(b)
	if p.hasAligned.Load() {
		b = p.blockStart(b)
	}
	if s.threadID.Load() == tid {
		p.freeLocal(b)
		return
	}
	p.freeRemote(b)
}

// freeLocal returns b to its page. Owner only.
func (p *page) freeLocal(b uintptr) {
	p.setBlockNext(b, p.free)
	p.free = b
	p.used--
	switch {
	case p.used == 0:
		p.heap.Load().pageRetire(p)
	case p.isFull:
		p.heap.Load().pageUnfull(p)
	}
}

// usableSize reports the bytes available at b, which may be an interior
// pointer returned by an aligned allocation.
func usableSize(b uintptr) uintptr {
	_, p := lookup(b)
	start := b
	if p.hasAligned.Load() {
		start = p.blockStart(b)
	}
	return p.blockSize - (b - start)
}

// realloc resizes b within heap h. The block is kept when the new size fits
// and at least half of it would still be used.
func (h *heap) realloc(tid uintptr, b, size uintptr) uintptr {
	if b == 0 {
		return h.malloc(size)
	}
	usable := usableSize(b)
	if size <= usable && size >= usable/2 {
		return b
	}
	nb := h.malloc(size)
	if nb == 0 {
		return 0
	}
	rawmem.Copy(nb, b, min(usable, size))
	free(tid, b)
	return nb
}
