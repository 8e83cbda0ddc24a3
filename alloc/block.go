package alloc

import "github.com/joshuapare/ntmalloc/internal/rawmem"

// A free block stores the address of the next free block in its first word,
// xored with the page key. With encoding off the key is zero.

func (p *page) blockNext(b uintptr) uintptr {
	return rawmem.LoadWord(b) ^ p.key
}

func (p *page) setBlockNext(b, next uintptr) {
	rawmem.StoreWord(b, next^p.key)
}

// areaEnd is one past the last block the page can ever hold.
func (p *page) areaEnd() uintptr {
	return p.start + uintptr(p.reserved)*p.blockSize
}

// isBlock reports whether b is the start of an initialised block of p.
func (p *page) isBlock(b uintptr) bool {
	if b < p.start || b >= p.start+uintptr(p.capacity)*p.blockSize {
		return false
	}
	return (b-p.start)%p.blockSize == 0
}

// blockStart rounds an interior pointer down to its block.
func (p *page) blockStart(addr uintptr) uintptr {
	return p.start + (addr-p.start)/p.blockSize*p.blockSize
}

// countList walks a free list, validating every link. limit bounds the walk
// so a cycle is reported instead of looping forever.
func (p *page) countList(head uintptr, limit int) (int, error) {
	n := 0
	for b := head; b != 0; b = p.blockNext(b) {
		if !p.isBlock(b) {
			return n, &InvariantError{Component: "page", Detail: "free list link outside page"}
		}
		n++
		if n > limit {
			return n, &InvariantError{Component: "page", Detail: "free list longer than capacity"}
		}
	}
	return n, nil
}
