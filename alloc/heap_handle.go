package alloc

import "fmt"

// Heap is an additional heap created by Thread.NewHeap. It keeps its Thread
// alive and must only allocate from that Thread's goroutine.
type Heap struct {
	h *heap
	t *Thread
}

// Thread returns the owning thread.
func (hh *Heap) Thread() *Thread { return hh.t }

// target is the heap to allocate from. A deleted Heap falls back to its
// thread's default heap.
func (hh *Heap) target() *heap {
	if hh.h != nil && !hh.h.tld.done.Load() {
		return hh.h
	}
	return hh.t.defaultHeap()
}

// Malloc returns a block of at least size bytes from this heap, or 0.
func (hh *Heap) Malloc(size uintptr) uintptr {
	return hh.target().malloc(size)
}

// TryMalloc is Malloc reporting exhaustion as an error.
func (hh *Heap) TryMalloc(size uintptr) (uintptr, error) {
	if b := hh.Malloc(size); b != 0 {
		return b, nil
	}
	return 0, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
}

// Zalloc returns a zeroed block of at least size bytes.
func (hh *Heap) Zalloc(size uintptr) uintptr { return hh.target().zalloc(size) }

// Calloc returns a zeroed block for count elements of size bytes.
func (hh *Heap) Calloc(count, size uintptr) uintptr { return hh.target().calloc(count, size) }

// MallocAligned returns a block of size bytes aligned to align.
func (hh *Heap) MallocAligned(size, align uintptr) uintptr {
	return hh.target().mallocAligned(size, align)
}

// Realloc resizes b, allocating any replacement from this heap.
func (hh *Heap) Realloc(b, size uintptr) uintptr {
	return hh.target().realloc(hh.t.id, b, size)
}

// Free releases b.
func (hh *Heap) Free(b uintptr) { hh.t.Free(b) }

// Collect releases pages of this heap emptied by frees.
func (hh *Heap) Collect() {
	if hh.h != nil {
		hh.h.collect(collectNormal)
	}
}

// CheckInvariants validates the pages of this heap.
func (hh *Heap) CheckInvariants() error {
	if hh.h == nil {
		return nil
	}
	return hh.h.checkInvariants()
}

// Delete retires the heap. Its pages, and every block still live in them,
// move to the thread's default heap. Idempotent.
func (hh *Heap) Delete() {
	h := hh.h
	if h == nil {
		return
	}
	hh.h = nil
	td := h.tld
	if td.done.Load() {
		return
	}
	td.heapBacking.absorb(h)
	td.removeHeap(h)
}
