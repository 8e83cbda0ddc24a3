package ntmalloc

import (
	"unsafe"

	"github.com/joshuapare/ntmalloc/alloc"
)

// Thread is an allocation context for one goroutine at a time. Its blocks may
// be freed from anywhere.
type Thread struct {
	t *alloc.Thread
}

// NewThread returns a Thread. It maps nothing until it allocates.
func NewThread() *Thread { return &Thread{t: alloc.NewThread()} }

// Main returns the bootstrap thread, meant for the program's main goroutine.
func Main() *Thread { return &Thread{t: alloc.Main()} }

func (t *Thread) Malloc(size uintptr) unsafe.Pointer { return ptr(t.t.Malloc(size)) }

// TryMalloc is Malloc reporting why it failed.
func (t *Thread) TryMalloc(size uintptr) (unsafe.Pointer, error) {
	b, err := t.t.TryMalloc(size)
	return ptr(b), err
}

func (t *Thread) Zalloc(size uintptr) unsafe.Pointer { return ptr(t.t.Zalloc(size)) }

func (t *Thread) Calloc(count, size uintptr) unsafe.Pointer { return ptr(t.t.Calloc(count, size)) }

func (t *Thread) MallocAligned(size, align uintptr) unsafe.Pointer {
	return ptr(t.t.MallocAligned(size, align))
}

func (t *Thread) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return ptr(t.t.Realloc(addr(p), size))
}

func (t *Thread) Free(p unsafe.Pointer) { t.t.Free(addr(p)) }

// Bytes is the per-thread form of the package-level Bytes.
func (t *Thread) Bytes(n int) []byte {
	if n < 0 {
		return nil
	}
	return bytesAt(t.t.Malloc(uintptr(n)), n)
}

func (t *Thread) FreeBytes(b []byte) { t.t.Free(sliceAddr(b)) }

// Collect returns emptied pages to their segments; force also unmaps cached
// segments.
func (t *Thread) Collect(force bool) { t.t.Collect(force) }

// Stats returns the thread's statistics.
func (t *Thread) Stats() Stats { return t.t.Stats() }

// CheckInvariants validates the thread's heaps.
func (t *Thread) CheckInvariants() error { return t.t.CheckInvariants() }

// Done tears the thread down. Live blocks stay valid.
func (t *Thread) Done() { t.t.Done() }

// NewHeap creates an additional heap on t.
func (t *Thread) NewHeap() *Heap { return &Heap{h: t.t.NewHeap()} }

// Heap is a separate set of pages owned by one Thread. Deleting it hands its
// live blocks to the thread's default heap.
type Heap struct {
	h *alloc.Heap
}

// NewHeap creates a heap on a Thread of its own.
func NewHeap() *Heap { return &Heap{h: alloc.HeapNew()} }

func (h *Heap) Malloc(size uintptr) unsafe.Pointer { return ptr(h.h.Malloc(size)) }

func (h *Heap) Zalloc(size uintptr) unsafe.Pointer { return ptr(h.h.Zalloc(size)) }

func (h *Heap) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return ptr(h.h.Realloc(addr(p), size))
}

func (h *Heap) Free(p unsafe.Pointer) { h.h.Free(addr(p)) }

func (h *Heap) Bytes(n int) []byte {
	if n < 0 {
		return nil
	}
	return bytesAt(h.h.Malloc(uintptr(n)), n)
}

func (h *Heap) FreeBytes(b []byte) { h.h.Free(sliceAddr(b)) }

func (h *Heap) Collect() { h.h.Collect() }

// Delete retires the heap. Idempotent.
func (h *Heap) Delete() { h.h.Delete() }

// Thread returns the owning thread.
func (h *Heap) Thread() *Thread { return &Thread{t: h.h.Thread()} }
