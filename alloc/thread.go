package alloc

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/internal/buf"
	"github.com/joshuapare/ntmalloc/internal/logger"
)

// Thread is an allocation context. All allocations through one Thread come
// from its own heap without locking, so a Thread must be used by one
// goroutine at a time. Any Thread may free any block.
//
// A Thread is set up lazily by its first allocation and torn down by Done or,
// failing that, once it becomes unreachable.
type Thread struct {
	id   uintptr
	heap *heap
	tld  *tld
	main bool
}

var threadIDs atomic.Uintptr

// NewThread returns an idle Thread. It costs nothing until it allocates.
func NewThread() *Thread {
	return &Thread{id: threadIDs.Add(1), heap: &heapEmpty}
}

// ID returns the thread's identity as recorded in the segments it owns.
func (t *Thread) ID() uintptr { return t.id }

// initialized reports whether t owns a heap.
func (t *Thread) initialized() bool { return t.heap != &heapEmpty }

// init gives t its own heap and thread data. Idempotent.
func (t *Thread) init() {
	if t.initialized() {
		if t.tld.config == nil {
			t.bootstrap()
		}
		return
	}
	ProcessInit()
	td := &tld{config: currentConfig()}
	h := newHeap(td, t.id)
	td.heapBacking = h
	td.counted = true
	statsMain.Threads.increaseAtomic(1)
	t.tld = td
	t.heap = h
	if !t.main {
		runtime.AddCleanup(t, func(td *tld) { td.finish() }, td)
	}
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("thread init", "thread", t.id)
	}
}

// Done tears the thread down: empty pages return to the OS and pages still
// holding live blocks are abandoned for other threads to reclaim. Blocks
// allocated through t stay valid and may be freed from anywhere. t may be
// used again afterwards and then starts over with a fresh heap.
func (t *Thread) Done() {
	td := t.tld
	if td == nil {
		return
	}
	t.tld = nil
	t.heap = &heapEmpty
	td.finish()
}

// Malloc returns a block of at least size bytes, or 0 when memory is
// exhausted. Malloc(0) returns a unique minimal block.
func (t *Thread) Malloc(size uintptr) uintptr {
	h := t.heap
	if size <= SmallSizeMax {
		if b := h.mallocFast(size); b != 0 {
			return b
		}
	}
	if h == &heapEmpty || h.tld.config == nil {
		t.init()
		h = t.heap
	}
	return h.mallocGeneric(size)
}

// TryMalloc is Malloc reporting exhaustion as an error.
func (t *Thread) TryMalloc(size uintptr) (uintptr, error) {
	if b := t.Malloc(size); b != 0 {
		return b, nil
	}
	return 0, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
}

// defaultHeap returns t's heap, setting t up first.
func (t *Thread) defaultHeap() *heap {
	t.init()
	return t.heap
}

// Zalloc returns a zeroed block of at least size bytes.
func (t *Thread) Zalloc(size uintptr) uintptr { return t.defaultHeap().zalloc(size) }

// Calloc returns a zeroed block for count elements of size bytes, or 0 when
// the product overflows or memory is exhausted.
func (t *Thread) Calloc(count, size uintptr) uintptr { return t.defaultHeap().calloc(count, size) }

// TryCalloc is Calloc reporting the failure cause.
func (t *Thread) TryCalloc(count, size uintptr) (uintptr, error) {
	if _, ok := buf.MulOverflowSafe(count, size); !ok {
		return 0, fmt.Errorf("%w: %d * %d", ErrSizeOverflow, count, size)
	}
	if b := t.Calloc(count, size); b != 0 {
		return b, nil
	}
	return 0, fmt.Errorf("%w: %d * %d bytes", ErrOutOfMemory, count, size)
}

// MallocAligned returns a block of size bytes starting at a multiple of
// align, which must be a power of two.
func (t *Thread) MallocAligned(size, align uintptr) uintptr {
	return t.defaultHeap().mallocAligned(size, align)
}

// TryMallocAligned is MallocAligned reporting the failure cause.
func (t *Thread) TryMallocAligned(size, align uintptr) (uintptr, error) {
	if !buf.IsPowerOfTwo(align) {
		return 0, fmt.Errorf("%w: %d", ErrBadAlignment, align)
	}
	if b := t.MallocAligned(size, align); b != 0 {
		return b, nil
	}
	return 0, fmt.Errorf("%w: %d bytes aligned to %d", ErrOutOfMemory, size, align)
}

// Realloc resizes b, moving it when needed. Realloc(0, n) is Malloc(n). On
// failure it returns 0 and b is untouched.
func (t *Thread) Realloc(b, size uintptr) uintptr {
	return t.defaultHeap().realloc(t.id, b, size)
}

// Free releases b, which may have been allocated by any Thread. Free(0) is a
// no-op.
func (t *Thread) Free(b uintptr) {
	if b == 0 {
		return
	}
	free(t.id, b)
}

// Collect releases pages emptied by frees. With force set it also unmaps the
// segment cache.
func (t *Thread) Collect(force bool) {
	if !t.initialized() {
		return
	}
	t.heap.collect(collectNormal)
	for _, h := range t.tld.heaps {
		h.collect(collectNormal)
	}
	if force {
		t.tld.segments.cacheRelease(t.tld)
	}
}

// Stats returns the statistics of t since it was set up.
func (t *Thread) Stats() Stats {
	if t.tld == nil {
		return Stats{}
	}
	return t.tld.stats
}

// CheckInvariants validates every heap and page of t. It returns the first
// violation found as an *InvariantError.
func (t *Thread) CheckInvariants() error {
	if !t.initialized() {
		return nil
	}
	if err := t.heap.checkInvariants(); err != nil {
		return err
	}
	for _, h := range t.tld.heaps {
		if err := h.checkInvariants(); err != nil {
			return err
		}
	}
	return nil
}

// NewHeap creates an additional heap owned by t. Blocks it hands out may be
// freed from any thread; allocation must stay on t's goroutine.
func (t *Thread) NewHeap() *Heap {
	t.init()
	h := newHeap(t.tld, t.id)
	h.noReclaim = true
	t.tld.heaps = append(t.tld.heaps, h)
	return &Heap{h: h, t: t}
}
