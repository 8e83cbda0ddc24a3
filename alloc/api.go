package alloc

import "sync"

// Goroutines carry no thread identity, so the package-level functions borrow
// a Thread from a pool for the duration of one call. The pool keeps roughly
// one Thread per P; Threads it drops are finished by their cleanup and their
// live pages are reclaimed by the others.
var threads = sync.Pool{New: func() any { return NewThread() }}

func borrow() *Thread { return threads.Get().(*Thread) }

func release(t *Thread) { threads.Put(t) }

// Malloc returns a block of at least size bytes, or 0 when memory is exhausted.
func Malloc(size uintptr) uintptr {
	t := borrow()
	b := t.Malloc(size)
	release(t)
	return b
}

// Zalloc returns a zeroed block of at least size bytes.
func Zalloc(size uintptr) uintptr {
	t := borrow()
	b := t.Zalloc(size)
	release(t)
	return b
}

// Calloc returns a zeroed block for count elements of size bytes.
func Calloc(count, size uintptr) uintptr {
	t := borrow()
	b := t.Calloc(count, size)
	release(t)
	return b
}

// MallocAligned returns a block of size bytes aligned to align.
func MallocAligned(size, align uintptr) uintptr {
	t := borrow()
	b := t.MallocAligned(size, align)
	release(t)
	return b
}

// Realloc resizes b, moving it when needed.
func Realloc(b, size uintptr) uintptr {
	t := borrow()
	nb := t.Realloc(b, size)
	release(t)
	return nb
}

// Free releases b. Free(0) is a no-op.
func Free(b uintptr) {
	if b == 0 {
		return
	}
	t := borrow()
	t.Free(b)
	release(t)
}

// UsableSize reports how many bytes are usable at b, which must be a live
// block returned by this package.
func UsableSize(b uintptr) uintptr {
	if b == 0 {
		return 0
	}
	return usableSize(b)
}

// HeapNew creates a heap on a Thread of its own. The heap, its Thread and
// its pages live until the heap is deleted or becomes unreachable.
func HeapNew() *Heap {
	return NewThread().NewHeap()
}
