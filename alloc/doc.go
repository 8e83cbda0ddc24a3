// Package alloc is a thread-caching allocator for memory outside the Go heap.
//
// # Overview
//
// Memory is taken from the operating system in aligned segments of
// SegmentSize bytes. A segment is split into pages and every page is carved
// into blocks of a single size class. A Thread owns a heap that keeps, per
// size class, a queue of pages with free blocks, plus a direct lookup table
// so that a small allocation is a table index and a list pop:
//
//	t := alloc.NewThread()
//	b := t.Malloc(128) // uintptr into mapped memory, 0 on exhaustion
//	defer t.Free(b)
//
// Blocks are plain addresses. The Go garbage collector neither scans nor
// frees them; every block must be released with Free.
//
// # Threads
//
// Go has no thread-local storage, so the per-thread state of a classic
// thread-caching allocator is carried by an explicit Thread value. A Thread
// must be used by one goroutine at a time. The package-level Malloc and Free
// borrow a Thread from a sync.Pool for each call.
//
// Threads set themselves up on their first allocation. Done tears a Thread
// down; a Thread that is simply dropped is torn down by a runtime cleanup.
// Pages that still hold live blocks at teardown are abandoned and later
// reclaimed by whichever thread next needs memory.
//
// # Freeing across threads
//
// Any Thread may free any block. A block freed by its owner goes straight
// back on its page's free list. A block freed by another thread is pushed on
// the page's thread_free stack with a single compare-and-swap, and the owner
// splices that stack into its own lists on its next slow-path allocation.
// Pages that ran out of blocks sit in a separate full queue; the first foreign
// free into such a page also notifies the owning heap so the page is put back
// into service.
//
// # Size classes
//
// Requests are rounded to words and binned with four classes per power of
// two. Blocks up to SmallObjSizeMax live on small pages, blocks up to
// LargeSizeMax on a single large page per segment, and anything bigger gets a
// segment of its own. SizeClasses lists the table.
//
// # Errors
//
// Running out of memory is reported by a 0 result, or by ErrOutOfMemory from
// the Try variants. Corrupted allocator state, such as freeing an address that
// was never allocated here, panics with an *InvariantError.
package alloc
