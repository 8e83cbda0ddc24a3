/*
Package ntmalloc is a thread-caching memory allocator for memory that lives
outside the Go heap.

Blocks come from large OS mappings split into pages of equally sized blocks.
Each Thread allocates from its own pages without locking; any goroutine may
free any block. The garbage collector never scans or moves this memory, so it
suits buffers that hold no Go pointers: I/O staging, arenas, off-heap caches.

# Quick Start

	p := ntmalloc.Malloc(256)
	if p == nil {
	    log.Fatal("out of memory")
	}
	defer ntmalloc.Free(p)

Byte slices are often more convenient:

	buf := ntmalloc.Bytes(4096)
	defer ntmalloc.FreeBytes(buf)

# Threads

The package-level functions borrow a Thread from a pool for each call. Hot
loops do better with a Thread of their own, used by one goroutine at a time:

	t := ntmalloc.NewThread()
	defer t.Done()
	for _, msg := range msgs {
	    buf := t.Bytes(len(msg))
	    copy(buf, msg)
	    queue <- buf // the consumer frees it with ntmalloc.FreeBytes
	}

# Configuration

	ntmalloc.Configure(&ntmalloc.Options{
	    ReserveLimit: 1 << 30,
	    LogLevel:     "info",
	})

Options apply to threads set up afterwards. The NTMALLOC_RESERVE_LIMIT,
NTMALLOC_SEGMENT_CACHE, NTMALLOC_PAGE_EXTEND and NTMALLOC_LOG environment
variables override the defaults.

# Errors

Allocation returns nil when memory is exhausted. The Try variants report
ErrOutOfMemory and friends for use with errors.Is. Corrupted allocator state,
such as freeing a pointer this package never returned, panics with an
*InvariantError.
*/
package ntmalloc
