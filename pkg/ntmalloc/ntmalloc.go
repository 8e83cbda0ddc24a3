package ntmalloc

import (
	"unsafe"

	"github.com/joshuapare/ntmalloc/alloc"
	"github.com/joshuapare/ntmalloc/internal/rawmem"
)

func ptr(b uintptr) unsafe.Pointer { return rawmem.Pointer(b) }

func addr(p unsafe.Pointer) uintptr { return rawmem.Addr(p) }

// bytesAt views the block at b as a slice of length n and capacity equal to
// its usable size.
func bytesAt(b uintptr, n int) []byte {
	if b == 0 {
		return nil
	}
	usable := alloc.UsableSize(b)
	return unsafe.Slice((*byte)(ptr(b)), usable)[:n]
}

// sliceAddr is the block address behind a slice returned by Bytes.
func sliceAddr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return addr(unsafe.Pointer(unsafe.SliceData(b)))
}

// Malloc returns at least size bytes, or nil when memory is exhausted.
func Malloc(size uintptr) unsafe.Pointer { return ptr(alloc.Malloc(size)) }

// Zalloc returns at least size zeroed bytes.
func Zalloc(size uintptr) unsafe.Pointer { return ptr(alloc.Zalloc(size)) }

// Calloc returns zeroed memory for count elements of size bytes, or nil when
// the product overflows.
func Calloc(count, size uintptr) unsafe.Pointer { return ptr(alloc.Calloc(count, size)) }

// MallocAligned returns size bytes aligned to align, a power of two.
func MallocAligned(size, align uintptr) unsafe.Pointer {
	return ptr(alloc.MallocAligned(size, align))
}

// Realloc resizes p. Realloc(nil, n) is Malloc(n). On failure it returns nil
// and p is untouched.
func Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return ptr(alloc.Realloc(addr(p), size))
}

// Free releases p. Free(nil) is a no-op.
func Free(p unsafe.Pointer) { alloc.Free(addr(p)) }

// UsableSize reports how many bytes may be used at p.
func UsableSize(p unsafe.Pointer) uintptr { return alloc.UsableSize(addr(p)) }

// GoodSize rounds size up to the size that will actually be allocated.
func GoodSize(size uintptr) uintptr { return alloc.GoodSize(size) }

// Bytes returns a slice of n bytes whose capacity is the usable size of the
// block. Release it with FreeBytes, passing the slice or a reslice that
// starts at the same element.
func Bytes(n int) []byte {
	if n < 0 {
		return nil
	}
	return bytesAt(alloc.Malloc(uintptr(n)), n)
}

// FreeBytes releases a slice returned by Bytes.
func FreeBytes(b []byte) { alloc.Free(sliceAddr(b)) }

// SizeClasses lists the block sizes served from pages.
func SizeClasses() []SizeClass { return alloc.SizeClasses() }

// ProcessStats returns statistics merged from finished threads.
func ProcessStats() Stats { return alloc.ProcessStats() }

// ReservedBytes reports the bytes currently mapped from the OS.
func ReservedBytes() int64 { return alloc.ReservedBytes() }

// AbandonedSegments reports segments left by finished threads that no thread
// has reclaimed yet.
func AbandonedSegments() int64 { return alloc.AbandonedSegments() }

// Init runs process initialisation eagerly. Allocation does it implicitly.
func Init() { alloc.ProcessInit() }

// Shutdown tears down the bootstrap thread. Memory still allocated stays
// valid.
func Shutdown() { alloc.ProcessDone() }
