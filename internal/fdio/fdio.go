// Package fdio wraps raw OS descriptors with counted, shareable read and
// write operations. Strings read from a descriptor are staged through scratch
// memory obtained from the allocator rather than the Go heap.
package fdio

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/alloc"
	"github.com/joshuapare/ntmalloc/internal/buf"
	"github.com/joshuapare/ntmalloc/internal/rawmem"
)

// MaxRead caps the bytes moved by a single read.
const MaxRead = 1 << 20

var (
	// ErrClosed is returned by operations on a closed descriptor.
	ErrClosed = errors.New("fdio: descriptor closed")
	// ErrInvalid is returned when a descriptor is not open.
	ErrInvalid = errors.New("fdio: invalid descriptor")
	// ErrUnsupported is returned on platforms without raw descriptor access.
	ErrUnsupported = errors.New("fdio: not supported on this platform")
)

// FD is a descriptor handle. Handles made by Duplicate share the descriptor,
// its counters and its end-of-file state; closing any of them closes all.
type FD struct {
	f *file
}

type file struct {
	mu     sync.Mutex
	fd     int
	eof    bool
	closed bool

	reads  atomic.Int64
	writes atomic.Int64

	// scratch is owned by thread and only touched under mu.
	thread  *alloc.Thread
	scratch uintptr
}

// Fd returns the underlying descriptor, or -1 once closed.
func (d *FD) Fd() int {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	if d.f.closed {
		return -1
	}
	return d.f.fd
}

// Duplicate returns another handle to the same descriptor.
func (d *FD) Duplicate() *FD { return &FD{f: d.f} }

// EOF reports whether a read has returned end of file.
func (d *FD) EOF() bool {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return d.f.eof
}

// IsClosed reports whether Close has been called on any handle.
func (d *FD) IsClosed() bool {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return d.f.closed
}

// ReadCount is the number of successful reads.
func (d *FD) ReadCount() int64 { return d.f.reads.Load() }

// WriteCount is the number of successful writes.
func (d *FD) WriteCount() int64 { return d.f.writes.Load() }

// ReadString reads up to limit bytes, at most MaxRead, and returns them as a
// string.
func (d *FD) ReadString(limit int) (string, error) {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	n := min(max(limit, 0), MaxRead)
	if n == 0 {
		return "", nil
	}
	scratch, err := f.scratchBytes(uintptr(n))
	if err != nil {
		return "", err
	}
	got, err := f.read(scratch, limit)
	if err != nil {
		return "", err
	}
	return string(scratch[:got]), nil
}

// Read reads up to min(len(p), limit, MaxRead) bytes into p.
func (d *FD) Read(p []byte, limit int) (int, error) {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	return f.read(buf.Limit(buf.Limit(p, max(limit, 0)), MaxRead), limit)
}

// Write writes up to min(len(p), limit) bytes and returns how many were
// written.
func (d *FD) Write(p []byte, limit int) (int, error) {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	return f.write(buf.Limit(p, max(limit, 0)))
}

// Close closes the descriptor and releases scratch memory. Idempotent.
func (d *FD) Close() error {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.releaseScratch()
	return f.close()
}

// scratchBytes returns at least n bytes of scratch memory, growing the block
// when needed.
func (f *file) scratchBytes(n uintptr) ([]byte, error) {
	if f.thread == nil {
		f.thread = alloc.NewThread()
	}
	if f.scratch == 0 || alloc.UsableSize(f.scratch) < n {
		f.thread.Free(f.scratch)
		f.scratch = 0
		b, err := f.thread.TryMalloc(n)
		if err != nil {
			return nil, err
		}
		f.scratch = b
	}
	return rawmem.Bytes(f.scratch, n), nil
}

func (f *file) releaseScratch() {
	if f.thread == nil {
		return
	}
	f.thread.Free(f.scratch)
	f.scratch = 0
	f.thread.Done()
	f.thread = nil
}
