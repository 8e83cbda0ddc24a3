//go:build linux || darwin || freebsd || netbsd || openbsd

package osmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Map maps size bytes of zeroed read/write memory, preferring hint.
func Map(hint, size uintptr) (uintptr, error) {
	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(hint), size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

// Unmap returns [addr, addr+size) to the operating system.
func Unmap(addr, size uintptr) error {
	if addr == 0 || size == 0 {
		return nil
	}
	return unix.MunmapPtr(unsafe.Pointer(addr), size)
}

// PageSize reports the OS page size.
func PageSize() int {
	return unix.Getpagesize()
}

// mapTrimmed over-maps by align and releases the unaligned head and tail.
func mapTrimmed(size, align uintptr) (uintptr, error) {
	over := size + align
	if over < size {
		return 0, ErrMisaligned
	}
	raw, err := Map(0, over)
	if err != nil {
		return 0, err
	}
	start := (raw + align - 1) &^ (align - 1)
	if pre := start - raw; pre > 0 {
		if err := Unmap(raw, pre); err != nil {
			_ = Unmap(raw, over)
			return 0, err
		}
	}
	if post := raw + over - (start + size); post > 0 {
		if err := Unmap(start+size, post); err != nil {
			_ = Unmap(start, size+post)
			return 0, err
		}
	}
	return start, nil
}
