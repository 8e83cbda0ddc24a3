//go:build windows

package osmem

import (
	"os"

	"golang.org/x/sys/windows"
)

// Map reserves and commits size bytes of zeroed read/write memory, preferring hint.
func Map(hint, size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(hint, size, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil && hint != 0 {
		// A hint that collides with an existing region fails outright.
		addr, err = windows.VirtualAlloc(0, size, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	}
	if err != nil {
		return 0, err
	}
	return addr, nil
}

// Unmap releases the whole region starting at addr. Windows only releases
// complete reservations, so size is informational.
func Unmap(addr, size uintptr) error {
	if addr == 0 {
		return nil
	}
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

// PageSize reports the OS page size.
func PageSize() int {
	return os.Getpagesize()
}

// mapTrimmed finds an aligned address by reserving an over-sized region,
// releasing it and re-reserving at the aligned start. Another thread may take
// the range in between, so it retries a few times.
func mapTrimmed(size, align uintptr) (uintptr, error) {
	over := size + align
	if over < size {
		return 0, ErrMisaligned
	}
	for range 3 {
		raw, err := windows.VirtualAlloc(0, over, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
		if err != nil {
			return 0, err
		}
		start := (raw + align - 1) &^ (align - 1)
		if err := windows.VirtualFree(raw, 0, windows.MEM_RELEASE); err != nil {
			return 0, err
		}
		addr, err := windows.VirtualAlloc(start, size, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
		if err == nil && addr == start {
			return addr, nil
		}
		if err == nil {
			_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		}
	}
	return 0, ErrMisaligned
}
