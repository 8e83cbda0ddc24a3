//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package osmem

import "os"

// Map is unavailable without an anonymous mapping primitive.
func Map(hint, size uintptr) (uintptr, error) {
	return 0, ErrUnsupported
}

// Unmap is a no-op when nothing can be mapped.
func Unmap(addr, size uintptr) error {
	return nil
}

// PageSize reports the OS page size.
func PageSize() int {
	return os.Getpagesize()
}

func mapTrimmed(size, align uintptr) (uintptr, error) {
	return 0, ErrUnsupported
}
