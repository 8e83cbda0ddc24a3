// Package rawmem converts between integer addresses and memory. It is the only
// place that turns a uintptr back into a pointer; callers guarantee the address
// lies inside a live mapping obtained from internal/osmem.
package rawmem

import "unsafe"

// LoadWord reads the machine word stored at addr.
func LoadWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// StoreWord writes v to the machine word at addr.
func StoreWord(addr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// Bytes returns a byte view of n bytes starting at addr.
func Bytes(addr uintptr, n uintptr) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Zero clears n bytes starting at addr.
func Zero(addr uintptr, n uintptr) {
	clear(Bytes(addr, n))
}

// Copy copies n bytes from src to dst. The ranges may overlap.
func Copy(dst, src uintptr, n uintptr) {
	copy(Bytes(dst, n), Bytes(src, n))
}

// Pointer converts an address into an unsafe.Pointer.
func Pointer(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

// Addr converts a pointer back into an address.
func Addr(p unsafe.Pointer) uintptr {
	return uintptr(p)
}
