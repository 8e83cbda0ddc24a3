//go:build linux || darwin || freebsd || netbsd || openbsd

package osmem

import (
	"errors"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

const segment = 4 << 20

func TestMapUnmapUnix(t *testing.T) {
	size := uintptr(PageSize())
	addr, err := Map(0, size)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, b)
		}
	}
	data[0], data[size-1] = 0xab, 0xcd
	if err := Unmap(addr, size); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if err := Unmap(0, size); err != nil {
		t.Fatalf("Unmap of nil address should be a no-op: %v", err)
	}
}

func TestMapAlignedUnix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping aligned mapping test in short mode")
	}
	var hint uintptr
	for i := 0; i < 4; i++ {
		addr, placement, err := MapAligned(hint, segment, segment)
		if err != nil {
			t.Fatalf("MapAligned #%d: %v", i, err)
		}
		if addr%segment != 0 {
			t.Fatalf("MapAligned #%d returned misaligned 0x%x (placement %d)", i, addr, placement)
		}
		last := (*byte)(unsafe.Pointer(addr + segment - 1))
		*last = 1
		defer func() {
			if err := Unmap(addr, segment); err != nil {
				t.Fatalf("Unmap: %v", err)
			}
		}()
		hint = addr + segment
	}
}

func TestMapAlignedRejectsBadAlignment(t *testing.T) {
	if _, _, err := MapAligned(0, segment, 3); err != ErrMisaligned {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestUnmapMisalignedFails(t *testing.T) {
	size := uintptr(PageSize())
	addr, err := Map(0, 2*size)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	t.Cleanup(func() { _ = Unmap(addr, 2*size) })

	err = Unmap(addr+1, size)
	if !errors.Is(err, unix.EINVAL) {
		t.Fatalf("Unmap of a misaligned address: got %v, want EINVAL", err)
	}
}
