package rawmem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/ntmalloc/internal/osmem"
)

func mapPage(t *testing.T) (uintptr, uintptr) {
	t.Helper()
	size := uintptr(osmem.PageSize())
	addr, err := osmem.Map(0, size)
	if err != nil {
		t.Skipf("anonymous mapping unavailable: %v", err)
	}
	t.Cleanup(func() { _ = osmem.Unmap(addr, size) })
	return addr, size
}

func TestWordRoundTrip(t *testing.T) {
	addr, _ := mapPage(t)

	StoreWord(addr+8, 0xdeadbeef)
	require.Equal(t, uintptr(0xdeadbeef), LoadWord(addr+8))
	require.Equal(t, uintptr(0), LoadWord(addr))
}

func TestBytesZeroCopy(t *testing.T) {
	addr, size := mapPage(t)

	copy(Bytes(addr, 9), "allocator")
	Copy(addr+64, addr, 9)
	require.Equal(t, "allocator", string(Bytes(addr+64, 9)))

	Zero(addr+64, 4)
	require.Equal(t, "cator", string(Bytes(addr+68, 5)))
	require.Equal(t, []byte{0, 0, 0, 0}, Bytes(addr+64, 4))
	require.Nil(t, Bytes(addr, 0))
	require.Len(t, Bytes(addr, size), int(size))
}

func TestPointerAddr(t *testing.T) {
	addr, _ := mapPage(t)
	require.Equal(t, addr, Addr(Pointer(addr)))
}
