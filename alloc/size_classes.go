package alloc

import (
	"fmt"
	"math/bits"
)

// binTable maps each bin to its block size in bytes. Filled once at package
// initialisation by newBinTable and never written again.
var binTable = newBinTable()

// binOfWsize gives four bins per power of two above eight words. It does not
// clamp to BinHuge so the table builder can size the upper large bins.
func binOfWsize(wsize uintptr) int {
	switch {
	case wsize <= 1:
		return 1
	case wsize <= 8:
		return int(wsize)
	}
	w := wsize - 1
	b := bits.Len(uint(w)) - 1
	return (b << 2) + int((w>>(b-2))&3) - 3
}

// binFor maps a request size to its bin. Sizes up to one word share bin 1, so a
// zero-byte request still receives a real block.
func binFor(size uintptr) int {
	wsize := wsizeFromSize(size)
	if wsize > LargeWsizeMax {
		return BinHuge
	}
	return binOfWsize(wsize)
}

// newBinTable records, for every bin, the largest word size that maps to it.
// Bins 61 to 63 are unreachable through binFor but keep the progression so the
// table stays monotonic; the huge and full bins sit just past them.
func newBinTable() [BinFull + 1]uintptr {
	var t [BinFull + 1]uintptr
	t[0] = WordSize
	for wsize := uintptr(1); ; wsize++ {
		b := binOfWsize(wsize)
		if b >= BinHuge {
			break
		}
		t[b] = wsize * WordSize
	}
	t[BinHuge] = t[BinHuge-1] + WordSize
	t[BinFull] = t[BinHuge] + WordSize
	return t
}

// checkBinTable verifies the construction: bins 0 and 1 hold a single word,
// sizes strictly increase from bin 1 up to BinHuge-1, the last reachable large
// bin holds exactly LargeSizeMax, and the huge and full bins lie beyond all of them.
func checkBinTable(t *[BinFull + 1]uintptr) error {
	if t[0] != WordSize || t[1] != WordSize {
		return fmt.Errorf("bins 0 and 1 must hold one word, got %d and %d", t[0], t[1])
	}
	for b := 2; b <= BinFull; b++ {
		if t[b] <= t[b-1] {
			return fmt.Errorf("bin %d size %d not above bin %d size %d", b, t[b], b-1, t[b-1])
		}
	}
	if last := binFor(LargeSizeMax); t[last] != LargeSizeMax {
		return fmt.Errorf("bin %d for the large ceiling holds %d, want %d", last, t[last], LargeSizeMax)
	}
	if binFor(LargeSizeMax+1) != BinHuge {
		return fmt.Errorf("size %d should map to the huge bin", LargeSizeMax+1)
	}
	return nil
}

// BinFor returns the size-class bin of a request of size bytes.
func BinFor(size uintptr) int { return binFor(size) }

// BinSize returns the block size of bin in bytes. It panics for bins outside
// [0, BinFull].
func BinSize(bin int) uintptr { return binTable[bin] }

// GoodSize returns the number of usable bytes a request of size receives.
// Huge requests are rounded to whole words.
func GoodSize(size uintptr) uintptr {
	if b := binFor(size); b != BinHuge {
		return binTable[b]
	}
	return wsizeFromSize(size) * WordSize
}

// SizeClass describes one bin for reporting.
type SizeClass struct {
	Bin       int      `json:"bin"`
	BlockSize uintptr  `json:"block_size"`
	Kind      PageKind `json:"kind"`
	PageSize  uintptr  `json:"page_size"`
	Blocks    uintptr  `json:"blocks_per_page"`
	Direct    bool     `json:"direct"`
}

// SizeClasses lists the reachable bins from 1 to the large ceiling.
func SizeClasses() []SizeClass {
	last := binFor(LargeSizeMax)
	out := make([]SizeClass, 0, last)
	for b := 1; b <= last; b++ {
		bs := binTable[b]
		kind, area := pageKindFor(bs)
		out = append(out, SizeClass{
			Bin:       b,
			BlockSize: bs,
			Kind:      kind,
			PageSize:  area,
			Blocks:    area / bs,
			Direct:    bs <= SmallSizeMax,
		})
	}
	return out
}

// pageKindFor picks the page kind for blocks of blockSize and returns the
// page area those blocks are carved from.
func pageKindFor(blockSize uintptr) (PageKind, uintptr) {
	switch {
	case blockSize <= SmallObjSizeMax:
		return PageSmall, SmallPageSize
	case blockSize <= LargeSizeMax:
		return PageLarge, LargePageSize
	}
	return PageHuge, 0
}
