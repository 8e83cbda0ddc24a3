package alloc

import (
	"encoding/binary"
	"io"
	"sync/atomic"
	"time"
)

const golden = uintptr(0x9e3779b97f4a7c15 & uint64(^uintptr(0)))

// processRandom is the shared stream new heaps draw their seed from.
var processRandom atomic.Uintptr

// randomShuffle is a bijective mix of x; zero maps to zero.
func randomShuffle(x uintptr) uintptr {
	if WordSize == 8 {
		v := uint64(x)
		v ^= v >> 30
		v *= 0xbf58476d1ce4e5b9
		v ^= v >> 27
		v *= 0x94d049bb133111eb
		v ^= v >> 31
		return uintptr(v)
	}
	v := uint32(x)
	v ^= v >> 16
	v *= 0x7feb352d
	v ^= v >> 15
	v *= 0x846ca68b
	v ^= v >> 16
	return uintptr(v)
}

// seedProcessRandom seeds the shared stream from r, falling back to the clock
// when r fails so initialisation never blocks on entropy.
func seedProcessRandom(r io.Reader) {
	var buf [8]byte
	var seed uintptr
	if r != nil {
		if _, err := io.ReadFull(r, buf[:]); err == nil {
			seed = uintptr(binary.LittleEndian.Uint64(buf[:]))
		}
	}
	if seed == 0 {
		seed = uintptr(time.Now().UnixNano()) ^ golden
	}
	processRandom.Store(randomShuffle(seed))
}

// nextProcessRandom draws from the shared stream. Safe for concurrent use.
func nextProcessRandom() uintptr {
	return randomShuffle(processRandom.Add(golden))
}

// randomNext advances the heap's private stream. Owner only.
func (h *heap) randomNext() uintptr {
	h.random = randomShuffle(h.random + golden)
	return h.random
}
