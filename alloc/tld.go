package alloc

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/internal/logger"
)

// tld is the per-thread state shared by all heaps of one thread.
type tld struct {
	heartbeat   uint64
	heapBacking *heap   // the thread's default heap
	heaps       []*heap // heaps created with Thread.NewHeap
	segments    segmentsTLD
	os          osTLD
	stats       Stats
	config      *Config
	counted     bool // included in statsMain.Threads
	done        atomic.Bool
}

// removeHeap forgets an additional heap.
func (td *tld) removeHeap(h *heap) {
	td.heaps = slices.DeleteFunc(td.heaps, func(x *heap) bool { return x == h })
}

// finish tears the thread down: additional heaps are folded into the default
// heap, empty pages are released, live pages are abandoned for other threads
// to reclaim, cached segments are unmapped and the statistics are merged into
// the process totals. Safe to call more than once.
func (td *tld) finish() {
	if !td.done.CompareAndSwap(false, true) {
		return
	}
	backing := td.heapBacking
	if backing != nil {
		for _, h := range td.heaps {
			backing.absorb(h)
		}
		td.heaps = nil
		backing.collect(collectAbandon)
	}
	td.segments.cacheRelease(td)

	statsMain.mergeAtomic(&td.stats)
	if td.counted {
		td.counted = false
		statsMain.Threads.decreaseAtomic(1)
	}
	if logger.Enabled(slog.LevelDebug) {
		thread := uintptr(0)
		if backing != nil {
			thread = backing.threadID
		}
		logger.Debug("thread done", "thread", thread, "segments_left", td.segments.count)
	}
}
