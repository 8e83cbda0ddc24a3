package alloc

import (
	"sync"
	"sync/atomic"
)

// Segments left behind by finished threads. Pushed at thread exit and popped
// by threads that need memory, neither of which is on the fast path, so a
// mutex keeps the list free of ABA hazards.
var abandoned struct {
	mu    sync.Mutex
	head  *segment
	count atomic.Int64
}

func abandonedPush(s *segment) {
	abandoned.mu.Lock()
	s.abandonedNext = abandoned.head
	abandoned.head = s
	abandoned.mu.Unlock()
	abandoned.count.Add(1)
}

func abandonedPop() *segment {
	if abandoned.count.Load() == 0 {
		return nil
	}
	abandoned.mu.Lock()
	s := abandoned.head
	if s != nil {
		abandoned.head = s.abandonedNext
		s.abandonedNext = nil
		abandoned.count.Add(-1)
	}
	abandoned.mu.Unlock()
	return s
}

// AbandonedSegments reports how many segments await reclamation.
func AbandonedSegments() int64 {
	return abandoned.count.Load()
}
