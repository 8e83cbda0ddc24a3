package alloc

import "sync/atomic"

// StatCount tracks a quantity that grows and shrinks.
type StatCount struct {
	Allocated int64 `json:"allocated"`
	Freed     int64 `json:"freed"`
	Peak      int64 `json:"peak"`
	Current   int64 `json:"current"`
}

// StatCounter tracks a running total over a number of events.
type StatCounter struct {
	Total int64 `json:"total"`
	Count int64 `json:"count"`
}

// Stats holds allocator statistics. A thread updates its own copy without
// synchronisation; finished threads are merged atomically into the process
// totals returned by ProcessStats.
type Stats struct {
	Segments          StatCount `json:"segments"`
	Pages             StatCount `json:"pages"`
	Reserved          StatCount `json:"reserved"`  // bytes mapped from the OS
	Committed         StatCount `json:"committed"` // bytes of pages handed to heaps
	SegmentsAbandoned StatCount `json:"segments_abandoned"`
	PagesAbandoned    StatCount `json:"pages_abandoned"`
	PagesExtended     StatCount `json:"pages_extended"`
	MmapCalls         StatCount `json:"mmap_calls"`
	MmapRightAlign    StatCount `json:"mmap_right_align"`
	MmapEnsureAligned StatCount `json:"mmap_ensure_aligned"`
	Threads           StatCount `json:"threads"`
	Huge              StatCount `json:"huge"`   // bytes in huge blocks
	Malloc            StatCount `json:"malloc"` // bytes handed out by the slow path

	Searches StatCounter `json:"searches"` // pages visited per queue search

	// Normal counts pages per size-class bin.
	Normal [BinHuge + 1]StatCount `json:"normal"`
}

func (s *StatCount) increase(n int64) {
	s.Allocated += n
	s.Current += n
	if s.Current > s.Peak {
		s.Peak = s.Current
	}
}

func (s *StatCount) decrease(n int64) {
	s.Freed += n
	s.Current -= n
}

func (s *StatCounter) add(n int64) {
	s.Total += n
	s.Count++
}

// increaseAtomic and decreaseAtomic are for counters shared between threads.
// The peak is maintained with a CAS loop so it never goes backwards.
func (s *StatCount) increaseAtomic(n int64) {
	atomic.AddInt64(&s.Allocated, n)
	cur := atomic.AddInt64(&s.Current, n)
	for {
		peak := atomic.LoadInt64(&s.Peak)
		if cur <= peak || atomic.CompareAndSwapInt64(&s.Peak, peak, cur) {
			return
		}
	}
}

func (s *StatCount) decreaseAtomic(n int64) {
	atomic.AddInt64(&s.Freed, n)
	atomic.AddInt64(&s.Current, -n)
}

// addAtomic folds src into s. Peaks are summed, which over-approximates the
// true concurrent peak but is monotone.
func (s *StatCount) addAtomic(src *StatCount) {
	atomic.AddInt64(&s.Allocated, src.Allocated)
	atomic.AddInt64(&s.Freed, src.Freed)
	atomic.AddInt64(&s.Peak, src.Peak)
	atomic.AddInt64(&s.Current, src.Current)
}

func (s *StatCount) loadAtomic() StatCount {
	return StatCount{
		Allocated: atomic.LoadInt64(&s.Allocated),
		Freed:     atomic.LoadInt64(&s.Freed),
		Peak:      atomic.LoadInt64(&s.Peak),
		Current:   atomic.LoadInt64(&s.Current),
	}
}

// counts lists every StatCount of s in a fixed order.
func (s *Stats) counts() []*StatCount {
	out := []*StatCount{
		&s.Segments, &s.Pages, &s.Reserved, &s.Committed,
		&s.SegmentsAbandoned, &s.PagesAbandoned, &s.PagesExtended,
		&s.MmapCalls, &s.MmapRightAlign, &s.MmapEnsureAligned,
		&s.Threads, &s.Huge, &s.Malloc,
	}
	for i := range s.Normal {
		out = append(out, &s.Normal[i])
	}
	return out
}

// mergeAtomic adds src into s, where s may be read and merged into concurrently.
func (s *Stats) mergeAtomic(src *Stats) {
	dst, from := s.counts(), src.counts()
	for i := range dst {
		dst[i].addAtomic(from[i])
	}
	atomic.AddInt64(&s.Searches.Total, src.Searches.Total)
	atomic.AddInt64(&s.Searches.Count, src.Searches.Count)
}

// snapshotAtomic copies s using atomic loads.
func (s *Stats) snapshotAtomic() Stats {
	var out Stats
	dst, from := out.counts(), s.counts()
	for i := range dst {
		*dst[i] = from[i].loadAtomic()
	}
	out.Searches.Total = atomic.LoadInt64(&s.Searches.Total)
	out.Searches.Count = atomic.LoadInt64(&s.Searches.Count)
	return out
}

// statsMain accumulates the statistics of finished threads and the live
// thread count.
var statsMain Stats

// ProcessStats returns the process-wide totals: every finished thread's
// statistics plus the number of live threads.
func ProcessStats() Stats {
	return statsMain.snapshotAtomic()
}
