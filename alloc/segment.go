package alloc

import (
	"log/slog"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/internal/buf"
	"github.com/joshuapare/ntmalloc/internal/logger"
)

// segment is one SegmentSize-aligned mapping carved into pages of one kind.
// Its metadata lives on the Go heap; the mapping holds only blocks.
type segment struct {
	base      uintptr
	size      uintptr
	pageShift uintptr
	kind      PageKind
	capacity  int // pages
	used      int // pages claimed
	abandoned int // claimed pages left behind by a finished thread
	cookie    uintptr

	threadID atomic.Uintptr // owner; zero while abandoned

	pages []page

	next, prev    *segment // smallFree or cache queue
	inSmallFree   bool
	abandonedNext *segment
}

func newSegment(base, size uintptr, kind PageKind, threadID uintptr) *segment {
	s := &segment{base: base, size: size}
	s.threadID.Store(threadID)
	s.setKind(kind)
	return s
}

// setKind lays out the page slots for kind, resetting all of them.
func (s *segment) setKind(kind PageKind) {
	s.kind = kind
	switch kind {
	case PageSmall:
		s.pageShift = SmallPageShift
		s.capacity = int(SmallPagesPerSegment)
	default:
		s.pageShift = SegmentShift
		s.capacity = 1
	}
	if cap(s.pages) >= s.capacity {
		s.pages = s.pages[:s.capacity]
	} else {
		s.pages = make([]page, s.capacity)
	}
	for i := range s.pages {
		p := &s.pages[i]
		p.reset()
		p.segment = s
		p.index = i
		p.inUse = false
	}
	s.used = 0
	s.abandoned = 0
	s.cookie = s.base ^ nextProcessRandom()
}

// pageArea returns the first address and length of page idx.
func (s *segment) pageArea(idx int) (uintptr, uintptr) {
	if s.kind != PageSmall {
		return s.base, s.size
	}
	return s.base + uintptr(idx)<<SmallPageShift, SmallPageSize
}

// pageOf returns the page containing addr, which must lie in s.
func (s *segment) pageOf(addr uintptr) *page {
	if s.kind != PageSmall {
		return &s.pages[0]
	}
	return &s.pages[(addr-s.base)>>SmallPageShift]
}

// findFreePage returns an unclaimed page slot, or nil when all are taken.
func (s *segment) findFreePage() *page {
	for i := range s.pages {
		if !s.pages[i].inUse {
			return &s.pages[i]
		}
	}
	return nil
}

// segmentQueue is a doubly linked list of segments.
type segmentQueue struct {
	first, last *segment
}

func (q *segmentQueue) push(s *segment) {
	s.prev = nil
	s.next = q.first
	if q.first != nil {
		q.first.prev = s
	} else {
		q.last = s
	}
	q.first = s
}

func (q *segmentQueue) remove(s *segment) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		q.first = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		q.last = s.prev
	}
	s.next, s.prev = nil, nil
}

func (q *segmentQueue) pop() *segment {
	s := q.first
	if s != nil {
		q.remove(s)
	}
	return s
}

// segmentsTLD is a thread's segment bookkeeping.
type segmentsTLD struct {
	smallFree   segmentQueue // small segments with unclaimed page slots
	cache       segmentQueue // vacated segments kept mapped for reuse
	cacheCount  int
	count       int
	peakCount   int
	currentSize uintptr
	peakSize    uintptr
}

func (st *segmentsTLD) track(size uintptr) {
	st.count++
	st.currentSize += size
	st.peakCount = max(st.peakCount, st.count)
	st.peakSize = max(st.peakSize, st.currentSize)
}

func (st *segmentsTLD) untrack(size uintptr) {
	st.count--
	st.currentSize -= size
}

// cacheFull bounds the cache by Config.SegmentCacheMax and by one eighth of
// the thread's peak segment count, always allowing one.
func (st *segmentsTLD) cacheFull(td *tld) bool {
	return st.cacheCount >= td.config.SegmentCacheMax || st.cacheCount >= 1+st.peakCount/8
}

// segmentAlloc returns an owned segment of size bytes, reusing the cache for
// segment-sized requests.
func (st *segmentsTLD) segmentAlloc(td *tld, size uintptr, kind PageKind, threadID uintptr) *segment {
	if size == SegmentSize {
		if s := st.cache.pop(); s != nil {
			st.cacheCount--
			s.threadID.Store(threadID)
			s.setKind(kind)
			st.track(size)
			return s
		}
	}
	base, err := td.os.alloc(td, size)
	if err != nil {
		if logger.Enabled(slog.LevelWarn) {
			logger.Warn("segment allocation failed", "size", size, "err", err)
		}
		return nil
	}
	s := newSegment(base, size, kind, threadID)
	if !segmentMapSet(s) {
		td.os.free(td, base, size)
		if logger.Enabled(slog.LevelWarn) {
			logger.Warn("segment outside addressable range", "base", base, "size", size)
		}
		return nil
	}
	st.track(size)
	td.stats.Segments.increase(1)
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("segment mapped", "base", base, "size", size, "kind", kind.String())
	}
	return s
}

// segmentFree releases an empty segment to the cache or the OS.
func (st *segmentsTLD) segmentFree(td *tld, s *segment) {
	assertf(s.used == 0, "segment", "freeing segment %#x with %d pages in use", s.base, s.used)
	if s.inSmallFree {
		st.smallFree.remove(s)
		s.inSmallFree = false
	}
	st.untrack(s.size)
	if s.size == SegmentSize && !st.cacheFull(td) {
		s.threadID.Store(0)
		st.cache.push(s)
		st.cacheCount++
		return
	}
	st.segmentRelease(td, s)
}

// segmentRelease unmaps s and forgets it.
func (st *segmentsTLD) segmentRelease(td *tld, s *segment) {
	segmentMapClear(s)
	td.os.free(td, s.base, s.size)
	td.stats.Segments.decrease(1)
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("segment unmapped", "base", s.base, "size", s.size)
	}
}

// cacheRelease unmaps every cached segment.
func (st *segmentsTLD) cacheRelease(td *tld) {
	for s := st.cache.pop(); s != nil; s = st.cache.pop() {
		st.cacheCount--
		st.segmentRelease(td, s)
	}
}

// pageAlloc claims a page for blocks of blockSize, mapping a new segment when
// no slot is free. Returns nil on exhaustion.
func (st *segmentsTLD) pageAlloc(td *tld, blockSize uintptr, threadID uintptr) *page {
	kind, _ := pageKindFor(blockSize)
	var s *segment
	switch kind {
	case PageSmall:
		if st.smallFree.first == nil {
			s = st.segmentAlloc(td, SegmentSize, PageSmall, threadID)
			if s == nil {
				return nil
			}
			st.smallFree.push(s)
			s.inSmallFree = true
		}
		s = st.smallFree.first
	case PageLarge:
		s = st.segmentAlloc(td, SegmentSize, PageLarge, threadID)
	default:
		size, ok := buf.AlignUp(blockSize, SegmentSize)
		if !ok {
			return nil
		}
		s = st.segmentAlloc(td, size, PageHuge, threadID)
	}
	if s == nil {
		return nil
	}
	p := s.findFreePage()
	assertf(p != nil, "segment", "segment %#x has no free page slot", s.base)
	st.claimPage(td, s, p)
	return p
}

func (st *segmentsTLD) claimPage(td *tld, s *segment, p *page) {
	p.inUse = true
	s.used++
	if s.used == s.capacity && s.inSmallFree {
		st.smallFree.remove(s)
		s.inSmallFree = false
	}
	_, area := s.pageArea(p.index)
	td.stats.Pages.increase(1)
	td.stats.Committed.increase(int64(area))
}

// pageFree returns p to its segment. The page must already be out of every
// heap queue.
func (st *segmentsTLD) pageFree(td *tld, p *page) {
	s := p.segment
	bin := binFor(p.blockSize)
	if s.kind == PageHuge {
		td.stats.Huge.decrease(int64(p.blockSize))
	}
	p.reset()
	p.inUse = false
	s.used--
	_, area := s.pageArea(p.index)
	td.stats.Pages.decrease(1)
	td.stats.Committed.decrease(int64(area))
	if bin < len(td.stats.Normal) {
		td.stats.Normal[bin].decrease(1)
	}
	switch {
	case s.used == 0:
		st.segmentFree(td, s)
	case s.abandoned > 0 && s.abandoned == s.used:
		// The last owned page of a finishing thread's segment went back.
		st.segmentAbandon(td, s)
	case s.kind == PageSmall && !s.inSmallFree:
		st.smallFree.push(s)
		s.inSmallFree = true
	}
}

// pageAbandon marks a live page of a finishing thread. Once every claimed
// page of the segment is abandoned the segment goes on the global list.
func (st *segmentsTLD) pageAbandon(td *tld, p *page) {
	s := p.segment
	s.abandoned++
	td.stats.PagesAbandoned.increase(1)
	if s.abandoned == s.used {
		st.segmentAbandon(td, s)
	}
}

func (st *segmentsTLD) segmentAbandon(td *tld, s *segment) {
	if s.inSmallFree {
		st.smallFree.remove(s)
		s.inSmallFree = false
	}
	st.untrack(s.size)
	s.threadID.Store(0)
	td.stats.Segments.decrease(1)
	td.stats.Reserved.decrease(int64(s.size))
	td.stats.SegmentsAbandoned.increase(1)
	abandonedPush(s)
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("segment abandoned", "base", s.base, "pages", s.abandoned)
	}
}

// reclaim adopts one abandoned segment into h. Pages emptied by foreign frees
// since abandonment go back to the segment; the rest join h's queues.
// Reports whether a segment was taken.
func (st *segmentsTLD) reclaim(h *heap) bool {
	s := abandonedPop()
	if s == nil {
		return false
	}
	td := h.tld
	s.threadID.Store(h.threadID)
	st.track(s.size)
	td.stats.Segments.increase(1)
	td.stats.Reserved.increase(int64(s.size))
	td.stats.SegmentsAbandoned.decrease(1)
	td.stats.PagesAbandoned.decrease(int64(s.abandoned))
	s.abandoned = 0

	adopted := 0
	for i := range s.pages {
		p := &s.pages[i]
		if !p.inUse {
			continue
		}
		p.collectAll()
		if p.allFree() {
			st.pageFree(td, p)
			if s.used == 0 {
				break
			}
			continue
		}
		p.heap.Store(h)
		h.queuePush(h.queueOf(p), p)
		adopted++
	}
	if s.used > 0 && s.kind == PageSmall && s.used < s.capacity && !s.inSmallFree {
		st.smallFree.push(s)
		s.inSmallFree = true
	}
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("segment reclaimed", "base", s.base, "thread", h.threadID, "pages", adopted)
	}
	return true
}
