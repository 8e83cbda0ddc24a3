package alloc

// Memory layout. A segment is a SegmentSize-aligned mapping split into pages of
// one kind; every block on a page has the same size.
const (
	wordShift = 2 + ^uintptr(0)>>63

	// WordSize is the size of a machine word, the allocation granule.
	WordSize = uintptr(1) << wordShift

	SmallPageShift = 13 + wordShift     // 64KiB on 64-bit
	LargePageShift = 6 + SmallPageShift // 4MiB on 64-bit
	SegmentShift   = LargePageShift     // a large page fills a segment

	SegmentSize = uintptr(1) << SegmentShift
	SegmentMask = SegmentSize - 1

	SmallPageSize = uintptr(1) << SmallPageShift
	LargePageSize = uintptr(1) << LargePageShift

	SmallPagesPerSegment = SegmentSize / SmallPageSize
	LargePagesPerSegment = SegmentSize / LargePageSize

	// SmallWsizeMax bounds the direct-lookup fast path, in words.
	SmallWsizeMax = 128
	SmallSizeMax  = SmallWsizeMax * WordSize

	// SmallObjSizeMax is the largest block that lives on a small page.
	SmallObjSizeMax = SmallPageSize / 8

	// LargeSizeMax is the largest block that lives on a large page. Bigger
	// requests get a dedicated huge segment.
	LargeSizeMax  = LargePageSize / 8
	LargeWsizeMax = LargeSizeMax >> wordShift

	// BinHuge collects huge pages, BinFull collects exhausted pages of any size.
	BinHuge = 64
	BinFull = BinHuge + 1
)

// PageKind tells how a segment is carved into pages.
type PageKind uint8

const (
	PageSmall PageKind = iota // SmallPagesPerSegment pages
	PageLarge                 // one page spanning the segment
	PageHuge                  // one page, one block, segment sized to the request
)

func (k PageKind) String() string {
	switch k {
	case PageSmall:
		return "small"
	case PageLarge:
		return "large"
	case PageHuge:
		return "huge"
	}
	return "unknown"
}

// MarshalText renders the kind by name.
func (k PageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func wsizeFromSize(size uintptr) uintptr {
	return (size + WordSize - 1) >> wordShift
}
