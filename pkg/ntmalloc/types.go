package ntmalloc

import "github.com/joshuapare/ntmalloc/alloc"

// Re-export the engine types so callers only import pkg/ntmalloc.

type (
	Stats          = alloc.Stats
	StatCount      = alloc.StatCount
	StatCounter    = alloc.StatCounter
	SizeClass      = alloc.SizeClass
	PageKind       = alloc.PageKind
	InvariantError = alloc.InvariantError
)

// Errors.
var (
	ErrOutOfMemory  = alloc.ErrOutOfMemory
	ErrSizeOverflow = alloc.ErrSizeOverflow
	ErrUnsupported  = alloc.ErrUnsupported
	ErrBadAlignment = alloc.ErrBadAlignment
)

// Layout.
const (
	WordSize      = alloc.WordSize
	SegmentSize   = alloc.SegmentSize
	SmallPageSize = alloc.SmallPageSize
	SmallSizeMax  = alloc.SmallSizeMax
	LargeSizeMax  = alloc.LargeSizeMax
)
