package ntmalloc

import (
	"io"

	"github.com/joshuapare/ntmalloc/alloc"
)

// Options tunes the allocator. Zero fields keep the default.
type Options struct {
	// SegmentCache bounds how many vacated 4 MiB segments a thread keeps
	// mapped for reuse. Negative disables the cache.
	SegmentCache int

	// PageExtend is how many bytes of a page are carved into blocks at a time.
	PageExtend int

	// ReserveLimit caps the bytes the process maps from the OS.
	ReserveLimit int64

	// PlainFreeLists stores free-list links unencoded. Slightly faster, but
	// a stray write into freed memory is no longer caught.
	PlainFreeLists bool

	// Entropy seeds the allocator's cookies. Defaults to crypto/rand.
	Entropy io.Reader

	// LogLevel enables logging at debug, info, warn or error.
	LogLevel string

	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer

	// LogDir writes logs to a dated file in this directory instead.
	LogDir string
}

// DefaultOptions returns the defaults with environment overrides applied.
func DefaultOptions() *Options {
	cfg := alloc.FromEnv(alloc.DefaultConfig)
	return &Options{
		SegmentCache:   cfg.SegmentCacheMax,
		PageExtend:     cfg.PageExtendBytes,
		ReserveLimit:   cfg.ReserveLimit,
		PlainFreeLists: !cfg.EncodeFreeList,
		LogLevel:       cfg.LogLevel,
	}
}

func (o *Options) config() alloc.Config {
	cfg := alloc.FromEnv(alloc.DefaultConfig)
	if o == nil {
		return cfg
	}
	switch {
	case o.SegmentCache < 0:
		cfg.SegmentCacheMax = 0
	case o.SegmentCache > 0:
		cfg.SegmentCacheMax = o.SegmentCache
	}
	if o.PageExtend > 0 {
		cfg.PageExtendBytes = o.PageExtend
	}
	if o.ReserveLimit > 0 {
		cfg.ReserveLimit = o.ReserveLimit
	}
	if o.PlainFreeLists {
		cfg.EncodeFreeList = false
	}
	if o.Entropy != nil {
		cfg.Entropy = o.Entropy
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogOutput != nil {
		cfg.LogOutput = o.LogOutput
	}
	if o.LogDir != "" {
		cfg.LogDir = o.LogDir
	}
	return cfg
}

// Configure applies opts. A nil opts restores the defaults.
func Configure(opts *Options) {
	alloc.Configure(opts.config())
}
