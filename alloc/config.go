package alloc

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/ntmalloc/internal/logger"
)

// Config tunes the allocator. Changes made with Configure apply to threads
// initialised afterwards; the entropy source and log settings are read at
// process initialisation.
type Config struct {
	// SegmentCacheMax bounds how many vacated segments a thread keeps mapped
	// for reuse. Zero disables the cache.
	SegmentCacheMax int

	// PageExtendBytes is how much of a page is carved into blocks at a time.
	// At least one block is always added.
	PageExtendBytes int

	// ReserveLimit caps the bytes mapped from the OS by the whole process.
	// Zero means unlimited. Requests past the cap fail as out of memory.
	ReserveLimit int64

	// EncodeFreeList xors free-list links with the page cookie so a stray
	// write into freed memory is caught instead of being followed.
	EncodeFreeList bool

	// Entropy seeds cookies and per-heap random streams. Defaults to crypto/rand.
	Entropy io.Reader

	// LogLevel enables allocator logging at debug, info, warn or error.
	// Empty leaves the logger as configured elsewhere.
	LogLevel string

	// LogOutput receives log records when LogLevel is set. Defaults to stderr.
	LogOutput io.Writer

	// LogDir, when set, sends log records to a dated file in this directory
	// instead of LogOutput.
	LogDir string
}

// DefaultConfig is used until Configure is called, after environment overrides.
var DefaultConfig = Config{
	SegmentCacheMax: 16,
	PageExtendBytes: 4 << 10,
	EncodeFreeList:  true,
}

// Environment overrides read by FromEnv.
const (
	EnvReserveLimit = "NTMALLOC_RESERVE_LIMIT" // bytes, humanized sizes accepted ("512MiB")
	EnvSegmentCache = "NTMALLOC_SEGMENT_CACHE" // segments
	EnvPageExtend   = "NTMALLOC_PAGE_EXTEND"   // bytes, humanized sizes accepted
	EnvLog          = "NTMALLOC_LOG"           // debug|info|warn|error
)

var config atomic.Pointer[Config]

// Configure replaces the active configuration.
func Configure(cfg Config) {
	c := cfg.normalized()
	config.Store(&c)
	if processState.Load() == stateInitialized {
		applyLogging(&c)
	}
}

// CurrentConfig returns a copy of the active configuration.
func CurrentConfig() Config {
	return *currentConfig()
}

func currentConfig() *Config {
	if c := config.Load(); c != nil {
		return c
	}
	c := FromEnv(DefaultConfig).normalized()
	config.CompareAndSwap(nil, &c)
	return config.Load()
}

// FromEnv returns base with any NTMALLOC_* environment overrides applied.
// Malformed values are ignored.
func FromEnv(base Config) Config {
	if v := os.Getenv(EnvReserveLimit); v != "" {
		if n, err := humanize.ParseBytes(v); err == nil {
			base.ReserveLimit = int64(n)
		}
	}
	if v := os.Getenv(EnvSegmentCache); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			base.SegmentCacheMax = n
		}
	}
	if v := os.Getenv(EnvPageExtend); v != "" {
		if n, err := humanize.ParseBytes(v); err == nil {
			base.PageExtendBytes = int(n)
		}
	}
	if v := os.Getenv(EnvLog); v != "" {
		base.LogLevel = v
	}
	return base
}

func (c Config) normalized() Config {
	if c.SegmentCacheMax < 0 {
		c.SegmentCacheMax = 0
	}
	if c.PageExtendBytes < int(WordSize) {
		c.PageExtendBytes = DefaultConfig.PageExtendBytes
	}
	if c.ReserveLimit < 0 {
		c.ReserveLimit = 0
	}
	if c.Entropy == nil {
		c.Entropy = rand.Reader
	}
	return c
}

// logWarnings receives problems setting up logging itself.
var logWarnings io.Writer = os.Stderr

func applyLogging(c *Config) {
	level, ok := logger.ParseLevel(c.LogLevel)
	if !ok {
		return
	}
	if err := logger.Init(logger.Options{
		Enabled: true,
		Level:   level,
		Output:  c.LogOutput,
		LogDir:  c.LogDir,
	}); err != nil {
		fmt.Fprintf(logWarnings, "Warning: failed to init logging: %v\n", err)
	}
}
