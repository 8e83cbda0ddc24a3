package alloc

import (
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/joshuapare/ntmalloc/internal/logger"
)

// Process lifecycle states.
const (
	stateUninitialized int32 = iota
	stateInitializing
	stateInitialized
	stateTornDown
)

var processState atomic.Int32

// The bootstrap thread is statically allocated so the first allocation on it
// needs nothing from the Go heap beyond what package initialisation set up.
var (
	heapMain   heap
	tldMain    tld
	threadMain Thread
)

func init() {
	if err := checkBinTable(&binTable); err != nil {
		panic(&InvariantError{Component: "size classes", Detail: err.Error()})
	}
	heapEmpty.initQueues()

	heapMain.initQueues()
	heapMain.tld = &tldMain
	tldMain.heapBacking = &heapMain
	threadMain = Thread{id: threadIDs.Add(1), heap: &heapMain, tld: &tldMain, main: true}
	heapMain.threadID = threadMain.id
}

// ProcessInit seeds the random state and applies configuration. It runs
// implicitly on the first slow-path allocation; calling it again is a no-op.
// Concurrent callers wait for the first one to finish.
func ProcessInit() {
	for {
		switch s := processState.Load(); s {
		case stateInitialized:
			return
		case stateInitializing:
			runtime.Gosched()
		default:
			if processState.CompareAndSwap(s, stateInitializing) {
				processInit()
				processState.Store(stateInitialized)
				return
			}
		}
	}
}

func processInit() {
	cfg := currentConfig()
	applyLogging(cfg)
	seedProcessRandom(cfg.Entropy)
	if logger.Enabled(slog.LevelInfo) {
		logger.Info("process init",
			"segment_size", SegmentSize,
			"small_page_size", SmallPageSize,
			"reserve_limit", cfg.ReserveLimit,
			"segment_cache", cfg.SegmentCacheMax)
	}
}

// bootstrap completes the static main heap. It runs on the goroutine using
// the main thread, on its first slow-path allocation.
func (t *Thread) bootstrap() {
	ProcessInit()
	td := t.tld
	td.config = currentConfig()
	t.heap.random = nextProcessRandom()
	t.heap.cookie = t.heap.randomNext() | 1
	td.counted = true
	statsMain.Threads.increaseAtomic(1)
}

// ProcessDone tears down the bootstrap thread and merges its statistics. It
// is best effort: other threads keep their heaps until they finish. Safe to
// call without ProcessInit and more than once.
func ProcessDone() {
	if !processState.CompareAndSwap(stateInitialized, stateTornDown) {
		return
	}
	threadMain.Done()
	if logger.Enabled(slog.LevelInfo) {
		st := ProcessStats()
		logger.Info("process done", "threads", st.Threads.Current, "reserved_peak", st.Reserved.Peak)
	}
}

// Main returns the bootstrap thread. It is meant for the program's main
// goroutine; like any Thread it must not allocate from two goroutines at once.
func Main() *Thread { return &threadMain }
