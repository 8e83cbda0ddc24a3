package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

// workload configures a cross-thread allocation run: every worker owns a
// Thread, fills each block with a pattern and hands a share of its blocks to
// other workers to free.
type workload struct {
	Workers   int     `json:"workers"`
	Ops       int     `json:"ops"`       // per worker, 0 runs until cancelled
	MaxSize   int     `json:"max_size"`  // upper bound of a random request
	Handoff   float64 `json:"handoff"`   // share of blocks freed by another worker
	KeepLive  int     `json:"keep_live"` // blocks each worker holds at most
	Seed      uint64  `json:"seed"`
	CheckEach int     `json:"check_each"` // ops between invariant checks, 0 disables
}

type workloadResult struct {
	Allocs       int64 `json:"allocs"`
	Frees        int64 `json:"frees"`
	RemoteFrees  int64 `json:"remote_frees"`
	Failures     int64 `json:"failures"`
	Checks       int64 `json:"invariant_checks"`
	BytesTouched int64 `json:"bytes_touched"`
}

var errCorrupted = errors.New("block contents changed while live")

type liveBlock struct {
	p    unsafe.Pointer
	size int
	fill byte
}

func (b liveBlock) verify() error {
	for i, v := range unsafe.Slice((*byte)(b.p), b.size) {
		if v != b.fill {
			return fmt.Errorf("%w: %p byte %d = %#x, want %#x", errCorrupted, b.p, i, v, b.fill)
		}
	}
	return nil
}

// run executes the workload until every worker finished its ops or ctx is
// cancelled.
func (w workload) run(ctx context.Context) (workloadResult, error) {
	var (
		allocs, frees, remote atomic.Int64
		failures, checks      atomic.Int64
		touched               atomic.Int64
		errMu                 sync.Mutex
		first                 error
	)
	setErr := func(err error) {
		errMu.Lock()
		if first == nil {
			first = err
		}
		errMu.Unlock()
	}

	workers := max(1, w.Workers)
	inboxes := make([]chan liveBlock, workers)
	for i := range inboxes {
		inboxes[i] = make(chan liveBlock, 1024)
	}
	maxSize := max(1, w.MaxSize)
	keep := max(1, w.KeepLive)

	var wg sync.WaitGroup
	for id := range workers {
		wg.Go(func() {
			th := ntmalloc.NewThread()
			defer th.Done()
			rng := rand.New(rand.NewPCG(w.Seed, uint64(id)))
			var held []liveBlock

			release := func(b liveBlock, t *ntmalloc.Thread) bool {
				if err := b.verify(); err != nil {
					setErr(err)
					return false
				}
				t.Free(b.p)
				frees.Add(1)
				return true
			}
			drain := func() bool {
				for {
					select {
					case b := <-inboxes[id]:
						if !release(b, th) {
							return false
						}
						remote.Add(1)
					default:
						return true
					}
				}
			}

			for op := 0; w.Ops == 0 || op < w.Ops; op++ {
				if ctx.Err() != nil {
					break
				}
				size := 1 + rng.IntN(maxSize)
				p := th.Malloc(uintptr(size))
				if p == nil {
					failures.Add(1)
					continue
				}
				allocs.Add(1)
				b := liveBlock{p: p, size: size, fill: byte(rng.Uint32())}
				data := unsafe.Slice((*byte)(p), size)
				for i := range data {
					data[i] = b.fill
				}
				touched.Add(int64(size))
				held = append(held, b)

				if len(held) > keep {
					k := rng.IntN(len(held))
					victim := held[k]
					held[k] = held[len(held)-1]
					held = held[:len(held)-1]
					handed := false
					if rng.Float64() < w.Handoff {
						select {
						case inboxes[rng.IntN(workers)] <- victim:
							handed = true
						default:
						}
					}
					if !handed && !release(victim, th) {
						return
					}
				}
				if !drain() {
					return
				}
				if w.CheckEach > 0 && op%w.CheckEach == 0 {
					if err := th.CheckInvariants(); err != nil {
						setErr(err)
						return
					}
					checks.Add(1)
				}
			}
			for _, b := range held {
				if !release(b, th) {
					return
				}
			}
		})
	}
	wg.Wait()

	// Blocks still in flight belong to finished threads; free them here.
	th := ntmalloc.NewThread()
	defer th.Done()
	for _, in := range inboxes {
		close(in)
		for b := range in {
			if err := b.verify(); err != nil {
				setErr(err)
				continue
			}
			th.Free(b.p)
			frees.Add(1)
			remote.Add(1)
		}
	}

	res := workloadResult{
		Allocs:       allocs.Load(),
		Frees:        frees.Load(),
		RemoteFrees:  remote.Load(),
		Failures:     failures.Load(),
		Checks:       checks.Load(),
		BytesTouched: touched.Load(),
	}
	return res, first
}
