package main

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

var (
	benchSizes   []int
	benchIters   int
	benchBatch   int
	benchThreads int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntSliceVar(&benchSizes, "size", []int{16, 64, 256, 1024, 8192}, "Request sizes in bytes")
	cmd.Flags().IntVarP(&benchIters, "iterations", "n", 1_000_000, "Allocations per size and thread")
	cmd.Flags().IntVar(&benchBatch, "batch", 1, "Blocks held before freeing them all")
	cmd.Flags().IntVarP(&benchThreads, "threads", "t", 1, "Goroutines, each with its own thread")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Benchmark malloc/free pairs",
		Long: `The bench command times allocation and free on private threads. With
--batch above one, each thread allocates a batch of blocks before freeing them,
which exercises page extension and the free list instead of one recycled block.

Example:
  ntmallocctl bench
  ntmallocctl bench --size 48 --batch 1024 --threads 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

type benchResult struct {
	Size      int     `json:"size"`
	Threads   int     `json:"threads"`
	Ops       int64   `json:"ops"`
	Elapsed   string  `json:"elapsed"`
	NsPerOp   float64 `json:"ns_per_op"`
	OpsPerSec float64 `json:"ops_per_sec"`
}

func runBench() error {
	if benchIters <= 0 || benchThreads <= 0 || benchBatch <= 0 {
		return fmt.Errorf("iterations, threads and batch must be positive")
	}
	var results []benchResult
	for _, size := range benchSizes {
		if size < 0 {
			return fmt.Errorf("invalid size %d", size)
		}
		r := benchSize(size)
		results = append(results, r)
		if !jsonOut {
			printInfo("%10s  %8.1f ns/op  %14s ops/s  (%d threads)\n",
				humanize.IBytes(uint64(size)), r.NsPerOp, humanize.Comma(int64(r.OpsPerSec)), r.Threads)
		}
	}
	if jsonOut {
		return printJSON(results)
	}
	return nil
}

func benchSize(size int) benchResult {
	var wg sync.WaitGroup
	start := time.Now()
	for range benchThreads {
		wg.Go(func() {
			th := ntmalloc.NewThread()
			defer th.Done()
			batch := make([]unsafe.Pointer, benchBatch)
			for done := 0; done < benchIters; done += benchBatch {
				n := min(benchBatch, benchIters-done)
				for i := range n {
					batch[i] = th.Malloc(uintptr(size))
				}
				for i := range n {
					th.Free(batch[i])
				}
			}
		})
	}
	wg.Wait()
	elapsed := time.Since(start)

	ops := int64(benchIters) * int64(benchThreads)
	return benchResult{
		Size:      size,
		Threads:   benchThreads,
		Ops:       ops,
		Elapsed:   elapsed.String(),
		NsPerOp:   float64(elapsed.Nanoseconds()) * float64(benchThreads) / float64(ops),
		OpsPerSec: float64(ops) / elapsed.Seconds(),
	}
}
