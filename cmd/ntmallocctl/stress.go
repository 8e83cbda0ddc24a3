package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

var stressOpts = workload{
	Workers:   8,
	Ops:       200_000,
	MaxSize:   4096,
	Handoff:   0.25,
	KeepLive:  256,
	CheckEach: 10_000,
}

var stressDuration time.Duration

func init() {
	cmd := newStressCmd()
	addWorkloadFlags(cmd, &stressOpts)
	cmd.Flags().DurationVar(&stressDuration, "duration", 0, "Stop after this long (0 runs all ops)")
	rootCmd.AddCommand(cmd)
}

// addWorkloadFlags binds the workload knobs shared by stress, stats and top.
func addWorkloadFlags(cmd *cobra.Command, w *workload) {
	cmd.Flags().IntVarP(&w.Workers, "goroutines", "g", w.Workers, "Worker goroutines, each with its own thread")
	cmd.Flags().IntVarP(&w.Ops, "ops", "n", w.Ops, "Allocations per worker (0 runs until stopped)")
	cmd.Flags().IntVar(&w.MaxSize, "max-size", w.MaxSize, "Largest request in bytes")
	cmd.Flags().Float64Var(&w.Handoff, "handoff", w.Handoff, "Share of blocks freed by another worker")
	cmd.Flags().IntVar(&w.KeepLive, "keep", w.KeepLive, "Blocks each worker keeps live")
	cmd.Flags().Uint64Var(&w.Seed, "seed", w.Seed, "Random seed")
	cmd.Flags().IntVar(&w.CheckEach, "check-every", w.CheckEach, "Ops between invariant checks (0 disables)")
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a cross-thread allocation stress test",
		Long: `The stress command runs worker goroutines that allocate random sizes,
fill every block with a pattern, and pass a share of their blocks to other
workers to free. Patterns are verified before every free and each thread's heap
invariants are checked periodically. Any corruption fails the run.

Example:
  ntmallocctl stress
  ntmallocctl stress -g 32 --handoff 0.5 --duration 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
}

func runStress(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if stressDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stressDuration)
		defer cancel()
	} else if stressOpts.Ops == 0 {
		return fmt.Errorf("--ops 0 needs --duration")
	}
	if stressOpts.Seed == 0 {
		stressOpts.Seed = uint64(time.Now().UnixNano())
	}

	printVerbose("stress: %d workers, seed %d\n", stressOpts.Workers, stressOpts.Seed)
	start := time.Now()
	res, err := stressOpts.run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("stress failed after %s: %w", elapsed.Round(time.Millisecond), err)
	}

	if jsonOut {
		return printJSON(struct {
			Workload workload       `json:"workload"`
			Result   workloadResult `json:"result"`
			Elapsed  string         `json:"elapsed"`
			Reserved int64          `json:"reserved_bytes"`
		}{stressOpts, res, elapsed.String(), ntmalloc.ReservedBytes()})
	}
	printInfo("ok: %s allocations, %s frees (%s remote), %d invariant checks in %s\n",
		humanize.Comma(res.Allocs), humanize.Comma(res.Frees), humanize.Comma(res.RemoteFrees),
		res.Checks, elapsed.Round(time.Millisecond))
	printInfo("touched %s, %s still mapped, %d segments awaiting reclaim\n",
		humanize.IBytes(uint64(res.BytesTouched)), humanize.IBytes(uint64(ntmalloc.ReservedBytes())),
		ntmalloc.AbandonedSegments())
	if res.Failures > 0 {
		printInfo("%d allocations failed (out of memory)\n", res.Failures)
	}
	return nil
}
