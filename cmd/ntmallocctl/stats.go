package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

var statsOpts = workload{
	Workers:  4,
	Ops:      50_000,
	MaxSize:  16 << 10,
	Handoff:  0.1,
	KeepLive: 512,
	Seed:     1,
}

func init() {
	cmd := newStatsCmd()
	addWorkloadFlags(cmd, &statsOpts)
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Run a workload and print allocator statistics",
		Long: `The stats command runs a deterministic workload on private threads,
finishes them so their counters merge into the process totals, and prints the
result: segments, pages, mapped and committed bytes, abandonment, OS calls and
per-bin page counts.

Example:
  ntmallocctl stats
  ntmallocctl stats --max-size 1048576 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	res, err := statsOpts.run(context.Background())
	if err != nil {
		return fmt.Errorf("workload failed: %w", err)
	}
	st := ntmalloc.ProcessStats()
	if jsonOut {
		return printJSON(struct {
			Result workloadResult `json:"result"`
			Stats  ntmalloc.Stats `json:"stats"`
		}{res, st})
	}
	printVerbose("%d allocations, %d frees\n\n", res.Allocs, res.Frees)
	return st.Print(os.Stdout)
}
