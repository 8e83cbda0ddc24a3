package main

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/cloudfoundry/gosigar"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show allocator layout and system memory",
		Long: `The info command prints the allocator's layout constants, its current
configuration and the memory of the machine it runs on.

Example:
  ntmallocctl info
  ntmallocctl info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	})
}

type systemInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	CPUs          int    `json:"cpus"`
	WordSize      uint64 `json:"word_size"`
	SegmentSize   uint64 `json:"segment_size"`
	SmallPageSize uint64 `json:"small_page_size"`
	SmallSizeMax  uint64 `json:"small_size_max"`
	LargeSizeMax  uint64 `json:"large_size_max"`
	ReserveLimit  int64  `json:"reserve_limit"`
	SegmentCache  int    `json:"segment_cache"`
	PageExtend    int    `json:"page_extend"`
	MemTotal      uint64 `json:"mem_total"`
	MemUsed       uint64 `json:"mem_used"`
	MemFree       uint64 `json:"mem_free"`
}

// getsysmem reports the machine's memory. Zero when unavailable.
func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.ActualFree
}

func runInfo() error {
	opts := ntmalloc.DefaultOptions()
	total, used, free := getsysmem()
	info := systemInfo{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		WordSize:      uint64(ntmalloc.WordSize),
		SegmentSize:   uint64(ntmalloc.SegmentSize),
		SmallPageSize: uint64(ntmalloc.SmallPageSize),
		SmallSizeMax:  uint64(ntmalloc.SmallSizeMax),
		LargeSizeMax:  uint64(ntmalloc.LargeSizeMax),
		ReserveLimit:  opts.ReserveLimit,
		SegmentCache:  opts.SegmentCache,
		PageExtend:    opts.PageExtend,
		MemTotal:      total,
		MemUsed:       used,
		MemFree:       free,
	}
	if jsonOut {
		return printJSON(info)
	}

	limit := "unlimited"
	if info.ReserveLimit > 0 {
		limit = humanize.IBytes(uint64(info.ReserveLimit))
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"platform", info.OS + "/" + info.Arch},
		{"cpus", humanize.Comma(int64(info.CPUs))},
		{"word size", humanize.IBytes(info.WordSize)},
		{"segment size", humanize.IBytes(info.SegmentSize)},
		{"small page size", humanize.IBytes(info.SmallPageSize)},
		{"fast path up to", humanize.IBytes(info.SmallSizeMax)},
		{"pages up to", humanize.IBytes(info.LargeSizeMax)},
		{"reserve limit", limit},
		{"segment cache", humanize.Comma(int64(info.SegmentCache))},
		{"page extend", humanize.IBytes(uint64(info.PageExtend))},
	}
	if info.MemTotal > 0 {
		rows = append(rows,
			[2]string{"memory total", humanize.IBytes(info.MemTotal)},
			[2]string{"memory used", humanize.IBytes(info.MemUsed)},
			[2]string{"memory available", humanize.IBytes(info.MemFree)},
		)
	}
	if quiet {
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	return w.Flush()
}
