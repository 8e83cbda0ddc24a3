package main

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

// Set by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type versionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Built       string `json:"built"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
	SegmentSize uint64 `json:"segment_size"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	info := versionInfo{
		Version:     version,
		Commit:      commit,
		Built:       date,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		SegmentSize: uint64(ntmalloc.SegmentSize),
	}
	if jsonOut {
		return printJSON(info)
	}
	fmt.Printf("ntmallocctl %s (%s, %s segments)\n", info.Version, info.Platform,
		humanize.IBytes(info.SegmentSize))
	fmt.Printf("  commit: %s\n", info.Commit)
	fmt.Printf("  built:  %s with %s\n", info.Built, info.GoVersion)
	return nil
}
