package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the size classes",
		Long: `The classes command prints the bin table: the block size of every bin,
the kind of page it lives on, how many blocks fit a page, and whether the bin is
reachable through the direct-lookup fast path.

Example:
  ntmallocctl classes
  ntmallocctl classes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
}

func runClasses() error {
	classes := ntmalloc.SizeClasses()
	if jsonOut {
		return printJSON(classes)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "bin\tblock\tbytes\tpage\tblocks/page\tdirect\t")
	for _, c := range classes {
		direct := ""
		if c.Direct {
			direct = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%s\t\n",
			c.Bin, humanize.IBytes(uint64(c.BlockSize)), c.BlockSize, c.Kind, c.Blocks, direct)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printVerbose("\n%d bins; larger requests get a dedicated segment\n", len(classes))
	return nil
}
