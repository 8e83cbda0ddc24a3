// Command benchmark_parser turns `go test -bench` output of the allocator
// benchmarks into a markdown report. Given a baseline run it also reports the
// change per benchmark.
//
//	go test -bench . -benchmem ./alloc/ > new.txt
//	go run ./scripts -base old.txt -input new.txt -output report.md
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/ntmalloc/internal/writer"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string // without the -GOMAXPROCS suffix
	Procs       int
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs a benchmark with its baseline.
type ComparisonResult struct {
	Name    string
	Current BenchmarkResult
	Base    *BenchmarkResult
}

// Delta is the relative change in ns/op against the baseline; negative is
// faster.
func (c ComparisonResult) Delta() (float64, bool) {
	if c.Base == nil || c.Base.NsPerOp == 0 {
		return 0, false
	}
	return (c.Current.NsPerOp - c.Base.NsPerOp) / c.Base.NsPerOp, true
}

var (
	inputFile  = flag.String("input", "", "Benchmark output to report (stdin if not specified)")
	baseFile   = flag.String("base", "", "Baseline benchmark output to compare against")
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// BenchmarkMallocFree/64_B-8    50000000    23.4 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+?)(?:-(\d+))?\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func main() {
	flag.Parse()

	current, err := readResults(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	var base []BenchmarkResult
	if *baseFile != "" {
		if base, err = readResults(*baseFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading baseline: %v\n", err)
			os.Exit(1)
		}
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results (%d baseline)\n", len(current), len(base))
	}

	if err := writeReport(writer.For(*outputFile), current, base, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	if !*quiet && *outputFile != "" {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// writeReport renders the comparison of current against base into sink.
func writeReport(sink writer.Sink, current, base []BenchmarkResult, now time.Time) error {
	return sink.WriteReport([]byte(generateMarkdownReport(compare(current, base), now)))
}

func readResults(path string) ([]BenchmarkResult, error) {
	if path == "" {
		return parseBenchmarks(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBenchmarks(f), nil
}

// parseBenchmarks reads plain or `go test -json` benchmark output. A benchmark
// reported more than once keeps its last result.
func parseBenchmarks(r io.Reader) []BenchmarkResult {
	byName := make(map[string]BenchmarkResult)
	var order []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		res := BenchmarkResult{Name: matches[1]}
		res.Procs, _ = strconv.Atoi(matches[2])
		res.Iterations, _ = strconv.Atoi(matches[3])
		res.NsPerOp, _ = strconv.ParseFloat(matches[4], 64)
		if matches[5] != "" {
			res.BytesPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}
		if matches[6] != "" {
			res.AllocsPerOp, _ = strconv.ParseInt(matches[6], 10, 64)
		}
		if _, seen := byName[res.Name]; !seen {
			order = append(order, res.Name)
		}
		byName[res.Name] = res
	}

	results := make([]BenchmarkResult, 0, len(order))
	for _, name := range order {
		results = append(results, byName[name])
	}
	return results
}

func compare(current, base []BenchmarkResult) []ComparisonResult {
	baseByName := make(map[string]BenchmarkResult, len(base))
	for _, b := range base {
		baseByName[b.Name] = b
	}
	comparisons := make([]ComparisonResult, 0, len(current))
	for _, c := range current {
		comp := ComparisonResult{Name: c.Name, Current: c}
		if b, ok := baseByName[c.Name]; ok {
			comp.Base = &b
		}
		comparisons = append(comparisons, comp)
	}
	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Name < comparisons[j].Name
	})
	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	faster, slower, compared := 0, 0, 0
	for _, c := range comparisons {
		d, ok := c.Delta()
		if !ok {
			continue
		}
		compared++
		switch {
		case d < -0.05:
			faster++
		case d > 0.05:
			slower++
		}
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Benchmarks**: %d\n", len(comparisons))
	if compared > 0 {
		fmt.Fprintf(&sb, "- **Compared with baseline**: %d (%d faster, %d slower by more than 5%%)\n",
			compared, faster, slower)
	}
	sb.WriteString("\n## Results\n\n")

	if compared > 0 {
		sb.WriteString("| Benchmark | ns/op | base ns/op | delta | B/op | allocs/op |\n")
		sb.WriteString("|---|---:|---:|---:|---:|---:|\n")
	} else {
		sb.WriteString("| Benchmark | ns/op | B/op | allocs/op |\n")
		sb.WriteString("|---|---:|---:|---:|\n")
	}
	for _, c := range comparisons {
		name := strings.TrimPrefix(c.Name, "Benchmark")
		if compared == 0 {
			fmt.Fprintf(&sb, "| %s | %.1f | %d | %d |\n",
				name, c.Current.NsPerOp, c.Current.BytesPerOp, c.Current.AllocsPerOp)
			continue
		}
		baseNs, delta := "-", "-"
		if d, ok := c.Delta(); ok {
			baseNs = fmt.Sprintf("%.1f", c.Base.NsPerOp)
			delta = fmt.Sprintf("%+.1f%%", d*100)
		}
		fmt.Fprintf(&sb, "| %s | %.1f | %s | %s | %d | %d |\n",
			name, c.Current.NsPerOp, baseNs, delta, c.Current.BytesPerOp, c.Current.AllocsPerOp)
	}
	return sb.String()
}
