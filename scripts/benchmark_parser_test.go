package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/ntmalloc/internal/writer"
)

const sampleOutput = `goos: linux
goarch: amd64
pkg: github.com/joshuapare/ntmalloc/alloc
BenchmarkMallocFree/64_B-8         	52000000	        22.50 ns/op	       0 B/op	       0 allocs/op
BenchmarkMallocFree/1.0_KiB-8      	50000000	        24.00 ns/op	       0 B/op	       0 allocs/op
{"Action":"output","Output":"BenchmarkRemoteFree-8   10000000   110.0 ns/op   16 B/op   1 allocs/op\n"}
PASS
`

func TestParseBenchmarks(t *testing.T) {
	results := parseBenchmarks(strings.NewReader(sampleOutput))
	require.Len(t, results, 3)

	r := results[0]
	assert.Equal(t, "BenchmarkMallocFree/64_B", r.Name)
	assert.Equal(t, 8, r.Procs)
	assert.InDelta(t, 22.5, r.NsPerOp, 1e-9)

	remote := results[2]
	assert.Equal(t, "BenchmarkRemoteFree", remote.Name)
	assert.Equal(t, int64(16), remote.BytesPerOp)
	assert.Equal(t, int64(1), remote.AllocsPerOp)
}

func TestCompareAndReport(t *testing.T) {
	current := parseBenchmarks(strings.NewReader(sampleOutput))
	base := []BenchmarkResult{{Name: "BenchmarkMallocFree/64_B", NsPerOp: 45}}

	comps := compare(current, base)
	var found bool
	for _, c := range comps {
		if c.Name != "BenchmarkMallocFree/64_B" {
			_, ok := c.Delta()
			assert.False(t, ok, "%s has a delta without a baseline", c.Name)
			continue
		}
		found = true
		d, ok := c.Delta()
		require.True(t, ok)
		assert.InDelta(t, -0.5, d, 1e-9)
	}
	require.True(t, found, "baseline benchmark missing from comparison")

	report := generateMarkdownReport(comps, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	for _, want := range []string{"Generated: 2025-01-02 03:04:05", "1 faster", "-50.0%", "| RemoteFree |"} {
		assert.Contains(t, report, want)
	}
}

func TestWriteReport(t *testing.T) {
	current := parseBenchmarks(strings.NewReader(sampleOutput))
	sink := &writer.MemWriter{}

	require.NoError(t, writeReport(sink, current, nil, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, 1, sink.Writes)
	report := string(sink.Buf)
	assert.Contains(t, report, "| Benchmark | ns/op | B/op | allocs/op |")
	assert.Contains(t, report, "| MallocFree/64_B | 22.5 | 0 | 0 |")
	assert.NotContains(t, report, "base ns/op")
}
