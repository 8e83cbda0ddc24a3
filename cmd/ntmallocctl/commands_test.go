package main

import (
	"context"
	"testing"
	"time"

	"github.com/joshuapare/ntmalloc/pkg/ntmalloc"
)

func TestClassesCommand(t *testing.T) {
	out, err := captureOutput(t, runClasses)
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	assertContains(t, out, []string{"bin", "blocks/page", "small", "large", "yes"})

	withJSON(t, func() {
		out, err = captureOutput(t, runClasses)
	})
	if err != nil {
		t.Fatalf("classes --json: %v", err)
	}
	var classes []ntmalloc.SizeClass
	assertJSON(t, out, &classes)
	if len(classes) != len(ntmalloc.SizeClasses()) {
		t.Fatalf("got %d classes, want %d", len(classes), len(ntmalloc.SizeClasses()))
	}
	if classes[0].BlockSize != ntmalloc.WordSize {
		t.Errorf("first class block size %d, want %d", classes[0].BlockSize, ntmalloc.WordSize)
	}
}

func TestWorkloadRun(t *testing.T) {
	tests := []struct {
		name string
		w    workload
	}{
		{"single worker", workload{Workers: 1, Ops: 2000, MaxSize: 512, KeepLive: 64, Seed: 1, CheckEach: 500}},
		{"handoff", workload{Workers: 4, Ops: 3000, MaxSize: 4096, Handoff: 0.5, KeepLive: 32, Seed: 2, CheckEach: 1000}},
		{"large blocks", workload{Workers: 2, Ops: 200, MaxSize: 1 << 20, Handoff: 0.3, KeepLive: 8, Seed: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.w.run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			want := int64(tt.w.Workers * tt.w.Ops)
			if res.Allocs+res.Failures != want {
				t.Errorf("allocs %d + failures %d, want %d", res.Allocs, res.Failures, want)
			}
			if res.Frees != res.Allocs {
				t.Errorf("frees %d != allocs %d", res.Frees, res.Allocs)
			}
			if tt.w.Handoff == 0 && res.RemoteFrees != 0 {
				t.Errorf("remote frees %d without handoff", res.RemoteFrees)
			}
		})
	}
}

func TestWorkloadStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w := workload{Workers: 2, Ops: 0, MaxSize: 256, KeepLive: 16, Handoff: 0.2}
	res, err := w.run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Frees != res.Allocs {
		t.Errorf("frees %d != allocs %d", res.Frees, res.Allocs)
	}
}

func TestStatsCommand(t *testing.T) {
	prev := statsOpts
	statsOpts = workload{Workers: 2, Ops: 1000, MaxSize: 2048, KeepLive: 64, Seed: 9}
	defer func() { statsOpts = prev }()

	out, err := captureOutput(t, runStats)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	assertContains(t, out, []string{"segments", "reserved", "threads", "searches"})

	withJSON(t, func() {
		out, err = captureOutput(t, runStats)
	})
	if err != nil {
		t.Fatalf("stats --json: %v", err)
	}
	var decoded struct {
		Result workloadResult `json:"result"`
		Stats  ntmalloc.Stats `json:"stats"`
	}
	assertJSON(t, out, &decoded)
	if decoded.Result.Allocs == 0 {
		t.Error("no allocations reported")
	}
	if decoded.Stats.Threads.Freed == 0 {
		t.Error("finished threads were not merged")
	}
}

func TestInfoCommand(t *testing.T) {
	withJSON(t, func() {
		out, err := captureOutput(t, runInfo)
		if err != nil {
			t.Fatalf("info: %v", err)
		}
		var info systemInfo
		assertJSON(t, out, &info)
		if info.SegmentSize != uint64(ntmalloc.SegmentSize) {
			t.Errorf("segment size %d, want %d", info.SegmentSize, ntmalloc.SegmentSize)
		}
	})
}

func TestBenchSize(t *testing.T) {
	prevIters, prevThreads, prevBatch := benchIters, benchThreads, benchBatch
	benchIters, benchThreads, benchBatch = 10_000, 2, 100
	defer func() { benchIters, benchThreads, benchBatch = prevIters, prevThreads, prevBatch }()

	r := benchSize(64)
	if r.Ops != 20_000 {
		t.Errorf("ops %d, want 20000", r.Ops)
	}
	if r.NsPerOp <= 0 {
		t.Errorf("ns/op %f", r.NsPerOp)
	}
}

func TestTopModelView(t *testing.T) {
	done := make(chan error)
	m := newTopModel(func() {}, done, nil)
	m.sample()
	view := m.View()
	assertContains(t, view, []string{"ntmalloc top", "mapped", "live threads", "q to quit"})
}

func TestVersionCommand(t *testing.T) {
	out, err := captureOutput(t, runVersion)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	assertContains(t, out, []string{"ntmallocctl dev", "4.0 MiB segments", "commit: none"})

	withJSON(t, func() {
		out, err = captureOutput(t, runVersion)
	})
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info versionInfo
	assertJSON(t, out, &info)
	if info.Version != version || info.SegmentSize != uint64(ntmalloc.SegmentSize) {
		t.Errorf("unexpected version info %+v", info)
	}
}
