package alloc

import (
	"testing"

	"github.com/dustin/go-humanize"
)

func BenchmarkMallocFree(b *testing.B) {
	for _, size := range []uintptr{16, 64, 256, 1024, 8192, 65536} {
		b.Run(humanize.IBytes(uint64(size)), func(b *testing.B) {
			th := NewThread()
			defer th.Done()
			b.ReportAllocs()
			for b.Loop() {
				th.Free(th.Malloc(size))
			}
		})
	}
}

func BenchmarkMallocBatch(b *testing.B) {
	th := NewThread()
	defer th.Done()
	blocks := make([]uintptr, 1024)
	b.ReportAllocs()
	for b.Loop() {
		for i := range blocks {
			blocks[i] = th.Malloc(48)
		}
		for _, x := range blocks {
			th.Free(x)
		}
	}
}

func BenchmarkPooledMallocFree(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Free(Malloc(64))
		}
	})
}

func BenchmarkRemoteFree(b *testing.B) {
	owner := NewThread()
	freer := NewThread()
	defer owner.Done()
	b.ReportAllocs()
	for b.Loop() {
		freer.Free(owner.Malloc(64))
	}
}
