package alloc

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Thread_LazyInit(t *testing.T) {
	th := NewThread()
	assert.False(t, th.initialized())
	assert.Equal(t, Stats{}, th.Stats())
	require.NoError(t, th.CheckInvariants())
	th.Collect(true)

	b := th.Malloc(24)
	require.NotZero(t, b)
	assert.True(t, th.initialized())
	assert.NotNil(t, th.tld.config)
	th.Free(b)
	th.Done()
}

func Test_Thread_DoneIsIdempotent(t *testing.T) {
	th := NewThread()
	b := th.Malloc(64)
	require.NotZero(t, b)
	td := th.tld
	require.True(t, td.counted)

	th.Done()
	th.Done()
	td.finish()
	assert.True(t, td.done.Load())
	assert.False(t, th.initialized())
	assert.False(t, td.counted, "thread count dropped exactly once")

	// The block outlives its thread and can be freed from anywhere.
	other := newTestThread(t)
	other.Free(b)

	// A finished Thread starts over on its next allocation.
	c := th.Malloc(64)
	require.NotZero(t, c)
	assert.NotSame(t, td, th.tld)
	th.Free(c)
	th.Done()
}

// Test_Thread_AbandonAndReclaim leaves live blocks behind and has another
// thread adopt their segment.
func Test_Thread_AbandonAndReclaim(t *testing.T) {
	a := NewThread()
	ah := a.NewHeap()
	b1 := ah.Malloc(3000)
	b2 := ah.Malloc(3000)
	require.NotZero(t, b1)
	require.NotZero(t, b2)
	s := segmentOf(b1)
	require.NotNil(t, s)
	p := s.pageOf(b1)
	require.Same(t, p, s.pageOf(b2))

	a.Done()
	assert.Zero(t, s.threadID.Load(), "segment has no owner once abandoned")
	assert.Nil(t, p.heap.Load())
	assert.Positive(t, AbandonedSegments())

	// A foreign free into an abandoned page lands on its thread_free list.
	freer := NewThread()
	freer.Free(b1)
	head, _ := unpack(p.threadFree.Load())
	assert.Equal(t, b1, head)

	b := newTestThread(t)
	for s.threadID.Load() != b.ID() {
		if !b.tld.segments.reclaim(b.heap) {
			t.Fatal("segment never showed up on the abandoned list")
		}
	}
	assert.Same(t, b.heap, p.heap.Load())
	assert.Equal(t, 1, p.used, "pending free collected on reclaim")
	requireInvariants(t, b)

	b.Free(b2)
	requireInvariants(t, b)
}

// Test_Thread_AbandonWithRetainedEmptyPage finishes a thread whose segment
// holds a live page in a low bin and an empty page its heap kept queued in a
// higher bin. Releasing the empty page during the sweep must still abandon
// the segment.
func Test_Thread_AbandonWithRetainedEmptyPage(t *testing.T) {
	a := NewThread()
	ah := a.NewHeap()
	live1 := ah.Malloc(8)
	live2 := ah.Malloc(8)
	spare := ah.Malloc(16)
	require.NotZero(t, live1)
	require.NotZero(t, live2)
	require.NotZero(t, spare)

	s := segmentOf(live1)
	require.NotNil(t, s)
	require.Same(t, s, segmentOf(spare))
	pl, ps := s.pageOf(live1), s.pageOf(spare)
	require.Same(t, pl, s.pageOf(live2))
	require.NotSame(t, pl, ps)
	require.Less(t, binFor(pl.blockSize), binFor(ps.blockSize))

	ah.Free(spare)
	require.True(t, ps.inUse, "lone empty page stays with its heap")
	require.Equal(t, 2, s.used)

	a.Done()
	assert.Zero(t, s.threadID.Load(), "segment has no owner once abandoned")
	assert.False(t, ps.inUse, "empty page returned to the segment")
	assert.Equal(t, 1, s.used)
	assert.Equal(t, 1, s.abandoned)
	assert.Positive(t, AbandonedSegments())

	freer := newTestThread(t)
	freer.Free(live1)

	b := newTestThread(t)
	for s.threadID.Load() != b.ID() {
		if !b.tld.segments.reclaim(b.heap) {
			t.Fatal("segment never showed up on the abandoned list")
		}
	}
	assert.Same(t, b.heap, pl.heap.Load())
	assert.Equal(t, 1, pl.used, "pending free collected on reclaim")
	assert.Zero(t, s.abandoned)
	requireInvariants(t, b)

	st := &b.tld.segments
	assert.Equal(t, int64(st.count+st.cacheCount), b.Stats().Segments.Current,
		"reclaimed segments are counted by their new owner")

	b.Free(live2)
	requireInvariants(t, b)
	assert.GreaterOrEqual(t, b.Stats().Segments.Current, int64(0))
	assert.GreaterOrEqual(t, b.Stats().Reserved.Current, int64(0))
}

func Test_Thread_FinishedWhenUnreachable(t *testing.T) {
	var td *tld
	func() {
		th := NewThread()
		require.NotZero(t, th.Malloc(64))
		td = th.tld
	}()
	assert.Eventually(t, func() bool {
		runtime.GC()
		return td.done.Load()
	}, 10*time.Second, 10*time.Millisecond)
}

func Test_Process_InitAndDone(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(ProcessInit)
	}
	wg.Wait()
	require.Equal(t, stateInitialized, processState.Load())

	m := Main()
	b := m.Malloc(100)
	require.NotZero(t, b)
	assert.True(t, m.main)
	assert.NotNil(t, m.tld.config)
	m.Free(b)

	ProcessDone()
	ProcessDone()
	assert.Equal(t, stateTornDown, processState.Load())

	// Initialisation can run again after teardown.
	ProcessInit()
	assert.Equal(t, stateInitialized, processState.Load())
	c := m.Malloc(100)
	require.NotZero(t, c)
	m.Free(c)
	requireInvariants(t, m)
}

func Test_API_PackageFunctions(t *testing.T) {
	b := Malloc(200)
	require.NotZero(t, b)
	assert.GreaterOrEqual(t, UsableSize(b), uintptr(200))
	b = Realloc(b, 4000)
	require.NotZero(t, b)
	Free(b)
	Free(0)
	assert.Zero(t, UsableSize(0))

	z := Zalloc(64)
	require.NotZero(t, z)
	Free(z)
	c := Calloc(4, 4)
	require.NotZero(t, c)
	Free(c)
	a := MallocAligned(100, 512)
	require.NotZero(t, a)
	assert.Zero(t, a&511)
	Free(a)

	hh := HeapNew()
	x := hh.Malloc(77)
	require.NotZero(t, x)
	Free(x)
	hh.Delete()
	hh.Thread().Done()
}
