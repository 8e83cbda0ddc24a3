package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ThreadFree_PackUnpack(t *testing.T) {
	for _, tag := range []delayedTag{NoDelayedFree, UseDelayedFree, DelayedFreeing} {
		head, got := unpack(pack(0x1000, tag))
		assert.Equal(t, uintptr(0x1000), head)
		assert.Equal(t, tag, got)
	}
	assert.Equal(t, "use-delayed-free", UseDelayedFree.String())
	assert.Equal(t, "invalid", delayedTag(3).String())
}

func Test_ThreadFree_ArmRefusedWhilePending(t *testing.T) {
	owner := newTestThread(t)
	hh := owner.NewHeap()
	other := NewThread()

	blocks, p := fillPage(t, hh, 128)
	other.Free(blocks[3])

	assert.False(t, p.trySetUseDelayedFree())
	p.collectThreadFree()
	head, tag := unpack(p.threadFree.Load())
	assert.Zero(t, head)
	assert.Equal(t, NoDelayedFree, tag, "splice restores the tag it found")
	assert.Equal(t, blocks[3], p.localFree)

	assert.True(t, p.trySetUseDelayedFree())
	assert.True(t, p.trySetUseDelayedFree())
	p.clearUseDelayedFree()
	_, tag = unpack(p.threadFree.Load())
	assert.Equal(t, NoDelayedFree, tag)
}

// Test_ThreadFree_ConcurrentFreesAllArrive frees every block of a page from
// several goroutines while the owner keeps splicing.
func Test_ThreadFree_ConcurrentFreesAllArrive(t *testing.T) {
	owner := newTestThread(t)
	hh := owner.NewHeap()

	blocks, p := fillPage(t, hh, 64)
	const workers = 8
	chunk := len(blocks) / workers

	var wg sync.WaitGroup
	for w := range workers {
		part := blocks[w*chunk : (w+1)*chunk]
		wg.Go(func() {
			th := NewThread()
			for _, b := range part {
				th.Free(b)
			}
		})
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for spinning := true; spinning; {
		select {
		case <-done:
			spinning = false
		default:
			p.collectThreadFree()
		}
	}
	p.collectThreadFree()

	assert.Zero(t, p.used)
	n, err := p.countList(p.localFree, p.capacity)
	require.NoError(t, err)
	assert.Equal(t, len(blocks), n)
	_, tag := unpack(p.threadFree.Load())
	assert.Equal(t, NoDelayedFree, tag)
	require.NoError(t, p.checkInvariant())
}
