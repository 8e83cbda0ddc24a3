package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestThread returns a set-up Thread that is torn down with the test.
func newTestThread(t *testing.T) *Thread {
	t.Helper()
	th := NewThread()
	th.init()
	t.Cleanup(th.Done)
	return th
}

// pageOfBlock resolves the page holding b.
func pageOfBlock(t *testing.T, b uintptr) *page {
	t.Helper()
	s := segmentOf(b)
	require.NotNil(t, s, "block %#x has no segment", b)
	return s.pageOf(b)
}

func requireInvariants(t *testing.T, th *Thread) {
	t.Helper()
	require.NoError(t, th.CheckInvariants())
}

// onFreeList reports whether b is reachable from head on page p.
func onFreeList(p *page, head, b uintptr) bool {
	for x := head; x != 0; x = p.blockNext(x) {
		if x == b {
			return true
		}
	}
	return false
}
