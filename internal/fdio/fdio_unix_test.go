//go:build unix

package fdio

import (
	"bufio"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openFD(t *testing.T, path string, mode int) *FD {
	t.Helper()
	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("open %s: %v", path, err)
	}
	d, err := New(fd)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New(-1)
	assert.ErrorIs(t, err, ErrInvalid)

	fd, err := unix.Open(os.DevNull, unix.O_RDONLY, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Close(fd))
	_, err = New(fd)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestReadZero(t *testing.T) {
	d := openFD(t, "/dev/zero", unix.O_RDONLY)
	require.False(t, d.IsClosed())

	for _, limit := range []int{1, 128, 512, 1024, 4096, MaxRead, MaxRead * 4} {
		s, err := d.ReadString(limit)
		require.NoError(t, err)
		want := min(limit, MaxRead)
		if len(s) != want {
			t.Fatalf("ReadString(%d) returned %d bytes, want %d", limit, len(s), want)
		}
		assert.Equal(t, strings.Repeat("\x00", want), s)
	}
	assert.Equal(t, int64(7), d.ReadCount())
	assert.False(t, d.EOF())

	buf := make([]byte, 64)
	n, err := d.Read(buf, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	s, err := d.ReadString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestReadNullSetsEOF(t *testing.T) {
	d := openFD(t, os.DevNull, unix.O_RDONLY)
	s, err := d.ReadString(10)
	require.NoError(t, err)
	assert.Empty(t, s)
	assert.True(t, d.EOF())
}

func TestWriteNull(t *testing.T) {
	d := openFD(t, os.DevNull, unix.O_WRONLY)

	n, err := d.Write([]byte("hello world\x00"), 12)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	buf := []byte(strings.Repeat("a", 128))
	n, err = d.Write(buf, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, n)

	n, err = d.Write(buf, 1<<30)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, int64(3), d.WriteCount())
}

func TestDuplicateSharesDescriptor(t *testing.T) {
	d := openFD(t, os.DevNull, unix.O_WRONLY)
	dup := d.Duplicate()
	assert.Equal(t, d.Fd(), dup.Fd())

	_, err := dup.Write([]byte("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.WriteCount())

	require.NoError(t, dup.Close())
	assert.True(t, d.IsClosed())
	assert.Equal(t, -1, d.Fd())
	require.NoError(t, d.Close())

	_, err = d.Write([]byte("x"), 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.ReadString(1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.IsBlocking()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSetBlocking(t *testing.T) {
	d := openFD(t, os.DevNull, unix.O_WRONLY)

	blocking, err := d.IsBlocking()
	require.NoError(t, err)
	assert.True(t, blocking)

	require.NoError(t, d.SetBlocking(false))
	blocking, err = d.IsBlocking()
	require.NoError(t, err)
	assert.False(t, blocking)
	for range 1000 {
		n, err := d.Write([]byte("a"), 1)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	require.NoError(t, d.SetBlocking(true))
	blocking, err = d.IsBlocking()
	require.NoError(t, err)
	assert.True(t, blocking)
}

func TestSocketRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		_, _ = io.WriteString(conn, strings.ToUpper(line))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s, err := Dial("127.0.0.1", port)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Send([]byte("ping\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var got strings.Builder
	for got.Len() < 5 {
		chunk, err := s.RecvString(5 - got.Len())
		require.NoError(t, err)
		if chunk == "" {
			break
		}
		got.WriteString(chunk)
	}
	assert.Equal(t, "PING\n", got.String())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.FD().IsClosed())
}

func TestDialErrors(t *testing.T) {
	_, err := Dial("not-an-ip", 80)
	assert.Error(t, err)
	_, err = Dial("127.0.0.1", 0)
	assert.Error(t, err)
}

func TestReadWriteHonourLimit(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	r, err := New(fds[0])
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	w, err := New(fds[1])
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	n, err := w.Write([]byte("hello world"), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = w.Write([]byte("ignored"), -1)
	require.NoError(t, err)
	assert.Zero(t, n, "negative limit writes nothing")

	p := make([]byte, 16)
	n, err = r.Read(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(p[:n]))

	n, err = r.Read(p[:1], 16)
	require.NoError(t, err)
	assert.Equal(t, "l", string(p[:n]), "buffer length bounds the read")

	s, err := r.ReadString(16)
	require.NoError(t, err)
	assert.Equal(t, "o", s)
	assert.False(t, r.EOF())
}
