//go:build unix

package fdio

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/ntmalloc/internal/logger"
)

// New wraps an open descriptor. The FD takes ownership and closes it on Close.
func New(fd int) (*FD, error) {
	if fd < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalid, fd)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("%w: %d: %v", ErrInvalid, fd, err)
	}
	return &FD{f: &file{fd: fd}}, nil
}

// IsBlocking reports whether the descriptor is in blocking mode.
func (d *FD) IsBlocking() (bool, error) {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, ErrClosed
	}
	flags, err := unix.FcntlInt(uintptr(f.fd), unix.F_GETFL, 0)
	if err != nil {
		return false, fmt.Errorf("fdio: get flags of %d: %w", f.fd, err)
	}
	return flags&unix.O_NONBLOCK == 0, nil
}

// SetBlocking switches the descriptor between blocking and non-blocking mode.
func (d *FD) SetBlocking(blocking bool) error {
	f := d.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := unix.SetNonblock(f.fd, !blocking); err != nil {
		return fmt.Errorf("fdio: set blocking=%t on %d: %w", blocking, f.fd, err)
	}
	return nil
}

func (f *file) read(p []byte, limit int) (int, error) {
	for {
		n, err := unix.Read(f.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("fdio: read %d: %w", f.fd, err)
		}
		if n == 0 && limit > 0 {
			f.eof = true
		}
		f.reads.Add(1)
		return n, nil
	}
}

func (f *file) write(p []byte) (int, error) {
	for {
		n, err := unix.Write(f.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return max(n, 0), fmt.Errorf("fdio: write %d: %w", f.fd, err)
		}
		f.writes.Add(1)
		return n, nil
	}
}

func (f *file) close() error {
	err := unix.Close(f.fd)
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("descriptor closed", "fd", f.fd, "reads", f.reads.Load(), "writes", f.writes.Load())
	}
	f.fd = -1
	if err != nil {
		return fmt.Errorf("fdio: close: %w", err)
	}
	return nil
}
