//go:build unix

package fdio

import (
	"fmt"
	"log/slog"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/ntmalloc/internal/logger"
)

// Dial opens a TCP connection to ip:port.
func Dial(ip string, port int) (*Socket, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("fdio: dial: %w", err)
	}
	if port <= 0 || port > 0xffff {
		return nil, fmt.Errorf("fdio: dial: port %d out of range", port)
	}

	var (
		family int
		sa     unix.Sockaddr
	)
	if addr.Is4() || addr.Is4In6() {
		family = unix.AF_INET
		sa = &unix.SockaddrInet4{Port: port, Addr: addr.Unmap().As4()}
	} else {
		family = unix.AF_INET6
		sa = &unix.SockaddrInet6{Port: port, Addr: addr.As16()}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("fdio: socket: %w", err)
	}
	unix.CloseOnExec(fd)
	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("fdio: connect %s:%d: %w", ip, port, err)
	}
	if logger.Enabled(slog.LevelDebug) {
		logger.Debug("socket connected", "fd", fd, "addr", addr.String(), "port", port)
	}
	f, err := New(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Socket{fd: f}, nil
}
