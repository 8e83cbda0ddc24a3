package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates the OS refused more memory or Config.ReserveLimit was reached.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrSizeOverflow indicates a size computation (count * size, alignment padding) wrapped.
	ErrSizeOverflow = errors.New("alloc: size computation overflows")

	// ErrUnsupported indicates the platform offers no anonymous memory mapping.
	ErrUnsupported = errors.New("alloc: memory mapping unsupported on this platform")

	// ErrBadAlignment indicates an alignment that is not a power of two.
	ErrBadAlignment = errors.New("alloc: alignment must be a power of two")
)

// InvariantError reports corrupted allocator state. It is raised with panic and
// never recovered inside the package: continuing after one would hand out
// memory that is already in use.
type InvariantError struct {
	Component string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("alloc: invariant violated in %s: %s", e.Component, e.Detail)
}

// fail panics with an InvariantError.
func fail(component, format string, args ...any) {
	panic(&InvariantError{Component: component, Detail: fmt.Sprintf(format, args...)})
}

// assertf panics with an InvariantError when cond is false. Only for slow paths;
// the variadic arguments are boxed even when cond holds.
func assertf(cond bool, component, format string, args ...any) {
	if !cond {
		fail(component, format, args...)
	}
}
