//go:build !unix

package fdio

// Dial is unavailable without raw descriptor access.
func Dial(ip string, port int) (*Socket, error) { return nil, ErrUnsupported }
