//go:build !unix

package fdio

// New is unavailable without raw descriptor access.
func New(fd int) (*FD, error) { return nil, ErrUnsupported }

func (d *FD) IsBlocking() (bool, error) { return false, ErrUnsupported }

func (d *FD) SetBlocking(bool) error { return ErrUnsupported }

func (f *file) read([]byte, int) (int, error) { return 0, ErrUnsupported }

func (f *file) write([]byte) (int, error) { return 0, ErrUnsupported }

func (f *file) close() error { return ErrUnsupported }
