package fdio

// Socket is a connected stream socket.
type Socket struct {
	fd *FD
}

// FD returns the socket's descriptor handle.
func (s *Socket) FD() *FD { return s.fd }

// Send writes p and returns how many bytes were sent.
func (s *Socket) Send(p []byte) (int, error) { return s.fd.Write(p, len(p)) }

// Recv reads up to limit bytes into p.
func (s *Socket) Recv(p []byte, limit int) (int, error) { return s.fd.Read(p, limit) }

// RecvString reads up to limit bytes as a string.
func (s *Socket) RecvString(limit int) (string, error) { return s.fd.ReadString(limit) }

// Close closes the socket. Idempotent.
func (s *Socket) Close() error { return s.fd.Close() }
