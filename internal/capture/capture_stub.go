//go:build !windows

package capture

// Stub backend for platforms without low-level hook support.

type stubBackend struct{}

func newBackend() backend {
	return stubBackend{}
}

func (stubBackend) run(s *Session, ready chan<- error) error {
	ready <- ErrUnsupported
	return ErrUnsupported
}

func (stubBackend) wake() {}
