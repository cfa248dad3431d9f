//go:build !linux

package z3y

// stubBackend reports every path as unrecognised and every open attempt as
// unsupported. Go's plugin package only implements plugin.Open on a subset
// of unix-like targets (spec's platform shim is explicitly a per-OS
// primitive the core merely consumes).
type stubBackend struct{}

func defaultBackend() Backend { return stubBackend{} }

func (stubBackend) Recognizes(path string) bool { return false }

func (stubBackend) Open(path string) (LibraryHandle, error) {
	return nil, ErrUnsupportedPlatform
}
