package z3y

// fakeBackend is an in-process Backend standing in for a real dynamic
// library, so the transactional load/rollback pipeline and the framework
// events it emits can be exercised without compiling a real .so (spec's
// testable properties around Loader.Load). Grounded in the teacher's own
// loader_test.go, which skips its one test that would need a real compiled
// plugin executable rather than faking around it — here the fake makes
// that skip unnecessary.
type fakeBackend struct {
	libraries map[string]InitFunc
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{libraries: make(map[string]InitFunc)}
}

// register associates a fake library path with the InitFunc Load should
// invoke when asked to open it.
func (b *fakeBackend) register(path string, init InitFunc) {
	b.libraries[path] = init
}

func (b *fakeBackend) Recognizes(path string) bool {
	_, ok := b.libraries[path]
	return ok
}

func (b *fakeBackend) Open(path string) (LibraryHandle, error) {
	init, ok := b.libraries[path]
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return fakeHandle{init: init}, nil
}

type fakeHandle struct {
	init InitFunc
}

func (h fakeHandle) Lookup(symbol string) (any, error) {
	if symbol != pluginInitSymbol {
		return nil, ErrUnsupportedPlatform
	}
	// Loader.load type-asserts the looked-up symbol against the exact
	// unnamed func type a real exported plugin function has; box it as
	// that type here rather than as the named InitFunc.
	return (func(RegistryHandle) error)(h.init), nil
}

func (h fakeHandle) Close() error { return nil }
