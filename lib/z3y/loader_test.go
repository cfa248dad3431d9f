package z3y

import (
	"errors"
	"runtime"
	"testing"
)

func newTestManagerWithFakeBackend() (*Manager, *fakeBackend) {
	m := newTestManager()
	fb := newFakeBackend()
	m.loader.SetBackend(fb)
	return m, fb
}

func TestLoader_LoadCommitsAndFiresSucceeded(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	clsid := MustHash("d3000001-d300-4000-8000-000000000001")

	succeeded := make(chan string, 1)
	SubscribeGlobal(m.bus, m, func(e PluginLoadSucceededEvent) { succeeded <- e.Path }, DeliveryDirect)

	fb.register("/fake/good.so", func(reg RegistryHandle) error {
		return reg.Register(ComponentDescriptor{
			ClassID: clsid,
			Factory: func() Component { return &greeterImpl{} },
			Alias:   "Good.One",
		})
	})

	if err := m.loader.Load("/fake/good.so"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := m.registry.classIDForAlias("Good.One"); !ok {
		t.Error("committed load did not leave its component registered")
	}
	select {
	case path := <-succeeded:
		if path != "/fake/good.so" {
			t.Errorf("PluginLoadSucceededEvent.Path = %q, want /fake/good.so", path)
		}
	default:
		t.Error("PluginLoadSucceededEvent was not fired")
	}
}

func TestLoader_LoadRollsBackOnInitError(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	clsid := MustHash("d3000002-d300-4000-8000-000000000002")

	failed := make(chan string, 1)
	SubscribeGlobal(m.bus, m, func(e PluginLoadFailedEvent) { failed <- e.Reason }, DeliveryDirect)

	fb.register("/fake/bad.so", func(reg RegistryHandle) error {
		if err := reg.Register(ComponentDescriptor{
			ClassID: clsid,
			Factory: func() Component { return &greeterImpl{} },
			Alias:   "Bad.One",
		}); err != nil {
			return err
		}
		return errors.New("plugin refused to finish initialising")
	})

	err := m.loader.Load("/fake/bad.so")
	if err == nil {
		t.Fatal("Load succeeded, want the init error propagated")
	}
	if _, ok := m.registry.classIDForAlias("Bad.One"); ok {
		t.Error("component registered before the init error survived rollback")
	}
	if _, ok := m.registry.descriptorFor(clsid); ok {
		t.Error("descriptor survived rollback")
	}
	select {
	case reason := <-failed:
		if reason == "" {
			t.Error("PluginLoadFailedEvent had an empty reason")
		}
	default:
		t.Error("PluginLoadFailedEvent was not fired")
	}
}

func TestLoader_LoadRollsBackOnInitPanic(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	clsid := MustHash("d3000003-d300-4000-8000-000000000003")

	fb.register("/fake/panicky.so", func(reg RegistryHandle) error {
		_ = reg.Register(ComponentDescriptor{
			ClassID: clsid,
			Factory: func() Component { return &greeterImpl{} },
			Alias:   "Panicky.One",
		})
		panic("plugin init blew up")
	})

	err := m.loader.Load("/fake/panicky.so")
	if err == nil {
		t.Fatal("Load succeeded, want the panic converted to an error")
	}
	if !isKind(err, ErrInternal) {
		t.Fatalf("Load(panicking init) = %v, want ErrInternal", err)
	}
	if _, ok := m.registry.classIDForAlias("Panicky.One"); ok {
		t.Error("component registered before the panic survived rollback")
	}
}

func TestLoader_LoadFailsWhenBackendCannotOpen(t *testing.T) {
	m, _ := newTestManagerWithFakeBackend()
	if err := m.loader.Load("/fake/never-registered.so"); err == nil {
		t.Fatal("Load succeeded, want an open failure for an unrecognized path")
	}
}

func TestLoader_LoadsEveryRegisteredPath(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	// fakeBackend.Recognizes only reports true for registered paths, and
	// Scan walks a real directory tree, so exercise Load directly per path
	// instead of Scan's filesystem walk (Scan's own directory-walking
	// logic is exercised by identical use of the standard library and is
	// not specific to this framework's semantics).
	clsidA := MustHash("d3000004-d300-4000-8000-000000000004")
	clsidB := MustHash("d3000005-d300-4000-8000-000000000005")
	fb.register("/fake/a.so", func(reg RegistryHandle) error {
		return reg.Register(ComponentDescriptor{ClassID: clsidA, Factory: func() Component { return &greeterImpl{} }, Alias: "A"})
	})
	fb.register("/fake/b.so", func(reg RegistryHandle) error {
		return reg.Register(ComponentDescriptor{ClassID: clsidB, Factory: func() Component { return &greeterImpl{} }, Alias: "B"})
	})

	for path := range fb.libraries {
		if err := m.loader.Load(path); err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
	}
	if _, ok := m.registry.classIDForAlias("A"); !ok {
		t.Error("A not registered")
	}
	if _, ok := m.registry.classIDForAlias("B"); !ok {
		t.Error("B not registered")
	}
}

func TestLoader_UnloadAllClearsRegistryAndClosesHandles(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	clsid := MustHash("d3000006-d300-4000-8000-000000000006")
	fb.register("/fake/c.so", func(reg RegistryHandle) error {
		return reg.Register(ComponentDescriptor{ClassID: clsid, Factory: func() Component { return &greeterImpl{} }, Alias: "C"})
	})
	if err := m.loader.Load("/fake/c.so"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := m.loader.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll: %v", err)
	}
	if _, ok := m.registry.classIDForAlias("C"); ok {
		t.Error("alias survived UnloadAll")
	}
	if len(m.loader.LoadedLibraries()) != 0 {
		t.Errorf("LoadedLibraries() = %v, want empty after UnloadAll", m.loader.LoadedLibraries())
	}
}

func TestLoader_UnloadAllStopsSubscriptionsFromUnloadedPlugin(t *testing.T) {
	m, fb := newTestManagerWithFakeBackend()
	clsid := MustHash("d3000007-d300-4000-8000-000000000007")

	subscriber := new(int)
	calls := 0
	fb.register("/fake/subscriber.so", func(reg RegistryHandle) error {
		if err := reg.Register(ComponentDescriptor{
			ClassID: clsid,
			Factory: func() Component { return &greeterImpl{} },
			Alias:   "Subscriber.One",
		}); err != nil {
			return err
		}
		SubscribeGlobal(reg.EventBus(), subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)
		return nil
	})

	if err := m.loader.Load("/fake/subscriber.so"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	FireGlobal(m.bus, func() fakeEvent { return fakeEvent{Value: 1} })
	if calls != 1 {
		t.Fatalf("subscription did not fire while its plugin was still loaded, calls=%d", calls)
	}

	if err := m.loader.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll: %v", err)
	}

	FireGlobal(m.bus, func() fakeEvent { return fakeEvent{Value: 2} })
	runtime.KeepAlive(subscriber)
	if calls != 1 {
		t.Fatalf("subscription from an unloaded plugin still fired after UnloadAll, calls=%d", calls)
	}
}
