package z3y

import (
	"runtime"
	"testing"
	"time"
)

// TestProperty_RollbackClearsSingletonCache exercises universal property 3
// against the singleton cache specifically: a class registered as a
// service, resolved once (populating the cache), then rolled back must not
// be resolvable through any key afterward, including the cache.
func TestProperty_RollbackClearsSingletonCache(t *testing.T) {
	m := newTestManager()
	iid := MustHash("d4000001-d400-4000-8000-000000000001")
	clsid := MustHash("d4000002-d400-4000-8000-000000000002")
	spec := InterfaceDescriptor{IID: iid, Version: InterfaceVersion{Major: 1}}

	m.registry.beginLoad("/lib/rollback-me.so")
	desc := ComponentDescriptor{
		ClassID: clsid, IsSingleton: true, Alias: "Rollback.Service",
		Factory:     func() Component { return newGreeterImpl(spec) },
		Implemented: []InterfaceDescriptor{spec},
	}
	if err := m.registry.Register(desc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	inst, err := GetService[greeter](m, clsid, spec)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	inst.Release()

	m.registry.rollbackCurrentLoad()
	m.registry.endLoad()

	if _, ok := m.registry.classIDForAlias("Rollback.Service"); ok {
		t.Error("alias survived rollback")
	}
	if _, ok := m.registry.cachedSingleton(clsid); ok {
		t.Error("singleton cache entry survived rollback")
	}
	if _, err := GetService[greeter](m, clsid, spec); !isKind(err, ErrClassIDNotFound) {
		t.Errorf("GetService(rolled-back clsid) = %v, want ErrClassIDNotFound", err)
	}
}

// TestProperty_QueuedSubscriberDeadBeforeDequeueIsNotInvoked exercises the
// second half of universal property 7: a queued subscriber that has
// already expired by the time the worker dequeues its task is not
// invoked.
func TestProperty_QueuedSubscriberDeadBeforeDequeueIsNotInvoked(t *testing.T) {
	b := NewBus()
	calls := 0
	func() {
		subscriber := new(int)
		SubscribeGlobal(b, subscriber, func(e fakeEvent) { calls++ }, DeliveryQueued)
		// Publish while subscriber is still alive, so it is queued rather
		// than filtered out at publish time.
		FireGlobal(b, func() fakeEvent { return fakeEvent{} })
		runtime.KeepAlive(subscriber)
	}()
	// subscriber is now unreachable, but its task is already sitting in
	// the queue; only starting the worker now models "dies before the
	// worker dequeues".
	for i := 0; i < 5; i++ {
		runtime.GC()
	}

	b.Start()
	defer b.Stop()
	time.Sleep(200 * time.Millisecond)

	if calls != 0 {
		t.Fatalf("subscriber that expired before the worker dequeued was invoked, calls=%d", calls)
	}
}

// TestProperty_UnloadAllLeavesFrameworkInterfacesResolvable exercises
// universal property 9: after unload_all, the event-bus and query
// interfaces remain resolvable via their default IDs and the Manager
// itself.
func TestProperty_UnloadAllLeavesFrameworkInterfacesResolvable(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	if err := m.loader.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll: %v", err)
	}

	busSpec := InterfaceDescriptor{IID: EventBusInterfaceID, Name: "z3y.EventBus", Version: InterfaceVersion{Major: 1}}
	bus, err := GetDefaultInstance[EventBus](m, busSpec)
	if err != nil {
		t.Fatalf("GetDefaultInstance[EventBus] after UnloadAll: %v", err)
	}
	defer bus.Release()
	if bus.Interface().EventBus() != m.bus {
		t.Error("resolved EventBus does not point at the Manager's own bus")
	}

	querySpec := InterfaceDescriptor{IID: PluginQueryInterfaceID, Name: "z3y.PluginQuery", Version: InterfaceVersion{Major: 1}}
	query, err := GetDefaultInstance[PluginQuery](m, querySpec)
	if err != nil {
		t.Fatalf("GetDefaultInstance[PluginQuery] after UnloadAll: %v", err)
	}
	defer query.Release()
	details, ok := query.Interface().GetComponentDetails(ManagerClassID)
	if !ok || details.ClassID != ManagerClassID {
		t.Error("PluginQuery cannot see the Manager's own re-registered descriptor")
	}
}
