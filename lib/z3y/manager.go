package z3y

import (
	"sync/atomic"
	"time"
)

// RegistryHandle is the capability an InitFunc receives: just enough
// surface to register components during its own load, with no visibility
// into unrelated registry state (spec §4.6's "the library receives a
// handle scoped to its own load").
type RegistryHandle struct {
	m *Manager
}

// Register registers desc as part of the in-progress load. Called outside
// of a load (e.g. by a unit test poking at a handle directly) it still
// registers desc, just without library-path attribution or rollback
// tracking.
func (h RegistryHandle) Register(desc ComponentDescriptor) error {
	if err := h.m.registry.Register(desc); err != nil {
		return err
	}
	FireGlobal(h.m.bus, func() ComponentRegisteredEvent {
		return ComponentRegisteredEvent{ClassID: desc.ClassID, Alias: desc.Alias}
	})
	return nil
}

// EventBus returns the process-wide event bus, so a plugin's init can
// subscribe to framework events (spec §4.6/§4.7) as it wires itself up.
func (h RegistryHandle) EventBus() *Bus {
	return h.m.bus
}

// Rollback erases every trace of ids from the registry, letting an init
// function that has registered several components manually undo a partial
// registration itself, rather than returning an error and having the
// Loader roll back the entire load (spec §4.4's manual rollback
// capability).
func (h RegistryHandle) Rollback(ids []ClassID) {
	h.m.registry.Rollback(ids)
}

// Manager is the process-wide anchor tying a Registry, an event Bus and a
// Loader together (spec §4.8). Most call sites use the free resolver
// functions (GetService, CreateInstance, GetDefaultInstance) with a
// *Manager obtained from Active.
type Manager struct {
	registry *Registry
	bus      *Bus
	loader   *Loader
}

// NewManager builds a Manager with a fresh Registry and Bus, registers the
// Manager itself as the default implementation of EventBusInterfaceID and
// PluginQueryInterfaceID under ManagerClassID, and starts the event bus's
// worker goroutine with the default poll interval.
func NewManager() *Manager {
	return NewManagerWithPoll(workerPollInterval)
}

// NewManagerWithPoll is NewManager with the event bus's worker poll
// interval overridden, so a host can honor a Config's WorkerPoll setting
// (spec §4.7's "soft timeout" is a tunable, not a fixed constant).
func NewManagerWithPoll(poll time.Duration) *Manager {
	bus := NewBus()
	bus.PollInterval = poll
	m := &Manager{
		registry: NewRegistry(),
		bus:      bus,
	}
	m.loader = newLoader(m)
	m.registerSelf()
	m.bus.Start()
	return m
}

// resetTeardownState clears the Registry and the event Bus's subscription
// and queue state together, acquiring the registry lock, the bus's
// subscription lock, and the bus's queue lock in that fixed order before
// touching anything (spec §5's "composite unload operation acquires
// registry_lock, event_lock, and queue_lock together using a
// deadlock-safe multi-lock acquisition. No other path acquires more than
// one of these"). Loader.UnloadAll calls this before closing any library
// handle, so a subscription owned by a component the unload is about to
// tear down cannot still fire afterward.
func (m *Manager) resetTeardownState() {
	m.registry.mu.Lock()
	m.bus.mu.Lock()
	m.bus.queueMu.Lock()
	defer m.bus.queueMu.Unlock()
	defer m.bus.mu.Unlock()
	defer m.registry.mu.Unlock()

	m.registry.resetAllLocked()
	m.bus.clearSubscriptionsLocked()
	m.bus.clearQueuesLocked()
}

// registerSelf (re-)registers the Manager as ManagerClassID, the default
// implementation of EventBusInterfaceID and PluginQueryInterfaceID. Called
// once from NewManager and again from Loader.UnloadAll after
// resetTeardownState clears the registry and bus state, so a Manager whose
// plugins were all unloaded is still resolvable via Active/GetDefaultInstance.
func (m *Manager) registerSelf() {
	self := &managerComponent{m: m}
	self.Implements(InterfaceDescriptor{
		IID: EventBusInterfaceID, Name: "z3y.EventBus", Version: InterfaceVersion{Major: 1},
	}, func() any { return self })
	self.Implements(InterfaceDescriptor{
		IID: PluginQueryInterfaceID, Name: "z3y.PluginQuery", Version: InterfaceVersion{Major: 1},
	}, func() any { return self })

	err := m.registry.Register(ComponentDescriptor{
		ClassID:     ManagerClassID,
		Factory:     func() Component { return self },
		IsSingleton: true,
		Alias:       "z3y.manager",
		IsDefault:   true,
		Implemented: self.ImplementedInterfaces(),
	})
	if err != nil {
		panic("z3y: failed to self-register manager: " + err.Error())
	}
	m.registry.setSingleton(ManagerClassID, newControlBlock(self, func() {}))
	FireGlobal(m.bus, func() ComponentRegisteredEvent {
		return ComponentRegisteredEvent{ClassID: ManagerClassID, Alias: "z3y.manager"}
	})
}

// Registry exposes the manager's registry for read-only introspection use
// (httpapi, cmd/z3yhost). Component authors should prefer RegistryHandle
// during a load and the free resolver functions otherwise.
func (m *Manager) Registry() *Registry { return m.registry }

// EventBus exposes the manager's event bus.
func (m *Manager) EventBus() *Bus { return m.bus }

// Loader exposes the manager's plugin loader.
func (m *Manager) Loader() *Loader { return m.loader }

// Shutdown stops the event bus worker and unloads every loaded library
// (spec §5's teardown ordering: worker signalled and joined before any
// library is unmapped).
func (m *Manager) Shutdown() error {
	m.bus.Stop()
	return m.loader.UnloadAll()
}

// managerComponent is the Component view of the Manager itself, letting it
// be resolved like any other service via GetDefaultInstance[EventBus] or
// GetDefaultInstance[PluginQuery].
type managerComponent struct {
	ComponentBase
	m *Manager
}

func (c *managerComponent) EventBus() *Bus { return c.m.bus }

// EventBus is the Go interface a caller resolves via
// GetDefaultInstance[EventBus](m, spec) to reach the process-wide event
// bus without holding a *Manager directly — the resolvable counterpart to
// EventBusInterfaceID.
type EventBus interface {
	EventBus() *Bus
}

// PluginQuery is the introspection interface a host UI or CLI resolves via
// GetDefaultInstance[PluginQuery] (spec's [FULL] supplement of the
// original's IPluginQuery, recovered from original_source/).
type PluginQuery interface {
	GetAllComponents() []ComponentDetails
	GetComponentDetails(clsid ClassID) (ComponentDetails, bool)
	GetComponentDetailsByAlias(alias string) (ComponentDetails, bool)
	FindComponentsImplementing(iid InterfaceID) []ComponentDetails
	GetLoadedLibraryPaths() []string
	GetComponentsFromLibrary(path string) []ComponentDetails
}

func (c *managerComponent) GetAllComponents() []ComponentDetails { return c.m.registry.GetAllComponents() }
func (c *managerComponent) GetComponentDetails(clsid ClassID) (ComponentDetails, bool) {
	return c.m.registry.GetComponentDetails(clsid)
}
func (c *managerComponent) GetComponentDetailsByAlias(alias string) (ComponentDetails, bool) {
	return c.m.registry.GetComponentDetailsByAlias(alias)
}
func (c *managerComponent) FindComponentsImplementing(iid InterfaceID) []ComponentDetails {
	return c.m.registry.FindComponentsImplementing(iid)
}
func (c *managerComponent) GetLoadedLibraryPaths() []string { return c.m.registry.GetLoadedLibraryPaths() }
func (c *managerComponent) GetComponentsFromLibrary(path string) []ComponentDetails {
	return c.m.registry.GetComponentsFromLibrary(path)
}

var activeManager atomic.Pointer[Manager]

// Active returns the process-wide Manager, constructing one via NewManager
// on first use.
func Active() *Manager {
	if m := activeManager.Load(); m != nil {
		return m
	}
	m := NewManager()
	if !activeManager.CompareAndSwap(nil, m) {
		m.Shutdown()
		return activeManager.Load()
	}
	return m
}

// SetActive replaces the process-wide Manager, returning the previous one
// (if any) so a caller can Shutdown it. Intended for tests and for hosts
// that need a fresh Manager per run.
func SetActive(m *Manager) *Manager {
	return activeManager.Swap(m)
}
