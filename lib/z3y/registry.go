package z3y

import (
	"sync"
	"weak"
)

// Registry holds every component descriptor known to a Manager, the
// alias/default/singleton lookup tables derived from them, and the
// per-library-load transient state Rollback needs (spec §3/§4.4).
type Registry struct {
	mu sync.Mutex

	components      map[ClassID]ComponentDescriptor
	singletons      map[ClassID]weak.Pointer[ControlBlock]
	aliases         map[string]ClassID
	defaults        map[InterfaceID]ClassID
	loadedLibraries map[string]LibraryHandle

	currentLoadPath  string
	currentLoadAdded []ClassID
	loading          bool

	libraryPins map[string]int64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		components:      make(map[ClassID]ComponentDescriptor),
		singletons:      make(map[ClassID]weak.Pointer[ControlBlock]),
		aliases:         make(map[string]ClassID),
		defaults:        make(map[InterfaceID]ClassID),
		loadedLibraries: make(map[string]LibraryHandle),
		libraryPins:     make(map[string]int64),
	}
}

// pinLibrary records that one more live instance originates from path. A
// no-op for the empty path (host-registered components, which pin
// nothing).
func (r *Registry) pinLibrary(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libraryPins[path]++
}

// unpinLibrary records that one fewer live instance originates from path.
func (r *Registry) unpinLibrary(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.libraryPins[path] > 0 {
		r.libraryPins[path]--
	}
}

// pinCount reports how many live instances currently pin path.
func (r *Registry) pinCount(path string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.libraryPins[path]
}

// beginLoad sets the transient per-load path a subsequent Register call
// will attribute new descriptors to, and resets the rollback list. Only
// the Loader calls this, once per Loader.Load attempt (spec §4.6 step 3).
func (r *Registry) beginLoad(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentLoadPath = path
	r.currentLoadAdded = nil
	r.loading = true
}

// endLoad clears the transient per-load state after a load has either
// committed or been rolled back.
func (r *Registry) endLoad() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentLoadPath = ""
	r.currentLoadAdded = nil
	r.loading = false
}

// Register inserts desc into the registry (spec §4.4). It fails with
// ErrDuplicateClassID if desc.ClassID is already present, and with
// ErrConflictingDefault if desc.IsDefault and some other ClassID is
// already the default for one of desc's non-root interfaces. On success,
// desc.SourceLibraryPath is overwritten with the path of the in-progress
// load (if any), the alias table and default table are updated, and the
// ClassID is appended to the current load's rollback list.
func (r *Registry) Register(desc ComponentDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[desc.ClassID]; exists {
		return &QueryError{Kind: ErrDuplicateClassID, Message: "class id already registered"}
	}

	if desc.IsDefault {
		for _, iface := range desc.Implemented {
			if iface.IID == ComponentInterfaceID {
				continue
			}
			if existing, ok := r.defaults[iface.IID]; ok && existing != desc.ClassID {
				return &QueryError{
					Kind:    ErrConflictingDefault,
					Message: "another class id is already the default for this interface",
				}
			}
		}
	}

	if r.loading {
		desc.SourceLibraryPath = r.currentLoadPath
	}

	r.components[desc.ClassID] = desc
	if desc.Alias != "" {
		r.aliases[desc.Alias] = desc.ClassID
	}
	if desc.IsDefault {
		for _, iface := range desc.Implemented {
			if iface.IID == ComponentInterfaceID {
				continue
			}
			r.defaults[iface.IID] = desc.ClassID
		}
	}
	if r.loading {
		r.currentLoadAdded = append(r.currentLoadAdded, desc.ClassID)
	}
	componentsRegisteredTotal.Inc()
	return nil
}

// Rollback erases every trace of the ClassIDs in ids: their alias entries,
// any default-map entries still pointing to them, their cached singleton
// (if any), and their descriptor (spec §4.4). RegistryHandle.Rollback
// exposes it to init functions; the Loader's own failed-load path uses
// rollbackCurrentLoad instead.
func (r *Registry) Rollback(ids []ClassID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbackLocked(ids)
}

// rollbackCurrentLoad rolls back every ClassID registered since the last
// beginLoad call. The Loader calls this when a library's init fails or
// panics partway through registering several components.
func (r *Registry) rollbackCurrentLoad() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbackLocked(r.currentLoadAdded)
}

func (r *Registry) rollbackLocked(ids []ClassID) {
	rollbackSet := make(map[ClassID]struct{}, len(ids))
	for _, id := range ids {
		rollbackSet[id] = struct{}{}
	}
	for alias, clsid := range r.aliases {
		if _, ok := rollbackSet[clsid]; ok {
			delete(r.aliases, alias)
		}
	}
	for iface, clsid := range r.defaults {
		if _, ok := rollbackSet[clsid]; ok {
			delete(r.defaults, iface)
		}
	}
	for _, id := range ids {
		delete(r.singletons, id)
		delete(r.components, id)
	}
}

// classIDForAlias resolves an alias to a ClassID, returning (0, false) if
// alias is not registered.
func (r *Registry) classIDForAlias(alias string) (ClassID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.aliases[alias]
	return id, ok
}

// descriptorFor returns the descriptor for clsid, if any.
func (r *Registry) descriptorFor(clsid ClassID) (ComponentDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.components[clsid]
	return d, ok
}

// defaultClassIDFor returns the ClassID registered as the default
// implementation of iid, if any.
func (r *Registry) defaultClassIDFor(iid InterfaceID) (ClassID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.defaults[iid]
	return id, ok
}

// cachedSingleton returns a strong ControlBlock for clsid's cached
// singleton if one is present and still alive (refcount > 0), retaining
// it on the caller's behalf.
func (r *Registry) cachedSingleton(clsid ClassID) (*ControlBlock, bool) {
	r.mu.Lock()
	wp, ok := r.singletons[clsid]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	cb := wp.Value()
	if cb == nil || !cb.TryRetain() {
		return nil, false
	}
	return cb, true
}

// setSingleton stores a weak reference to cb as clsid's cached singleton.
func (r *Registry) setSingleton(clsid ClassID, cb *ControlBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletons[clsid] = weak.Make(cb)
}

// noteLibraryLoaded records path -> handle once a library's init has
// committed successfully.
func (r *Registry) noteLibraryLoaded(path string, handle LibraryHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadedLibraries[path] = handle
}

// libraryHandles returns every currently-loaded library path and handle,
// in no particular order.
func (r *Registry) libraryHandles() map[string]LibraryHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]LibraryHandle, len(r.loadedLibraries))
	for k, v := range r.loadedLibraries {
		out[k] = v
	}
	return out
}

// resetAllLocked clears every piece of registry state. Callers must already
// hold r.mu — used both by resetAll and by Manager's composite teardown
// lock, which acquires r.mu itself alongside the Bus's locks.
func (r *Registry) resetAllLocked() {
	r.components = make(map[ClassID]ComponentDescriptor)
	r.singletons = make(map[ClassID]weak.Pointer[ControlBlock])
	r.aliases = make(map[string]ClassID)
	r.defaults = make(map[InterfaceID]ClassID)
	r.loadedLibraries = make(map[string]LibraryHandle)
	r.libraryPins = make(map[string]int64)
}

// resetAll clears every piece of registry state under a single lock
// acquisition.
func (r *Registry) resetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetAllLocked()
}

// --- Introspection (spec's [FULL] IPluginQuery supplement) ---

// GetAllComponents returns ComponentDetails for every registered
// component.
func (r *Registry) GetAllComponents() []ComponentDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ComponentDetails, 0, len(r.components))
	for _, d := range r.components {
		out = append(out, detailsOf(d))
	}
	return out
}

// GetComponentDetails returns the details for clsid, if registered.
func (r *Registry) GetComponentDetails(clsid ClassID) (ComponentDetails, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.components[clsid]
	if !ok {
		return ComponentDetails{}, false
	}
	return detailsOf(d), true
}

// GetComponentDetailsByAlias returns the details for the component
// registered under alias, if any.
func (r *Registry) GetComponentDetailsByAlias(alias string) (ComponentDetails, bool) {
	r.mu.Lock()
	clsid, ok := r.aliases[alias]
	if !ok {
		r.mu.Unlock()
		return ComponentDetails{}, false
	}
	d := r.components[clsid]
	r.mu.Unlock()
	return detailsOf(d), true
}

// FindComponentsImplementing returns the details of every component that
// implements iid.
func (r *Registry) FindComponentsImplementing(iid InterfaceID) []ComponentDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ComponentDetails
	for _, d := range r.components {
		if d.implements(iid) {
			out = append(out, detailsOf(d))
		}
	}
	return out
}

// GetLoadedLibraryPaths returns the path of every currently loaded
// library.
func (r *Registry) GetLoadedLibraryPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.loadedLibraries))
	for path := range r.loadedLibraries {
		out = append(out, path)
	}
	return out
}

// GetComponentsFromLibrary returns the details of every component sourced
// from libraryPath.
func (r *Registry) GetComponentsFromLibrary(libraryPath string) []ComponentDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ComponentDetails
	for _, d := range r.components {
		if d.SourceLibraryPath == libraryPath {
			out = append(out, detailsOf(d))
		}
	}
	return out
}
