package z3y

// The resolver is a set of free generic functions rather than methods on
// Manager, because Go does not allow a method to introduce its own type
// parameter (DESIGN.md records this as a resolved Open Question). key may be either a ClassID or a string alias.

func (m *Manager) resolveClassID(key any) (ClassID, error) {
	switch k := key.(type) {
	case ClassID:
		return k, nil
	case string:
		id, ok := m.registry.classIDForAlias(k)
		if !ok {
			return NoID, &QueryError{Kind: ErrAliasNotFound, Message: "alias '" + k + "' not found"}
		}
		return id, nil
	default:
		return NoID, &QueryError{Kind: ErrInternal, Message: "resolver key must be a ClassID or a string alias"}
	}
}

// newInstanceHandle wraps obj as a fresh Handle, pinning desc's source
// library for the handle's lifetime; the release hook unpins it. The count
// is readable through Registry.pinCount; Loader.UnloadAll does not consult
// it (spec §3 "Lifecycles" / §5 "Library handles").
func (m *Manager) newInstanceHandle(desc ComponentDescriptor, obj Component) Handle {
	m.registry.pinLibrary(desc.SourceLibraryPath)
	path := desc.SourceLibraryPath
	return NewHandle(obj, func() { m.registry.unpinLibrary(path) })
}

// GetService resolves key (a ClassID or alias) to a singleton service and
// returns it cast to T, implementing spec §4.5's get_service exactly:
// resolve alias, look up descriptor, require IsSingleton, reuse a live
// cached instance or build and cache a fresh one, then Cast to T.
func GetService[T any](m *Manager, key any, spec InterfaceDescriptor) (Typed[T], error) {
	clsid, err := m.resolveClassID(key)
	if err != nil {
		return Typed[T]{}, err
	}

	desc, ok := m.registry.descriptorFor(clsid)
	if !ok {
		return Typed[T]{}, &QueryError{Kind: ErrClassIDNotFound}
	}
	if !desc.IsSingleton {
		return Typed[T]{}, &QueryError{Kind: ErrNotAService, Message: "class id is a component, use CreateInstance"}
	}

	if cb, ok := m.registry.cachedSingleton(clsid); ok {
		h := Handle{ctrl: cb}
		typed, err := Cast[T](h, spec)
		h.Release()
		return typed, err
	}

	obj := desc.Factory()
	if obj == nil {
		return Typed[T]{}, &QueryError{Kind: ErrFactoryFailed}
	}
	h := m.newInstanceHandle(desc, obj)
	m.registry.setSingleton(clsid, h.ctrl)

	typed, err := Cast[T](h, spec)
	h.Release()
	return typed, err
}

// CreateInstance resolves key to a non-singleton component and returns a
// fresh instance cast to T, implementing spec §4.5's create_instance.
func CreateInstance[T any](m *Manager, key any, spec InterfaceDescriptor) (Typed[T], error) {
	clsid, err := m.resolveClassID(key)
	if err != nil {
		return Typed[T]{}, err
	}

	desc, ok := m.registry.descriptorFor(clsid)
	if !ok {
		return Typed[T]{}, &QueryError{Kind: ErrClassIDNotFound}
	}
	if desc.IsSingleton {
		return Typed[T]{}, &QueryError{Kind: ErrNotAComponent, Message: "class id is a service, use GetService"}
	}

	obj := desc.Factory()
	if obj == nil {
		return Typed[T]{}, &QueryError{Kind: ErrFactoryFailed}
	}
	h := m.newInstanceHandle(desc, obj)
	typed, err := Cast[T](h, spec)
	h.Release()
	return typed, err
}

// GetDefaultInstance looks up the ClassID registered as the default
// implementation of spec.IID and delegates to GetService or CreateInstance
// depending on whether that class was registered as a singleton (spec
// §4.5's get_default_instance).
func GetDefaultInstance[T any](m *Manager, spec InterfaceDescriptor) (Typed[T], error) {
	clsid, ok := m.registry.defaultClassIDFor(spec.IID)
	if !ok {
		return Typed[T]{}, &QueryError{Kind: ErrClassIDNotFound, Message: "no default registered for this interface"}
	}
	desc, ok := m.registry.descriptorFor(clsid)
	if !ok {
		return Typed[T]{}, &QueryError{Kind: ErrClassIDNotFound}
	}
	if desc.IsSingleton {
		return GetService[T](m, clsid, spec)
	}
	return CreateInstance[T](m, clsid, spec)
}
