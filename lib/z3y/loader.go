package z3y

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// pluginInitSymbol is the well-known exported name every dynamic library
// participating in the framework must define (spec §4.6/§6). Go plugin
// symbols must be exported Go identifiers, hence the capitalisation the
// original's lowercase-initial `z3yPluginInit` does not need.
const pluginInitSymbol = "Z3yPluginInit"

// Loader owns the transactional load/unload lifecycle for dynamic
// libraries (spec §4.6). A Loader is only ever reached through the
// Manager that created it.
type Loader struct {
	m       *Manager
	backend Backend

	loaded    map[string]LibraryHandle
	loadOrder []string
}

func newLoader(m *Manager) *Loader {
	return &Loader{
		m:       m,
		backend: defaultBackend(),
		loaded:  make(map[string]LibraryHandle),
	}
}

// SetBackend overrides the platform Backend the Loader uses to open
// libraries. Production code never needs this; tests use it to substitute
// an in-process fake Backend so plugin behaviour can be exercised without
// compiling real .so files (spec §4.6's testable properties).
func (l *Loader) SetBackend(b Backend) { l.backend = b }

// Scan walks dir (recursively if recursive is true), attempting Load on
// every path the active Backend recognises as a dynamic library. It
// returns the first unrecoverable filesystem error, if any; individual
// load failures are reported via PluginLoadFailedEvent, not returned,
// since one bad library should not abort a scan of the rest (spec §4.6
// step "for each path the platform shim recognises").
func (l *Loader) Scan(dir string, recursive bool) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.backend.Recognizes(path) {
			return nil
		}
		if loadErr := l.Load(path); loadErr != nil {
			log.Warn().Str("path", path).Err(loadErr).Msg("plugin load failed during scan")
		}
		return nil
	})
}

// Load opens path, resolves its Z3yPluginInit symbol, and calls it with a
// RegistryHandle scoped to this load. If init panics, returns an error, or
// the symbol cannot be resolved at all, every component the init call
// managed to register is rolled back and the library is closed (spec
// §4.6's transactional load).
func (l *Loader) Load(path string) error {
	return l.LoadContext(context.Background(), path)
}

// LoadContext is Load with an explicit context, used to associate the load
// with a caller's trace span.
func (l *Loader) LoadContext(ctx context.Context, path string) error {
	return traceLoad(ctx, path, func(context.Context) error {
		return l.load(path)
	})
}

func (l *Loader) load(path string) (err error) {
	handle, openErr := l.backend.Open(path)
	if openErr != nil {
		l.reportFailure(path, openErr)
		return openErr
	}

	l.m.registry.beginLoad(path)
	committed := false
	defer func() {
		if r := recover(); r != nil {
			err = &QueryError{Kind: ErrInternal, Message: "plugin init panicked: " + panicMessage(r)}
		}
		if !committed {
			l.m.registry.rollbackCurrentLoad()
			l.m.registry.endLoad()
			handle.Close()
			l.reportFailure(path, err)
			return
		}
		l.m.registry.endLoad()
	}()

	sym, lookupErr := handle.Lookup(pluginInitSymbol)
	if lookupErr != nil {
		err = lookupErr
		return err
	}
	initFn, ok := sym.(func(RegistryHandle) error)
	if !ok {
		err = &QueryError{Kind: ErrInternal, Message: pluginInitSymbol + " has an unexpected signature"}
		return err
	}

	if initErr := initFn(RegistryHandle{m: l.m}); initErr != nil {
		err = initErr
		return err
	}

	committed = true
	if _, alreadyLoaded := l.loaded[path]; !alreadyLoaded {
		l.loadOrder = append(l.loadOrder, path)
	}
	l.loaded[path] = handle
	l.m.registry.noteLibraryLoaded(path, handle)
	pluginsLoadedTotal.Inc()
	FireGlobal(l.m.bus, func() PluginLoadSucceededEvent {
		return PluginLoadSucceededEvent{Path: path}
	})
	return nil
}

func (l *Loader) reportFailure(path string, cause error) {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	pluginsFailedTotal.WithLabelValues(classifyFailure(cause)).Inc()
	FireGlobal(l.m.bus, func() PluginLoadFailedEvent {
		return PluginLoadFailedEvent{Path: path, Reason: reason}
	})
}

func classifyFailure(err error) string {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return qerr.Kind.String()
	}
	return "open_or_lookup"
}

// UnloadAll stops accepting new resolutions against loaded libraries,
// clears every piece of registry and event-bus state under the composite
// teardown lock, and closes each library handle in reverse load order. The
// Manager's own self-registration is restored afterward so Active() keeps
// working. Per spec §5, the caller (Manager.Shutdown) is expected to have
// already stopped the event bus worker before calling this.
func (l *Loader) UnloadAll() error {
	l.m.resetTeardownState()
	l.m.registerSelf()

	var firstErr error
	for i := len(l.loadOrder) - 1; i >= 0; i-- {
		path := l.loadOrder[i]
		handle, ok := l.loaded[path]
		if !ok {
			continue
		}
		if closeErr := handle.Close(); closeErr != nil && firstErr == nil {
			firstErr = closeErr
		}
		delete(l.loaded, path)
	}
	l.loadOrder = l.loadOrder[:0]
	return firstErr
}

// LoadedLibraries returns the path of every library this Loader currently
// has open.
func (l *Loader) LoadedLibraries() []string {
	out := make([]string, 0, len(l.loaded))
	for path := range l.loaded {
		out = append(out, path)
	}
	return out
}
