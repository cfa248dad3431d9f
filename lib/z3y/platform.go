package z3y

import "errors"

// ErrUnsupportedPlatform is returned by the default Backend on platforms
// where the Go runtime cannot open shared libraries at all (spec's
// "platform shim" is a per-OS primitive; Go only implements plugin.Open on
// a subset of unix-like targets).
var ErrUnsupportedPlatform = errors.New("z3y: dynamic library loading is not supported on this platform")

// LibraryHandle is the opaque per-library resource the loader acquires on
// a successful open and releases on unload. It is the Go analogue of the
// original's `void*` LibHandle.
type LibraryHandle interface {
	// Lookup resolves symbol, returning the value the plugin exported
	// under that name. Its concrete type depends on the Backend: the
	// production Backend resolves Go plugin symbols (any exported
	// package-level value/func); the loader type-asserts it to the unnamed
	// type func(RegistryHandle) error (InitFunc's underlying type), so a
	// value whose dynamic type is the named InitFunc does not match.
	Lookup(symbol string) (any, error)
	// Close unmaps the library. It is only ever called after every
	// component descriptor sourced from this library has been removed
	// from the registry (spec §4.6/§5); Close itself does not enforce
	// this — enforcing it is the caller's responsibility, per spec.
	Close() error
}

// Backend is the platform-specific primitive the Loader consumes to map a
// file into the process and resolve a symbol in it. It corresponds to the
// original's platform_posix.cpp / platform_win.cpp split, and is
// deliberately out of the framework's core per spec §1 ("the dynamic
// library loader wrapper... is a platform primitive the core consumes").
type Backend interface {
	// Open maps path into the process, returning a handle for symbol
	// lookup and later unmapping. It should fail fast and cleanly if path
	// is not a dynamic library the platform recognises.
	Open(path string) (LibraryHandle, error)
	// Recognizes reports whether path's extension marks it as a dynamic
	// library on this platform (spec §4.6 "For each path the platform
	// shim recognises as a dynamic library").
	Recognizes(path string) bool
}

// InitFunc is the well-known entry point every participating library
// exports (spec §6). Go plugin symbols cannot be arbitrary function
// values looked up generically with a fixed signature the way a C ABI
// symbol can — Plugin.Lookup returns `plugin.Symbol` (an `any` wrapping
// whatever the plugin exported) which the loader type-asserts to this
// exact signature.
//
// A non-nil returned error, or a panic recovered by the loader, both
// trigger the transactional rollback spec §4.6 describes for "exception or
// any error thrown from init" — Go has no exceptions, so both channels are
// honoured.
type InitFunc func(RegistryHandle) error
