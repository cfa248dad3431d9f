//go:build linux

package z3y

import (
	"path/filepath"
	"plugin"
)

// pluginBackend is the production Backend on platforms where the Go
// runtime supports plugin.Open (linux, cgo-enabled). It maps a .so
// directly into the process, matching the original's dlopen/LoadLibrary
// semantics far more closely than a subprocess model would (spec §1).
type pluginBackend struct{}

func defaultBackend() Backend { return pluginBackend{} }

func (pluginBackend) Recognizes(path string) bool {
	return filepath.Ext(path) == ".so"
}

func (pluginBackend) Open(path string) (LibraryHandle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginHandle{p: p}, nil
}

type pluginHandle struct {
	p *plugin.Plugin
}

func (h pluginHandle) Lookup(symbol string) (any, error) {
	sym, err := h.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close is a no-op: the Go runtime never unmaps a plugin once opened.
// Refcount bookkeeping in Registry still tracks logical liveness so
// higher layers behave as if unmapping were possible.
func (h pluginHandle) Close() error { return nil }
