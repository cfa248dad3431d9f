package z3y

import (
	"io"
	"sync/atomic"
)

// ControlBlock is the reference count shared by a Handle and every Typed[T]
// aliased from it. Exactly one ControlBlock exists per concrete component
// instance; every interface view derived from that instance via Cast points
// at the same ControlBlock. This is the Go rendition of the "aliasing
// shared_ptr" mechanism spec §4.3/§9 calls for: "implementations without
// native aliasing must model the handle as (control-block ptr, observer
// ptr) explicitly; release goes through the control block."
type ControlBlock struct {
	refs    atomic.Int32
	obj     Component
	release func()
}

// newControlBlock creates a control block with an initial refcount of 1,
// owned by the caller.
func newControlBlock(obj Component, release func()) *ControlBlock {
	cb := &ControlBlock{obj: obj, release: release}
	cb.refs.Store(1)
	return cb
}

// Retain increments the refcount. The caller must already hold a live
// reference (i.e. must not call Retain on a control block it merely
// observed weakly without a successful TryRetain).
func (c *ControlBlock) Retain() { c.refs.Add(1) }

// TryRetain increments the refcount only if it is currently greater than
// zero, atomically. It is the lock-free "upgrade a weak observation to a
// strong one" primitive Registry.cachedSingleton (behind GetService)
// needs: without the
// compare-and-swap loop, a singleton whose refcount has already reached
// zero (but whose ControlBlock the garbage collector has not yet reclaimed
// behind the weak.Pointer) could be resurrected by a racing caller.
func (c *ControlBlock) TryRetain() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release decrements the refcount. At zero it calls Close (if the
// underlying component implements io.Closer) and then the release hook
// supplied when the control block was created — typically a library-pin
// decrement — exactly once, satisfying Testable Property 5 regardless of
// how many Typed[T] aliases were derived from this control block.
func (c *ControlBlock) Release() {
	if c.refs.Add(-1) != 0 {
		return
	}
	if closer, ok := c.obj.(io.Closer); ok {
		_ = closer.Close()
	}
	if c.release != nil {
		c.release()
	}
	c.obj = nil
}

// RefCount reports the current strong reference count. Intended for tests
// and introspection only.
func (c *ControlBlock) RefCount() int32 { return c.refs.Load() }

// Handle is a reference-counted, boundary-safe pointer to a Component. It
// is the framework's PluginPtr<IComponent> analogue.
type Handle struct {
	ctrl *ControlBlock
}

// NewHandle wraps obj in a fresh ControlBlock with an initial refcount of
// one, running release when the last reference is dropped.
func NewHandle(obj Component, release func()) Handle {
	return Handle{ctrl: newControlBlock(obj, release)}
}

// IsEmpty reports whether h holds no control block, the Handle
// equivalent of a null PluginPtr.
func (h Handle) IsEmpty() bool { return h.ctrl == nil }

// Retain returns a new Handle sharing h's control block, incrementing the
// refcount.
func (h Handle) Retain() Handle {
	if h.ctrl == nil {
		return Handle{}
	}
	h.ctrl.Retain()
	return Handle{ctrl: h.ctrl}
}

// Release decrements h's control block refcount. h must not be used again
// afterwards.
func (h Handle) Release() {
	if h.ctrl != nil {
		h.ctrl.Release()
	}
}

// Query implements Component by delegating to the wrapped object, so a
// Handle can itself be treated as a Component (needed by Cast).
func (h Handle) Query(iid InterfaceID, major, minor uint32) (any, error) {
	if h.ctrl == nil || h.ctrl.obj == nil {
		return nil, &QueryError{Kind: ErrInternal, Message: "query on empty handle"}
	}
	return h.ctrl.obj.Query(iid, major, minor)
}
