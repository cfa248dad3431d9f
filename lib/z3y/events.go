package z3y

// Event is implemented by every payload type published on the event bus.
// EventID must return a value constant for the concrete type — the event
// bus calls it on the type's zero value to learn which subscription list
// to check before the payload is even built (spec §4.7's "compile-time
// optimisation").
type Event interface {
	EventID() EventID
}

// Framework-standard events (spec §4.4/§4.6/§4.7), the Go rendition of
// original_source/framework/framework_events.h.

var (
	componentRegisteredEventID = MustHash("f0000001-f000-4000-8000-000000000001")
	pluginLoadFailedEventID    = MustHash("f0000002-f000-4000-8000-000000000002")
	pluginLoadSucceededEventID = MustHash("f0000003-f000-4000-8000-000000000003")
	asyncExceptionEventID      = MustHash("f0000004-f000-4000-8000-000000000004")
)

// ComponentRegisteredEvent is fired (best effort) whenever
// RegistryHandle.Register succeeds and whenever the Manager registers
// itself. A direct Registry.Register call does not fire it.
type ComponentRegisteredEvent struct {
	ClassID ClassID
	Alias   string
}

func (ComponentRegisteredEvent) EventID() EventID { return componentRegisteredEventID }

// PluginLoadFailedEvent is fired when a library fails to open, fails
// symbol resolution, or has its init rolled back.
type PluginLoadFailedEvent struct {
	Path   string
	Reason string
}

func (PluginLoadFailedEvent) EventID() EventID { return pluginLoadFailedEventID }

// PluginLoadSucceededEvent is fired once a library's init has committed.
type PluginLoadSucceededEvent struct {
	Path string
}

func (PluginLoadSucceededEvent) EventID() EventID { return pluginLoadSucceededEventID }

// AsyncExceptionEvent is fired synchronously from the worker goroutine
// whenever a queued callback panics (spec §4.7).
// Subscribers to this event must use DeliveryDirect.
type AsyncExceptionEvent struct {
	Message string
}

func (AsyncExceptionEvent) EventID() EventID { return asyncExceptionEventID }
