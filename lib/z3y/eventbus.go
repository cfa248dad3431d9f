package z3y

import (
	"sync"
	"time"
	"unsafe"
	"weak"
)

// DeliveryMode selects whether a subscription's callback runs
// synchronously on the publisher's goroutine (DeliveryDirect) or later on
// the bus's single worker goroutine (DeliveryQueued).
type DeliveryMode int

const (
	DeliveryDirect DeliveryMode = iota
	DeliveryQueued
)

// subscription is the type-erased core every typed subscribe call above it
// builds. It mirrors the original's Subscription struct (spec §3):
// a weak subscriber reference, an optional weak sender reference, a
// callback, and a delivery mode.
type subscription struct {
	subscriberKey   any // boxed weak.Pointer[S]; used as reverse-lookup identity
	subscriberAlive func() bool
	senderAlive     func() bool // nil for global subscriptions
	callback        func(Event)
	mode            DeliveryMode
}

func (s *subscription) expired() bool {
	if s.subscriberAlive != nil && !s.subscriberAlive() {
		return true
	}
	if s.senderAlive != nil && !s.senderAlive() {
		return true
	}
	return false
}

type senderEventKey struct {
	sender  uintptr
	eventID EventID
}

// senderIdentity returns a non-owning identity for sender: its address as a
// uintptr, which (unlike boxing the pointer itself in an interface) does not
// keep sender reachable, so it can still become unreachable and let its
// subscriptions expire (spec §3's sender key is an "opaque pointer" used for
// identity only, not an owning reference).
func senderIdentity[Sender any](sender *Sender) uintptr {
	return uintptr(unsafe.Pointer(sender))
}

// Bus is the typed pub/sub event bus (spec §4.7). Zero value is not
// usable; construct with NewBus.
type Bus struct {
	mu sync.Mutex

	// PollInterval bounds how long the worker goroutine sleeps between
	// checks of the task and GC queues when both are empty. Defaults to
	// workerPollInterval; a Config's WorkerPoll can override it before
	// Start is called.
	PollInterval time.Duration

	globalSubs map[EventID][]*subscription
	senderSubs map[uintptr]map[EventID][]*subscription

	globalRevLookup map[any]map[EventID]struct{}
	senderRevLookup map[any]map[senderEventKey]struct{}

	queueMu   sync.Mutex
	taskQueue []func()
	gcQueue   []any

	stop          chan struct{}
	stopped       bool
	workerRunning bool
	workerWG      sync.WaitGroup
}

// NewBus returns a ready-to-use Bus. Start must be called separately to
// launch the worker goroutine that drains queued deliveries and the GC
// queue.
func NewBus() *Bus {
	b := &Bus{
		PollInterval:    workerPollInterval,
		globalSubs:      make(map[EventID][]*subscription),
		senderSubs:      make(map[uintptr]map[EventID][]*subscription),
		globalRevLookup: make(map[any]map[EventID]struct{}),
		senderRevLookup: make(map[any]map[senderEventKey]struct{}),
		stop:            make(chan struct{}),
	}
	return b
}

func subscriberIdentity[S any](s *S) (any, func() bool) {
	wp := weak.Make(s)
	return any(wp), func() bool { return wp.Value() != nil }
}

// SubscribeGlobal subscribes subscriber to every event of type E, invoking
// cb with each one according to mode (spec §4.7's subscribe_global<E>).
// subscriber's identity is tracked with a weak reference: once it becomes
// unreachable, the subscription is opportunistically dropped on the next
// publish of E and its reverse-lookup entry is cleaned up by the worker.
func SubscribeGlobal[E Event, S any](b *Bus, subscriber *S, cb func(E), mode DeliveryMode) {
	key, alive := subscriberIdentity(subscriber)
	sub := &subscription{
		subscriberKey:   key,
		subscriberAlive: alive,
		callback:        func(e Event) { cb(e.(E)) },
		mode:            mode,
	}
	id := eventIDOf[E]()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.globalSubs[id] = append(b.globalSubs[id], sub)
	if b.globalRevLookup[key] == nil {
		b.globalRevLookup[key] = make(map[EventID]struct{})
	}
	b.globalRevLookup[key][id] = struct{}{}
	subscriptionsGauge.WithLabelValues("global").Inc()
}

// SubscribeToSender subscribes subscriber to events of type E published
// specifically via FireToSender(b, sender, ...) (spec §4.7's
// subscribe_to_sender<E>). Both subscriber and sender are tracked with
// weak references; the subscription expires if either becomes
// unreachable.
func SubscribeToSender[E Event, Sender any, S any](b *Bus, sender *Sender, subscriber *S, cb func(E), mode DeliveryMode) {
	subKey, subAlive := subscriberIdentity(subscriber)
	senderKey := senderIdentity(sender)
	senderWeak := weak.Make(sender)
	senderAlive := func() bool { return senderWeak.Value() != nil }

	sub := &subscription{
		subscriberKey:   subKey,
		subscriberAlive: subAlive,
		senderAlive:     senderAlive,
		callback:        func(e Event) { cb(e.(E)) },
		mode:            mode,
	}
	id := eventIDOf[E]()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.senderSubs[senderKey] == nil {
		b.senderSubs[senderKey] = make(map[EventID][]*subscription)
	}
	b.senderSubs[senderKey][id] = append(b.senderSubs[senderKey][id], sub)

	if b.senderRevLookup[subKey] == nil {
		b.senderRevLookup[subKey] = make(map[senderEventKey]struct{})
	}
	b.senderRevLookup[subKey][senderEventKey{sender: senderKey, eventID: id}] = struct{}{}
	subscriptionsGauge.WithLabelValues("sender").Inc()
}

// Unsubscribe removes every subscription — global and sender-scoped —
// belonging to subscriber, using the reverse-lookup tables so the cost is
// O(k) in the number of subscriptions subscriber holds, not O(n) in the
// total number of subscriptions on the bus (spec §4.7).
func Unsubscribe[S any](b *Bus, subscriber *S) {
	key, _ := subscriberIdentity(subscriber)

	b.mu.Lock()
	defer b.mu.Unlock()

	if events, ok := b.globalRevLookup[key]; ok {
		for id := range events {
			before := len(b.globalSubs[id])
			b.globalSubs[id] = removeSubscriberFrom(b.globalSubs[id], key)
			subscriptionsGauge.WithLabelValues("global").Sub(float64(before - len(b.globalSubs[id])))
		}
		delete(b.globalRevLookup, key)
	}

	if pairs, ok := b.senderRevLookup[key]; ok {
		for pair := range pairs {
			if bySender, ok := b.senderSubs[pair.sender]; ok {
				before := len(bySender[pair.eventID])
				bySender[pair.eventID] = removeSubscriberFrom(bySender[pair.eventID], key)
				subscriptionsGauge.WithLabelValues("sender").Sub(float64(before - len(bySender[pair.eventID])))
			}
		}
		delete(b.senderRevLookup, key)
	}
}

func removeSubscriberFrom(subs []*subscription, key any) []*subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.subscriberKey != key {
			out = append(out, s)
		}
	}
	return out
}

// eventIDOf returns E's constant EventID by calling EventID() on E's zero
// value.
func eventIDOf[E Event]() EventID {
	var zero E
	return zero.EventID()
}

// hasGlobalSubscribers reports whether any global subscription for id
// currently exists, without evicting expired entries. Used by FireGlobal
// to skip constructing the event payload entirely when nobody is
// listening (spec §4.7's "compile-time optimisation").
func (b *Bus) hasGlobalSubscribers(id EventID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.globalSubs[id]) > 0
}

func (b *Bus) hasSenderSubscribers(sender uintptr, id EventID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.senderSubs[sender][id]) > 0
}

// cleanupExpired removes expired subscriptions from subs, pushing each
// removed one's subscriberKey onto the GC queue (spec §4.7 step 2). scope
// labels the subscriptions gauge decrement ("global" or "sender").
func (b *Bus) cleanupExpired(subs []*subscription, scope string) []*subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.expired() {
			b.gcQueue = append(b.gcQueue, s.subscriberKey)
			subscriptionsGauge.WithLabelValues(scope).Dec()
			continue
		}
		out = append(out, s)
	}
	return out
}

// partition splits subs into direct callbacks (invoked immediately, so
// liveness at this instant is all that matters) and queued subscriptions
// (invoked later on the worker goroutine, which re-checks liveness right
// before calling back — spec's universal property 7, "still alive at the
// moment the worker dequeues").
func partition(subs []*subscription) (direct []func(Event), queued []*subscription) {
	for _, s := range subs {
		if s.mode == DeliveryDirect {
			direct = append(direct, s.callback)
		} else {
			queued = append(queued, s)
		}
	}
	return direct, queued
}

func (b *Bus) enqueueTask(task func()) {
	b.queueMu.Lock()
	b.taskQueue = append(b.taskQueue, task)
	b.queueMu.Unlock()
}

// clearSubscriptionsLocked drops every global and sender-scoped
// subscription. Callers must already hold b.mu.
func (b *Bus) clearSubscriptionsLocked() {
	globalCount := 0
	for _, subs := range b.globalSubs {
		globalCount += len(subs)
	}
	senderCount := 0
	for _, byEvent := range b.senderSubs {
		for _, subs := range byEvent {
			senderCount += len(subs)
		}
	}
	b.globalSubs = make(map[EventID][]*subscription)
	b.senderSubs = make(map[uintptr]map[EventID][]*subscription)
	b.globalRevLookup = make(map[any]map[EventID]struct{})
	b.senderRevLookup = make(map[any]map[senderEventKey]struct{})
	subscriptionsGauge.WithLabelValues("global").Sub(float64(globalCount))
	subscriptionsGauge.WithLabelValues("sender").Sub(float64(senderCount))
}

// clearQueuesLocked drops every pending queued delivery and gc entry.
// Callers must already hold b.queueMu.
func (b *Bus) clearQueuesLocked() {
	b.taskQueue = nil
	b.gcQueue = nil
}

// resetAll clears every subscription and queued task/gc entry this Bus
// holds, each under its own lock. Used standalone by tests and as the
// building block behind Manager's composite teardown lock (see
// Manager.resetTeardownState), which acquires b.mu/b.queueMu itself
// alongside the Registry's lock and calls the Locked variants directly.
func (b *Bus) resetAll() {
	b.mu.Lock()
	b.clearSubscriptionsLocked()
	b.mu.Unlock()

	b.queueMu.Lock()
	b.clearQueuesLocked()
	b.queueMu.Unlock()
}

// FireGlobal publishes an event of type E to every global subscriber, if
// any. make is only invoked when at least one subscriber exists, so a
// publisher never pays for constructing a payload nobody will observe
// (spec §4.7).
func FireGlobal[E Event](b *Bus, make func() E) {
	id := eventIDOf[E]()
	if !b.hasGlobalSubscribers(id) {
		return
	}
	e := make()

	b.mu.Lock()
	subs, ok := b.globalSubs[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	subs = b.cleanupExpired(subs, "global")
	b.globalSubs[id] = subs
	direct, queued := partition(subs)
	b.mu.Unlock()

	eventsFiredTotal.WithLabelValues("global").Inc()
	for _, cb := range direct {
		cb(e)
	}
	if len(queued) > 0 {
		b.enqueueTask(func() {
			for _, s := range queued {
				if s.expired() {
					continue
				}
				s.callback(e)
			}
		})
	}
}

// FireToSender publishes an event of type E to subscribers of sender,
// with the same lazy-construction optimisation as FireGlobal.
func FireToSender[E Event, Sender any](b *Bus, sender *Sender, make func() E) {
	id := eventIDOf[E]()
	key := senderIdentity(sender)
	if !b.hasSenderSubscribers(key, id) {
		return
	}
	e := make()

	b.mu.Lock()
	bySender, ok := b.senderSubs[key]
	if !ok {
		b.mu.Unlock()
		return
	}
	subs, ok := bySender[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	subs = b.cleanupExpired(subs, "sender")
	bySender[id] = subs
	direct, queued := partition(subs)
	b.mu.Unlock()

	eventsFiredTotal.WithLabelValues("sender").Inc()
	for _, cb := range direct {
		cb(e)
	}
	if len(queued) > 0 {
		b.enqueueTask(func() {
			for _, s := range queued {
				if s.expired() {
					continue
				}
				s.callback(e)
			}
		})
	}
}
