package z3y

import (
	"runtime"
	"testing"
	"time"
)

var fakeEventID = MustHash("e0000001-e000-4000-8000-000000000001")

type fakeEvent struct{ Value int }

func (fakeEvent) EventID() EventID { return fakeEventID }

func TestFireGlobal_SkipsConstructionWithoutSubscribers(t *testing.T) {
	b := NewBus()
	built := false
	FireGlobal(b, func() fakeEvent { built = true; return fakeEvent{} })
	if built {
		t.Fatal("FireGlobal constructed a payload with no subscribers")
	}
}

func TestFireGlobal_DirectDeliveryBeforeReturn(t *testing.T) {
	b := NewBus()
	subscriber := new(int)
	got := -1
	SubscribeGlobal(b, subscriber, func(e fakeEvent) { got = e.Value }, DeliveryDirect)

	FireGlobal(b, func() fakeEvent { return fakeEvent{Value: 42} })
	if got != 42 {
		t.Fatalf("direct subscriber saw %d, want 42 immediately after FireGlobal returns", got)
	}
}

func TestFireToSender_OnlyDeliversToThatSendersSubscribers(t *testing.T) {
	b := NewBus()
	sender1 := new(int)
	sender2 := new(int)
	subscriber := new(int)
	calls := 0
	SubscribeToSender(b, sender1, subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)

	FireToSender(b, sender2, func() fakeEvent { return fakeEvent{} })
	if calls != 0 {
		t.Fatalf("subscriber saw %d calls from the wrong sender, want 0", calls)
	}
	FireToSender(b, sender1, func() fakeEvent { return fakeEvent{} })
	if calls != 1 {
		t.Fatalf("subscriber saw %d calls from its sender, want 1", calls)
	}
}

func TestUnsubscribe_StopsFutureDelivery(t *testing.T) {
	b := NewBus()
	subscriber := new(int)
	calls := 0
	SubscribeGlobal(b, subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)

	Unsubscribe(b, subscriber)
	FireGlobal(b, func() fakeEvent { return fakeEvent{} })
	if calls != 0 {
		t.Fatalf("unsubscribed subscriber was still invoked, calls=%d", calls)
	}
}

func TestSubscriberLifetime_ExpiredSubscriberIsSkippedAndReclaimed(t *testing.T) {
	b := NewBus()
	calls := 0
	func() {
		subscriber := new(int)
		SubscribeGlobal(b, subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)
		runtime.KeepAlive(subscriber)
	}()

	// Force a collection so the weak reference actually clears. This is
	// the one place a test leans on runtime.GC, mirroring how a real
	// caller would rely on it going out of scope.
	for i := 0; i < 3 && calls == 0; i++ {
		runtime.GC()
	}

	FireGlobal(b, func() fakeEvent { return fakeEvent{} })
	if calls != 0 {
		t.Fatalf("expired subscriber was invoked, calls=%d", calls)
	}

	b.mu.Lock()
	remaining := len(b.globalSubs[fakeEventID])
	b.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("globalSubs still holds %d entries after the subscriber expired", remaining)
	}
}

func TestBus_QueuedDeliveryRunsOnWorker(t *testing.T) {
	b := NewBus()
	b.Start()
	defer b.Stop()

	subscriber := new(int)
	done := make(chan int, 1)
	SubscribeGlobal(b, subscriber, func(e fakeEvent) { done <- e.Value }, DeliveryQueued)

	FireGlobal(b, func() fakeEvent { return fakeEvent{Value: 7} })

	select {
	case v := <-done:
		if v != 7 {
			t.Fatalf("queued subscriber saw %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("queued delivery did not happen within 1s")
	}
}

func TestBus_AsyncExceptionOnQueuedPanic(t *testing.T) {
	b := NewBus()
	b.Start()
	defer b.Stop()

	panicker := new(int)
	SubscribeGlobal(b, panicker, func(e fakeEvent) { panic("boom") }, DeliveryQueued)

	observer := new(int)
	caught := make(chan string, 1)
	SubscribeGlobal(b, observer, func(e AsyncExceptionEvent) { caught <- e.Message }, DeliveryDirect)

	FireGlobal(b, func() fakeEvent { return fakeEvent{} })

	select {
	case msg := <-caught:
		if msg == "" {
			t.Fatal("AsyncExceptionEvent had an empty message")
		}
	case <-time.After(time.Second):
		t.Fatal("no AsyncExceptionEvent observed within 1s")
	}
}

func TestBus_ResetAllClearsSubscriptionsAndQueues(t *testing.T) {
	b := NewBus()
	subscriber := new(int)
	sender := new(int)
	calls := 0
	SubscribeGlobal(b, subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)
	SubscribeToSender(b, sender, subscriber, func(e fakeEvent) { calls++ }, DeliveryDirect)
	b.queueMu.Lock()
	b.taskQueue = append(b.taskQueue, func() {})
	b.gcQueue = append(b.gcQueue, subscriber)
	b.queueMu.Unlock()

	b.resetAll()

	FireGlobal(b, func() fakeEvent { return fakeEvent{} })
	FireToSender(b, sender, func() fakeEvent { return fakeEvent{} })
	if calls != 0 {
		t.Fatalf("subscription survived resetAll, calls=%d", calls)
	}
	b.queueMu.Lock()
	taskLen, gcLen := len(b.taskQueue), len(b.gcQueue)
	b.queueMu.Unlock()
	if taskLen != 0 || gcLen != 0 {
		t.Fatalf("resetAll left taskQueue=%d gcQueue=%d, want both empty", taskLen, gcLen)
	}
}
