package eventbus

import "testing"

func TestDispatchOrderFIFO(t *testing.T) {
	b := New(nil)
	var order []int
	b.Subscribe(KindNavigation, func(evt *Event) {
		order = append(order, evt.Payload.(int))
	})
	b.AddEvent(NewEvent(KindNavigation, "trace-a", 1))
	b.AddEvent(NewEvent(KindNavigation, "trace-a", 2))
	b.AddEvent(NewEvent(KindNavigation, "trace-a", 3))
	b.DispatchEvents()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected FIFO order [1 2 3], got %v", order)
	}
}

func TestStopPropagationHaltsLaterSubscribers(t *testing.T) {
	b := New(nil)
	var calledSecond bool
	b.Subscribe(KindRangeChange, func(evt *Event) {
		evt.StopPropagation()
	})
	b.Subscribe(KindRangeChange, func(evt *Event) {
		calledSecond = true
	})
	b.AddEvent(NewEvent(KindRangeChange, "trace-a", nil))
	b.DispatchEvents()

	if calledSecond {
		t.Fatalf("expected second subscriber to be skipped after StopPropagation")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	var count int
	tok := b.Subscribe(KindTopologyChanged, func(evt *Event) { count++ })
	b.AddEvent(NewEvent(KindTopologyChanged, "", nil))
	b.DispatchEvents()
	b.Unsubscribe(tok)
	b.AddEvent(NewEvent(KindTopologyChanged, "", nil))
	b.DispatchEvents()

	if count != 1 {
		t.Fatalf("expected 1 delivery before unsubscribe, got %d", count)
	}
}

func TestEventsAcrossKindsAreIndependent(t *testing.T) {
	b := New(nil)
	var navCount, rangeCount int
	b.Subscribe(KindNavigation, func(evt *Event) { navCount++ })
	b.Subscribe(KindRangeChange, func(evt *Event) { rangeCount++ })
	b.AddEvent(NewEvent(KindNavigation, "", nil))
	b.DispatchEvents()

	if navCount != 1 || rangeCount != 0 {
		t.Fatalf("expected only navigation subscriber to fire, got nav=%d range=%d", navCount, rangeCount)
	}
}
