package event

import (
	"errors"
	"sync"
	"testing"
)

func TestChannelDispatchOrder(t *testing.T) {
	ch := NewChannel("p1")

	var got []int
	for i := 1; i <= 3; i++ {
		n := i
		if _, err := ch.Subscribe(TypePluginToggled, func(Event) { got = append(got, n) }); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	if err := ch.Dispatch(New(TypePluginToggled, nil, "test")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", got)
	}
}

func TestChannelDispatchOnlyMatchingType(t *testing.T) {
	ch := NewChannel("p1")

	toggled := 0
	notified := 0
	ch.Subscribe(TypePluginToggled, func(Event) { toggled++ })
	ch.Subscribe(TypeToggleNotification, func(Event) { notified++ })

	ch.Dispatch(New(TypeToggleNotification, nil, "plugin"))

	if toggled != 0 || notified != 1 {
		t.Errorf("toggled=%d notified=%d, want 0 and 1", toggled, notified)
	}
}

func TestChannelSubscribeErrors(t *testing.T) {
	ch := NewChannel("p1")

	if _, err := ch.Subscribe(TypePluginToggled, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Subscribe(nil) error = %v, want ErrNilHandler", err)
	}
	if _, err := ch.Subscribe("", func(Event) {}); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrInvalidType", err)
	}

	ch.Close()
	if _, err := ch.Subscribe(TypePluginToggled, func(Event) {}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrChannelClosed", err)
	}
	if err := ch.Dispatch(New(TypePluginToggled, nil, "test")); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Dispatch() after Close error = %v, want ErrChannelClosed", err)
	}
}

func TestChannelOnce(t *testing.T) {
	ch := NewChannel("p1")

	calls := 0
	ch.Subscribe(TypePluginToggled, func(Event) { calls++ }, WithOnce())

	ch.Dispatch(New(TypePluginToggled, nil, "test"))
	ch.Dispatch(New(TypePluginToggled, nil, "test"))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if ch.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after once subscription fired", ch.Len())
	}
}

func TestChannelUnsubscribe(t *testing.T) {
	ch := NewChannel("p1")

	calls := 0
	sub, _ := ch.Subscribe(TypePluginToggled, func(Event) { calls++ })

	if err := ch.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := ch.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe() error = %v, want ErrSubscriptionNotFound", err)
	}

	ch.Dispatch(New(TypePluginToggled, nil, "test"))
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestChannelPausedSubscription(t *testing.T) {
	ch := NewChannel("p1")

	calls := 0
	sub, _ := ch.Subscribe(TypePluginToggled, func(Event) { calls++ })

	sub.Pause()
	ch.Dispatch(New(TypePluginToggled, nil, "test"))
	sub.Resume()
	ch.Dispatch(New(TypePluginToggled, nil, "test"))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestChannelPanicRecovery(t *testing.T) {
	var recovered *PanicError
	ch := NewChannel("p1", WithPanicHandler(func(_ Event, err *PanicError) {
		recovered = err
	}))

	after := false
	ch.Subscribe(TypePluginToggled, func(Event) { panic("boom") })
	ch.Subscribe(TypePluginToggled, func(Event) { after = true })

	if err := ch.Dispatch(New(TypePluginToggled, nil, "test")); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if recovered == nil {
		t.Fatal("panic handler was not called")
	}
	if !errors.Is(recovered, ErrHandlerPanic) {
		t.Error("PanicError should match ErrHandlerPanic")
	}
	if !after {
		t.Error("handlers after a panicking handler should still run")
	}

	dispatched, delivered := ch.Stats()
	if dispatched != 1 || delivered != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", dispatched, delivered)
	}
}

func TestChannelHandlerMayDispatch(t *testing.T) {
	ch := NewChannel("p1")

	notified := false
	ch.Subscribe(TypeToggleNotification, func(Event) { notified = true })
	ch.Subscribe(TypePluginToggled, func(Event) {
		ch.Dispatch(New(TypeToggleNotification, true, "plugin"))
	})

	ch.Dispatch(New(TypePluginToggled, true, "overlay"))
	if !notified {
		t.Error("nested dispatch from a handler was not delivered")
	}
}

func TestChannelConcurrentDispatch(t *testing.T) {
	ch := NewChannel("p1")

	var mu sync.Mutex
	calls := 0
	ch.Subscribe(TypePluginToggled, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.Dispatch(New(TypePluginToggled, nil, "test"))
		}()
	}
	wg.Wait()

	if calls != 50 {
		t.Errorf("calls = %d, want 50", calls)
	}
}

func TestNewEventMetadata(t *testing.T) {
	a := New(TypePluginToggled, nil, "overlay")
	b := New(TypePluginToggled, nil, "overlay")

	if a.Metadata.ID == "" || a.Metadata.ID == b.Metadata.ID {
		t.Errorf("event IDs should be unique and non-empty: %q %q", a.Metadata.ID, b.Metadata.ID)
	}
	if a.Metadata.Source != "overlay" {
		t.Errorf("Source = %q, want overlay", a.Metadata.Source)
	}
	if a.Metadata.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}
