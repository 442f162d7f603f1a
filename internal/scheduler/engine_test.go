package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Schedule(Event{ID: "later", TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Event{ID: "sooner", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
	if engine.Fired() != 2 {
		t.Fatalf("expected 2 fired, got %d", engine.Fired())
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Event{
			ID:        "evt-" + string(rune('a'+i)),
			TriggerAt: at,
		}); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesEvent(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Event{ID: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
	if err := engine.Schedule(Event{TriggerAt: time.Now()}); err != ErrMissingID {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestScheduleSameIDReplaces(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	_ = engine.Schedule(Event{ID: "fajr-before", TriggerAt: now.Add(time.Hour)})
	_ = engine.Schedule(Event{ID: "fajr-before", TriggerAt: now.Add(30 * time.Millisecond), Payload: []byte("v2")})

	if n := len(engine.Pending()); n != 1 {
		t.Fatalf("expected one pending event, got %d", n)
	}
	ev := waitEvent(t, engine.C(), time.Second)
	if string(ev.Payload) != "v2" {
		t.Fatalf("expected replacement payload, got %q", ev.Payload)
	}
}

func TestCancelRemovesArmedEvent(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	_ = engine.Schedule(Event{ID: "asr-r1", TriggerAt: now.Add(40 * time.Millisecond)})
	_ = engine.Schedule(Event{ID: "asr-r2", TriggerAt: now.Add(50 * time.Millisecond)})
	_ = engine.Schedule(Event{ID: "maghrib", TriggerAt: now.Add(60 * time.Millisecond)})

	if !engine.Cancel("asr-r1") || !engine.Cancel("asr-r2") {
		t.Fatal("expected both reminders to be cancelled")
	}
	if engine.Cancel("asr-r1") {
		t.Fatal("second cancel should report false")
	}
	ev := waitEvent(t, engine.C(), time.Second)
	if ev.ID != "maghrib" {
		t.Fatalf("unexpected event %s", ev.ID)
	}
}

func TestCancelAll(t *testing.T) {
	engine := NewEngine(4)
	now := time.Now().UTC()
	_ = engine.Schedule(Event{ID: "a", TriggerAt: now.Add(time.Hour)})
	_ = engine.Schedule(Event{ID: "b", TriggerAt: now.Add(2 * time.Hour)})
	if n := engine.CancelAll(); n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}
	if len(engine.Pending()) != 0 {
		t.Fatal("expected no pending events")
	}
}

func TestScheduleAfterStopFails(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	err := engine.Schedule(Event{ID: "x", TriggerAt: time.Now()})
	if !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func waitEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}
