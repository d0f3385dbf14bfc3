package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func drainEvents(t *testing.T, ch <-chan Event, n int, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %v", n, len(out), out)
		}
	}
	return out
}

func subscribeChan(c *Coordinator, key Key, coalesce bool, priority Priority, op Operation) (*Subtask, uint64, <-chan Event) {
	ch := make(chan Event, 16)
	st, id := c.Attach(key, coalesce, priority, op, func(ev Event) { ch <- ev })
	return st, id, ch
}

func TestAttach_Coalesces(t *testing.T) {
	c := New()
	defer c.Close()

	var starts int
	var mu sync.Mutex
	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		mu.Lock()
		starts++
		mu.Unlock()
		emit(Event{Kind: EventResult, Value: "done"})
	}

	_, _, ch1 := subscribeChan(c, "k", true, 0, op)
	_, _, ch2 := subscribeChan(c, "k", true, 0, op)

	ev1 := drainEvents(t, ch1, 1, time.Second)[0]
	ev2 := drainEvents(t, ch2, 1, time.Second)[0]

	if ev1.Value != "done" || ev2.Value != "done" {
		t.Errorf("expected both subscribers to see the result, got %v %v", ev1, ev2)
	}

	mu.Lock()
	defer mu.Unlock()
	if starts != 1 {
		t.Errorf("expected the operation to start exactly once, started %d times", starts)
	}
}

func TestAttach_NoCoalesceStartsIndependently(t *testing.T) {
	c := New()
	defer c.Close()

	var starts int32
	var mu sync.Mutex
	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		mu.Lock()
		starts++
		mu.Unlock()
		emit(Event{Kind: EventResult})
	}

	_, _, ch1 := subscribeChan(c, "k", false, 0, op)
	_, _, ch2 := subscribeChan(c, "k", false, 0, op)

	drainEvents(t, ch1, 1, time.Second)
	drainEvents(t, ch2, 1, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if starts != 2 {
		t.Errorf("expected two independent starts, got %d", starts)
	}
}

func TestAttach_LateSubscriberSeesTerminalResult(t *testing.T) {
	c := New()
	defer c.Close()

	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		emit(Event{Kind: EventResult, Value: 42})
	}

	_, _, ch1 := subscribeChan(c, "k", true, 0, op)
	drainEvents(t, ch1, 1, time.Second)

	// Subtask is already terminal; a late attach must still observe the result.
	_, _, ch2 := subscribeChan(c, "k", true, 0, op)
	ev := drainEvents(t, ch2, 1, time.Second)[0]
	if ev.Kind != EventResult || ev.Value != 42 {
		t.Errorf("late subscriber got %+v, want terminal result 42", ev)
	}
}

func TestDetach_LastSubscriberCancels(t *testing.T) {
	c := New()
	defer c.Close()

	cancelled := make(chan struct{})
	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		<-ctx.Done()
		close(cancelled)
	}

	st, id, _ := subscribeChan(c, "k", true, 0, op)
	c.Detach(st, id)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation was not cancelled after last subscriber detached")
	}

	if _, ok := c.Lookup("k"); ok {
		t.Error("subtask should be removed from the registry after last-subscriber cancellation")
	}
}

func TestDetach_RemainingSubscriberUnaffected(t *testing.T) {
	c := New()
	defer c.Close()

	release := make(chan struct{})
	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		<-release
		emit(Event{Kind: EventResult, Value: "ok"})
	}

	st1, id1, ch1 := subscribeChan(c, "k", true, 0, op)
	_, _, ch2 := subscribeChan(c, "k", true, 0, op)

	c.Detach(st1, id1)
	close(release)

	ev := drainEvents(t, ch2, 1, time.Second)[0]
	if ev.Kind != EventResult || ev.Value != "ok" {
		t.Errorf("remaining subscriber should still observe the result, got %+v", ev)
	}

	select {
	case ev := <-ch1:
		t.Errorf("detached subscriber should not receive further events, got %+v", ev)
	default:
	}
}

func TestSetPriority_PropagatesAcrossDependency(t *testing.T) {
	c := New()
	defer c.Close()

	depRelease := make(chan struct{})
	var depSubtask *Subtask
	depOp := func(ctx context.Context, self *Subtask, emit func(Event)) {
		depSubtask = self
		<-depRelease
		emit(Event{Kind: EventResult})
	}
	dep, _, depCh := subscribeChan(c, "dep", true, Priority(1), depOp)
	_ = depSubtask

	registered := make(chan struct{})
	mainOp := func(ctx context.Context, self *Subtask, emit func(Event)) {
		self.DependsOn(dep)
		close(registered)
		<-ctx.Done()
	}
	main, mainID, _ := subscribeChan(c, "main", true, Priority(1), mainOp)
	<-registered // the dependency edge is registered by mainOp's own goroutine

	if dep.CurrentPriority() != Priority(1) {
		t.Fatalf("dep priority = %v, want 1 (from its own subscriber)", dep.CurrentPriority())
	}

	c.SetPriority(main, mainID, Priority(9))

	if got := dep.CurrentPriority(); got != Priority(9) {
		t.Errorf("dep priority after propagation = %v, want 9", got)
	}

	close(depRelease)
	drainEvents(t, depCh, 1, time.Second)
	c.Detach(main, mainID)
}

func TestInvalidate_NotifiesLiveAndFutureAttaches(t *testing.T) {
	c := New()
	defer c.Close()

	block := make(chan struct{})
	op := func(ctx context.Context, self *Subtask, emit func(Event)) {
		<-block
	}
	_, _, ch := subscribeChan(c, "k", true, 0, op)

	sentinel := errors.New("invalidated")
	c.Invalidate(sentinel)

	ev := drainEvents(t, ch, 1, time.Second)[0]
	if ev.Kind != EventError || !errors.Is(ev.Err, sentinel) {
		t.Errorf("live subscriber should see the invalidation error, got %+v", ev)
	}

	_, _, ch2 := subscribeChan(c, "new-key", true, 0, op)
	ev2 := drainEvents(t, ch2, 1, time.Second)[0]
	if ev2.Kind != EventError || !errors.Is(ev2.Err, sentinel) {
		t.Errorf("future attach after Invalidate should fail immediately, got %+v", ev2)
	}

	close(block)
}
