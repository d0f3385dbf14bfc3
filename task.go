package imagepipeline

import (
	"context"
	"sync"

	"github.com/joeycumines/imagepipeline/internal/coordinator"
)

// taskHandle is the shared plumbing behind [ImageTask] and [DataTask]: a
// subscription to one coordinator subtask, exposed to callers as an
// independently mutable-priority, independently cancellable event stream
// (spec §4.2) instead of the delegate-callback shape a naive port would
// produce (spec §9).
type taskHandle struct {
	pipeline *Pipeline
	st       *coordinator.Subtask
	subID    uint64

	mu       sync.Mutex
	events   []Event
	newEvent chan struct{}
	closed   bool
	request  Request
}

func (p *Pipeline) newTaskHandle(req Request, key coordinator.Key, coalesce bool, op coordinator.Operation, wrap func(coordinator.Event) Event) *taskHandle {
	h := &taskHandle{pipeline: p, request: req, newEvent: make(chan struct{})}
	st, id := p.coord.Attach(key, coalesce, coordinator.Priority(req.Priority), op, func(ev coordinator.Event) {
		h.push(wrap(ev))
	})
	h.st = st
	h.subID = id
	return h
}

// push appends ev to the handle's buffered history and wakes any waiter.
func (h *taskHandle) push(ev Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.events = append(h.events, ev)
	if ev.Kind == EventResponse || ev.Kind == EventError {
		h.closed = true
	}
	close(h.newEvent)
	h.newEvent = make(chan struct{})
	h.mu.Unlock()
}

// Events blocks until at least one new event (beyond those already
// observed via from) is available, returning the events from index from
// onward and the index to pass as from on the next call. Once the handle
// is closed and nothing new remains, it returns no events without
// blocking.
func (h *taskHandle) Events(ctx context.Context, from int) ([]Event, int, error) {
	for {
		h.mu.Lock()
		if from < len(h.events) {
			out := append([]Event(nil), h.events[from:]...)
			n := len(h.events)
			h.mu.Unlock()
			return out, n, nil
		}
		if h.closed {
			h.mu.Unlock()
			return nil, from, nil
		}
		wait := h.newEvent
		h.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, from, ctx.Err()
		}
	}
}

// Await blocks until the task reaches a terminal event, returning its
// response value (type depends on whether this is an image or data task)
// or its terminal error.
func (h *taskHandle) Await(ctx context.Context) (any, error) {
	from := 0
	for {
		evs, next, err := h.Events(ctx, from)
		if err != nil {
			return nil, err
		}
		for _, ev := range evs {
			switch ev.Kind {
			case EventResponse:
				return ev.Response, nil
			case EventError:
				return nil, ev.Err
			}
		}
		from = next
	}
}

// SetPriority changes the subscriber's priority, propagating the derived
// subtask priority per spec §5.
func (h *taskHandle) SetPriority(p Priority) {
	h.pipeline.coord.SetPriority(h.st, h.subID, coordinator.Priority(p))
}

// Cancel detaches the subscriber. If it was the subtask's last subscriber,
// the underlying work is cancelled (spec §4.2's cancellation contract).
// Any pending or future Events/Await calls observe a terminal
// [ErrCancelled], per errors.go's contract for cancelled handles.
func (h *taskHandle) Cancel() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.events = append(h.events, Event{Kind: EventError, Err: &ErrCancelled{Reason: "task cancelled"}})
	h.closed = true
	close(h.newEvent)
	h.mu.Unlock()
	h.pipeline.coord.Detach(h.st, h.subID)
}

// ImageTask is the handle returned by [Pipeline.ImageTask]: an
// independently prioritisable, independently cancellable stream of
// progress, preview, and terminal events for one image request.
type ImageTask struct{ h *taskHandle }

// Events returns every event observed since from, blocking until at least
// one is available or ctx is done. Pass from = 0 initially, and the
// returned index on subsequent calls.
func (t *ImageTask) Events(ctx context.Context, from int) ([]Event, int, error) {
	return t.h.Events(ctx, from)
}

// Response blocks for the task's terminal [ImageResponse], or its error.
func (t *ImageTask) Response(ctx context.Context) (*ImageResponse, error) {
	v, err := t.h.Await(ctx)
	if err != nil {
		return nil, err
	}
	resp, _ := v.(*ImageResponse)
	return resp, nil
}

// SetPriority changes this task's priority.
func (t *ImageTask) SetPriority(p Priority) { t.h.SetPriority(p) }

// Cancel cancels this task's subscription.
func (t *ImageTask) Cancel() { t.h.Cancel() }

// DataTask is the handle returned by [Pipeline.DataTask]: a stream of
// progress and terminal events for one raw-data request.
type DataTask struct{ h *taskHandle }

// Events returns every event observed since from, blocking until at least
// one is available or ctx is done.
func (t *DataTask) Events(ctx context.Context, from int) ([]Event, int, error) {
	return t.h.Events(ctx, from)
}

// Response blocks for the task's terminal [DataResponse], or its error.
func (t *DataTask) Response(ctx context.Context) (*DataResponse, error) {
	v, err := t.h.Await(ctx)
	if err != nil {
		return nil, err
	}
	resp, _ := v.(*DataResponse)
	return resp, nil
}

// SetPriority changes this task's priority.
func (t *DataTask) SetPriority(p Priority) { t.h.SetPriority(p) }

// Cancel cancels this task's subscription.
func (t *DataTask) Cancel() { t.h.Cancel() }
