package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/pithecene-io/ikernel/metrics"
)

type recordingAdapter struct {
	mu     sync.Mutex
	events []string
	fail   bool
	block  chan struct{}
	closed bool
}

func (r *recordingAdapter) Publish(ctx context.Context, e *Event) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.EventType)
	if r.fail {
		return errors.New("downstream unavailable")
	}
	return nil
}

func (r *recordingAdapter) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := &recordingAdapter{}
	c := metrics.NewCollector("yaegi", "go", "none", "k")
	n := NewNotifier(a, nil, c)

	n.Notify(&Event{EventType: EventExecutionCompleted})
	n.Notify(&Event{EventType: EventExecutionCompleted})
	n.Notify(&Event{EventType: EventKernelShutdown})
	if err := n.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := []string{EventExecutionCompleted, EventExecutionCompleted, EventKernelShutdown}
	if diff := cmp.Diff(want, a.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if !a.closed {
		t.Error("adapter not closed")
	}
	if got := c.Snapshot().NotifySuccess; got != 3 {
		t.Errorf("NotifySuccess = %d, want 3", got)
	}
}

func TestNotifier_CountsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := metrics.NewCollector("yaegi", "go", "none", "k")
	n := NewNotifier(&recordingAdapter{fail: true}, nil, c)
	n.Notify(&Event{EventType: EventKernelShutdown})
	_ = n.Close()

	if got := c.Snapshot().NotifyFailure; got != 1 {
		t.Errorf("NotifyFailure = %d, want 1", got)
	}
}

func TestNotifier_CloseAbandonsStuckDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := &recordingAdapter{block: make(chan struct{})}
	n := NewNotifier(a, nil, nil)
	n.drainTimeout = 20 * time.Millisecond

	n.Notify(&Event{EventType: EventExecutionCompleted})
	done := make(chan error, 1)
	go func() { done <- n.Close() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	if len(a.events) != 0 {
		t.Errorf("stuck event was recorded: %v", a.events)
	}
}

func TestNotifier_NotifyAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := &recordingAdapter{}
	n := NewNotifier(a, nil, nil)
	_ = n.Close()
	n.Notify(&Event{EventType: EventKernelShutdown})
	if err := n.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if len(a.events) != 0 {
		t.Errorf("events after close: %v", a.events)
	}
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	n.Notify(&Event{EventType: EventKernelShutdown})
	if err := n.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestEvent_Stamp(t *testing.T) {
	at := time.Date(2026, 2, 7, 12, 0, 0, 0, time.FixedZone("X", 3600))
	e := (&Event{}).Stamp(at)
	if e.Timestamp != "2026-02-07T11:00:00Z" {
		t.Errorf("Timestamp = %q", e.Timestamp)
	}
}
