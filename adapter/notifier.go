package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/metrics"
)

// DefaultDrainTimeout bounds how long Close waits for queued events.
const DefaultDrainTimeout = 5 * time.Second

// Notifier delivers events through an Adapter in the background, one at
// a time and in submission order. Notify never blocks the caller.
// A nil *Notifier discards events.
type Notifier struct {
	adapter Adapter
	pool    *workerpool.WorkerPool
	logger  *log.Logger
	metrics *metrics.Collector

	// ctx is cancelled when Close gives up draining.
	ctx    context.Context
	cancel context.CancelFunc

	drainTimeout time.Duration

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// NewNotifier starts a notifier over a. logger and collector may be nil.
func NewNotifier(a Adapter, logger *log.Logger, collector *metrics.Collector) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		adapter:      a,
		pool:         workerpool.New(1),
		logger:       logger.Named("notifier"),
		metrics:      collector,
		ctx:          ctx,
		cancel:       cancel,
		drainTimeout: DefaultDrainTimeout,
	}
}

// Notify queues event for delivery.
func (n *Notifier) Notify(event *Event) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pool.Submit(func() {
		err := n.adapter.Publish(n.ctx, event)
		n.metrics.IncNotify(err == nil)
		if err != nil {
			n.logger.Warn("event delivery failed", map[string]any{
				"event_type": event.EventType,
				"error":      err.Error(),
			})
			return
		}
		n.logger.Debug("event delivered", map[string]any{"event_type": event.EventType})
	})
}

// Close delivers queued events, waiting at most the drain timeout, then
// closes the adapter.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return n.closeErr
	}
	n.closed = true
	n.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		n.pool.StopWait()
		close(drained)
	}()

	timer := time.NewTimer(n.drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		n.logger.Warn("abandoning queued events", map[string]any{"waiting": n.pool.WaitingQueueSize()})
		n.cancel()
		<-drained
	}
	n.cancel()

	err := n.adapter.Close()
	n.mu.Lock()
	n.closeErr = err
	n.mu.Unlock()
	return err
}
