// Package iopub funnels events from every kernel loop into the single
// IOPub publish socket.
package iopub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ef-ds/deque"

	"github.com/pithecene-io/ikernel/metrics"
)

// Sender writes one multi-part message.
type Sender interface {
	Send(frames [][]byte) error
}

// Broadcaster is a many-producer, single-consumer FIFO of encoded
// messages. The queue is unbounded so producers never block.
type Broadcaster struct {
	mu        sync.Mutex
	queue     deque.Deque
	producers int

	// wake holds at most one pending signal for the consumer.
	wake chan struct{}

	metrics *metrics.Collector
}

// New creates an empty broadcaster. collector may be nil.
func New(collector *metrics.Collector) *Broadcaster {
	return &Broadcaster{
		wake:    make(chan struct{}, 1),
		metrics: collector,
	}
}

// Producer registers a new producer. Register every producer before Run
// starts: Run returns once no producers remain open and the queue is empty.
func (b *Broadcaster) Producer() *Producer {
	b.mu.Lock()
	b.producers++
	b.mu.Unlock()
	return &Producer{b: b}
}

func (b *Broadcaster) push(frames [][]byte) {
	b.mu.Lock()
	b.queue.PushBack(frames)
	b.mu.Unlock()
	b.signal()
}

func (b *Broadcaster) release() {
	b.mu.Lock()
	b.producers--
	b.mu.Unlock()
	b.signal()
}

func (b *Broadcaster) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest message. finished is true when the queue is empty
// and every producer has closed.
func (b *Broadcaster) next() (frames [][]byte, ok, finished bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, popped := b.queue.PopFront(); popped {
		return v.([][]byte), true, false
	}
	return nil, false, b.producers == 0
}

// Len returns the number of queued messages.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Run sends queued messages to out in FIFO order. It returns nil when ctx
// is done or when all producers have closed and the queue is drained. A
// send failure ends the loop with that error.
func (b *Broadcaster) Run(ctx context.Context, out Sender) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		frames, ok, finished := b.next()
		if ok {
			if err := out.Send(frames); err != nil {
				return fmt.Errorf("iopub publish: %w", err)
			}
			b.metrics.IncIOPubPublished()
			continue
		}
		if finished {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-b.wake:
		}
	}
}

// Producer is a handle for enqueueing messages. Safe for concurrent use.
type Producer struct {
	b      *Broadcaster
	closed atomic.Bool
}

// Publish enqueues frames without blocking. It returns false if the
// producer has been closed.
func (p *Producer) Publish(frames [][]byte) bool {
	if p.closed.Load() {
		return false
	}
	p.b.push(frames)
	return true
}

// Close releases the producer. Safe to call repeatedly.
func (p *Producer) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.b.release()
	}
}
