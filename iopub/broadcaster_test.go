package iopub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/pithecene-io/ikernel/metrics"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (r *recordingSender) Send(frames [][]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, string(frames[0]))
	return nil
}

func (r *recordingSender) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func msg(s string) [][]byte { return [][]byte{[]byte(s)} }

func TestBroadcaster_DrainsAndExitsWhenProducersClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := metrics.NewCollector("yaegi", "go", "none", "k")
	b := New(c)
	p := b.Producer()
	for i := 0; i < 5; i++ {
		p.Publish(msg(fmt.Sprint(i)))
	}
	p.Close()

	out := &recordingSender{}
	if err := b.Run(t.Context(), out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.messages()
	want := []string{"0", "1", "2", "3", "4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("sent = %v, want %v", got, want)
	}
	if n := c.Snapshot().IOPubPublished; n != 5 {
		t.Errorf("IOPubPublished = %d, want 5", n)
	}
}

func TestBroadcaster_PerProducerOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := New(nil)
	producers := []*Producer{b.Producer(), b.Producer(), b.Producer()}

	out := &recordingSender{}
	done := make(chan error, 1)
	go func() { done <- b.Run(t.Context(), out) }()

	var wg sync.WaitGroup
	for i, p := range producers {
		wg.Add(1)
		go func(id int, p *Producer) {
			defer wg.Done()
			defer p.Close()
			for j := 0; j < 100; j++ {
				p.Publish(msg(fmt.Sprintf("%d:%03d", id, j)))
			}
		}(i, p)
	}
	wg.Wait()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish after producers closed")
	}

	last := map[byte]string{}
	sent := out.messages()
	if len(sent) != 300 {
		t.Fatalf("sent %d messages, want 300", len(sent))
	}
	for _, m := range sent {
		id := m[0]
		if prev, ok := last[id]; ok && m <= prev {
			t.Fatalf("producer %c out of order: %s after %s", id, m, prev)
		}
		last[id] = m
	}
}

func TestBroadcaster_CancelStopsWithoutSending(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := New(nil)
	p := b.Producer()
	defer p.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	p.Publish(msg("late"))

	out := &recordingSender{}
	if err := b.Run(ctx, out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(out.messages()) != 0 {
		t.Errorf("sent %v after cancellation", out.messages())
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}
}

func TestBroadcaster_WaitsForProducers(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := New(nil)
	p := b.Producer()

	out := &recordingSender{}
	done := make(chan error, 1)
	go func() { done <- b.Run(t.Context(), out) }()

	select {
	case <-done:
		t.Fatal("Run returned while a producer was open")
	case <-time.After(50 * time.Millisecond):
	}

	p.Publish(msg("a"))
	p.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit")
	}
	if got := out.messages(); len(got) != 1 || got[0] != "a" {
		t.Errorf("sent = %v, want [a]", got)
	}
}

func TestBroadcaster_SendFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := New(nil)
	p := b.Producer()
	p.Publish(msg("x"))

	sendErr := errors.New("socket gone")
	err := b.Run(t.Context(), &recordingSender{fail: sendErr})
	if !errors.Is(err, sendErr) {
		t.Fatalf("Run error = %v, want wrapped %v", err, sendErr)
	}

	// Producers are unaffected by the consumer's failure.
	if !p.Publish(msg("y")) {
		t.Error("Publish should still succeed on an open producer")
	}
	p.Close()
	if p.Publish(msg("z")) {
		t.Error("Publish should fail after Close")
	}
}
