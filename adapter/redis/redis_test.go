package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/ikernel/adapter"
)

func shutdownEvent() *adapter.Event {
	return &adapter.Event{
		EventType: adapter.EventKernelShutdown,
		KernelID:  "kernel-001",
		Session:   "session-001",
		Dialect:   "go",
		Timestamp: "2026-02-07T12:00:00Z",
		Restart:   true,
	}
}

// subscribe listens on channel and forwards the first message. The reader
// goroutine must exist before Publish because miniredis delivers
// synchronously.
func subscribe(t *testing.T, mr *miniredis.Miniredis, channel string) <-chan miniredis.PubsubMessage {
	t.Helper()
	sub := mr.NewSubscriber()
	t.Cleanup(sub.Close)
	sub.Subscribe(channel)

	out := make(chan miniredis.PubsubMessage, 1)
	go func() {
		if msg, ok := <-sub.Messages(); ok {
			out <- msg
		}
	}()
	return out
}

func receive(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPublish_Channels(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		perEvent bool
		want     string
	}{
		{"default", "", false, DefaultChannel},
		{"custom", "nb:alerts", false, "nb:alerts"},
		{"per event default", "", true, DefaultChannel + ":kernel_shutdown"},
		{"per event custom", "nb", true, "nb:kernel_shutdown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Channel: tt.channel, PerEvent: tt.perEvent})

			if got := a.ChannelFor(shutdownEvent()); got != tt.want {
				t.Fatalf("ChannelFor = %q, want %q", got, tt.want)
			}
			msgs := subscribe(t, mr, tt.want)
			if err := a.Publish(t.Context(), shutdownEvent()); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			msg := receive(t, msgs)
			if msg.Channel != tt.want {
				t.Errorf("channel = %q, want %q", msg.Channel, tt.want)
			}
			var got adapter.Event
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(*shutdownEvent(), got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublish_Unreachable(t *testing.T) {
	a := newAdapter(t, Config{
		URL:     "redis://127.0.0.1:1",
		Retries: 2,
		Timeout: 100 * time.Millisecond,
		Backoff: time.Millisecond,
	})

	err := a.Publish(t.Context(), shutdownEvent())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error %q should report 3 attempts", err)
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	if err := a.Publish(ctx, shutdownEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestPublish_AfterCloseFailsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3, Backoff: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	start := time.Now()
	err = a.Publish(t.Context(), shutdownEvent())
	if !errors.Is(err, goredis.ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("closed client should not be retried")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    Config
		wantErr string
	}{
		{name: "missing url", cfg: Config{}, wantErr: "requires a URL"},
		{name: "invalid url", cfg: Config{URL: "not-a-redis-url"}, wantErr: "invalid URL"},
		{name: "negative retries", cfg: Config{URL: "redis://localhost:6379", Retries: -1}, wantErr: "retries must be >= 0"},
		{
			name: "defaults",
			cfg:  Config{URL: "redis://localhost:6379"},
			want: Config{URL: "redis://localhost:6379", Channel: DefaultChannel, Timeout: DefaultTimeout, Backoff: DefaultBackoff},
		},
		{
			name: "explicit",
			cfg:  Config{URL: "redis://localhost:6379/2", Channel: "c", PerEvent: true, Retries: 1, Timeout: time.Second, Backoff: time.Second},
			want: Config{URL: "redis://localhost:6379/2", Channel: "c", PerEvent: true, Retries: 1, Timeout: time.Second, Backoff: time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer func() { _ = a.Close() }()
			if diff := cmp.Diff(tt.want, a.cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
