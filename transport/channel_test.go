package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestChannel_ReceiveInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, client := Pipe()
	ch := NewChannel("shell", server)
	defer ch.Close()

	for i := 0; i < 3; i++ {
		if err := client.Send([][]byte{{byte(i)}, []byte("x")}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := ch.Receive(t.Context())
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		want := [][]byte{{byte(i)}, []byte("x")}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("message %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestChannel_ReceiveCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, _ := Pipe()
	ch := NewChannel("control", server)
	defer ch.Close()

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		_, err := ch.Receive(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Receive error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not observe cancellation")
	}
}

func TestChannel_CancellationWinsOverReadyMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, client := Pipe()
	ch := NewChannel("shell", server)
	defer ch.Close()

	if err := client.Send([][]byte{[]byte("ready")}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	for i := 0; i < 10; i++ {
		if _, err := ch.Receive(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Receive error = %v, want context.Canceled", err)
		}
	}
}

func TestChannel_SocketFailureEndsChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, _ := Pipe()
	ch := NewChannel("hb", server)

	_ = server.Close()

	if _, err := ch.Receive(t.Context()); err == nil {
		t.Fatal("expected receive error after socket close")
	}
	if _, err := ch.Receive(t.Context()); !errors.Is(err, ErrClosed) {
		t.Errorf("second Receive error = %v, want ErrClosed", err)
	}
	if err := ch.Send([][]byte{[]byte("x")}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send error = %v, want ErrClosed", err)
	}
	_ = ch.Close()
}

func TestChannel_Send(t *testing.T) {
	defer goleak.VerifyNone(t)

	server, client := Pipe()
	ch := NewChannel("iopub", server)
	defer ch.Close()

	if err := ch.Send([][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	got, err := client.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if diff := cmp.Diff([][]byte{[]byte("a"), []byte("b")}, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{Router: "router", Pub: "pub", Rep: "rep", Kind(9): "kind(9)"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
