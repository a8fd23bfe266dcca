package transport

import (
	"context"
	"fmt"
	"sync"
)

type received struct {
	frames [][]byte
	err    error
}

// Channel owns a socket and makes its receive side cancellable.
// A reader goroutine pulls messages from the socket into an inbox;
// Receive waits on the inbox and a context.
type Channel struct {
	name string
	sock Socket

	inbox chan received
	done  chan struct{}

	sendMu    sync.Mutex
	closeOnce sync.Once
	readerWG  sync.WaitGroup
}

// NewChannel starts reading from sock.
func NewChannel(name string, sock Socket) *Channel {
	c := &Channel{
		name:  name,
		sock:  sock,
		inbox: make(chan received),
		done:  make(chan struct{}),
	}
	c.readerWG.Add(1)
	go c.read()
	return c
}

// Name returns the channel name (shell, control, ...).
func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) read() {
	defer c.readerWG.Done()
	for {
		frames, err := c.sock.Recv()
		select {
		case c.inbox <- received{frames: frames, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Receive waits for the next message. If ctx is done, Receive returns
// ctx.Err() even when a message is also ready. A socket failure is
// returned wrapped; after it every call returns ErrClosed.
func (c *Channel) Receive(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case r := <-c.inbox:
		if r.err != nil {
			c.Close()
			return nil, fmt.Errorf("%s receive: %w", c.name, r.err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return r.frames, nil
	}
}

// Send writes frames to the socket. Safe for concurrent use.
func (c *Channel) Send(frames [][]byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.sock.Send(frames); err != nil {
		return fmt.Errorf("%s send: %w", c.name, err)
	}
	return nil
}

// Close stops the reader and closes the socket. Safe to call repeatedly.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.sock.Close()
		c.readerWG.Wait()
	})
	return err
}
