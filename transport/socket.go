// Package transport binds the kernel's ZeroMQ sockets and exposes them as
// cancellable channels of multi-part messages.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// ErrClosed is returned once a socket or channel has stopped.
var ErrClosed = errors.New("transport: closed")

// Kind selects the ZeroMQ socket pattern.
type Kind int

const (
	// Router serves request/reply channels (shell, control, stdin).
	// Received messages are prefixed with the peer identity frame and
	// sent messages are routed on their first frame.
	Router Kind = iota
	// Pub broadcasts to every subscriber (IOPub).
	Pub
	// Rep answers each request with exactly one reply (heartbeat).
	Rep
)

// String returns the ZeroMQ pattern name.
func (k Kind) String() string {
	switch k {
	case Router:
		return "router"
	case Pub:
		return "pub"
	case Rep:
		return "rep"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Socket is a multi-part message socket.
type Socket interface {
	// Recv blocks until a message arrives or the socket is closed.
	Recv() ([][]byte, error)
	// Send writes a multi-part message.
	Send(frames [][]byte) error
	// Close releases the socket and unblocks Recv.
	Close() error
}

// Bind creates a socket of the given kind listening on endpoint
// (e.g. "tcp://127.0.0.1:5555"). The socket lives until Close or until
// ctx is done.
func Bind(ctx context.Context, kind Kind, endpoint string) (Socket, error) {
	var s zmq4.Socket
	switch kind {
	case Router:
		s = zmq4.NewRouter(ctx)
	case Pub:
		s = zmq4.NewPub(ctx)
	case Rep:
		s = zmq4.NewRep(ctx)
	default:
		return nil, fmt.Errorf("unknown socket kind %v", kind)
	}
	if err := s.Listen(endpoint); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("bind %s socket on %s: %w", kind, endpoint, err)
	}
	return &zmqSocket{sock: s}, nil
}

// zmqSocket adapts a zmq4 socket to Socket.
type zmqSocket struct {
	sock zmq4.Socket
}

func (z *zmqSocket) Recv() ([][]byte, error) {
	msg, err := z.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

func (z *zmqSocket) Send(frames [][]byte) error {
	return z.sock.SendMulti(zmq4.NewMsgFrom(frames...))
}

func (z *zmqSocket) Close() error {
	return z.sock.Close()
}
