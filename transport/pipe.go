package transport

import "sync"

// pipeEnd is one side of an in-memory socket pair.
type pipeEnd struct {
	in   chan [][]byte
	peer *pipeEnd

	done      chan struct{}
	closeOnce sync.Once
}

// Pipe returns two connected in-memory sockets. Frames sent on one are
// received on the other in order. There is no routing: a peer plays the
// client and must add or expect identity frames itself.
func Pipe() (Socket, Socket) {
	a := &pipeEnd{in: make(chan [][]byte, 64), done: make(chan struct{})}
	b := &pipeEnd{in: make(chan [][]byte, 64), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Recv() ([][]byte, error) {
	select {
	case <-p.done:
		return nil, ErrClosed
	case frames := <-p.in:
		return frames, nil
	}
}

func (p *pipeEnd) Send(frames [][]byte) error {
	cp := make([][]byte, len(frames))
	for i, f := range frames {
		cp[i] = append([]byte(nil), f...)
	}
	select {
	case <-p.done:
		return ErrClosed
	case <-p.peer.done:
		return ErrClosed
	case p.peer.in <- cp:
		return nil
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
