// Package ipc implements the framing spoken by external evaluation engines:
// a JSON request on stdin, length-prefixed msgpack frames on stdout.
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack
// map whose "type" key selects the frame kind. An engine writes any
// number of stream frames and then exactly one result or diagnostic
// frame.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	prefixLen = 4
	// MaxPayload bounds a single frame body (16 MiB less the prefix).
	MaxPayload = 16<<20 - prefixLen
)

var (
	// ErrTruncated means the stream ended inside a frame.
	ErrTruncated = errors.New("ipc: truncated frame")
	// ErrOversize means a frame declared a body above MaxPayload.
	ErrOversize = errors.New("ipc: frame too large")
	// ErrUndecodable means a complete frame held a body that is not a
	// known frame. The stream stays aligned, so reading may continue.
	ErrUndecodable = errors.New("ipc: undecodable frame")
)

// Fatal reports whether err leaves the stream unreadable.
func Fatal(err error) bool {
	return err != nil && err != io.EOF && !errors.Is(err, ErrUndecodable)
}

// Frame is one decoded engine frame: *StreamFrame, *ResultFrame or
// *DiagnosticFrame.
type Frame interface {
	frameType() string
}

func (*StreamFrame) frameType() string     { return StreamType }
func (*ResultFrame) frameType() string     { return ResultType }
func (*DiagnosticFrame) frameType() string { return DiagnosticType }

// Final reports whether f ends a response.
func Final(f Frame) bool {
	return f.frameType() != StreamType
}

// Reader decodes frames from an engine's stdout.
type Reader struct {
	r      io.Reader
	prefix [prefixLen]byte
}

// NewReader returns a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next frame. It returns io.EOF only at a frame boundary.
func (rd *Reader) Next() (Frame, error) {
	switch _, err := io.ReadFull(rd.r, rd.prefix[:]); {
	case err == io.EOF:
		return nil, io.EOF
	case err != nil:
		return nil, fmt.Errorf("%w: length prefix: %v", ErrTruncated, err)
	}

	n := binary.BigEndian.Uint32(rd.prefix[:])
	if n > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversize, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return nil, fmt.Errorf("%w: body of %d bytes: %v", ErrTruncated, n, err)
	}
	return Decode(body)
}

// Decode decodes a single frame body.
func Decode(body []byte) (Frame, error) {
	var probe struct {
		Type string `msgpack:"type"`
	}
	if err := msgpack.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	var f Frame
	switch probe.Type {
	case StreamType:
		f = &StreamFrame{}
	case ResultType:
		f = &ResultFrame{}
	case DiagnosticType:
		f = &DiagnosticFrame{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrUndecodable, probe.Type)
	}
	if err := msgpack.Unmarshal(body, f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, probe.Type, err)
	}
	return f, nil
}

// Writer encodes frames; engines and test doubles use it.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write sets f's type discriminant and writes it as one frame.
func (wr *Writer) Write(f Frame) error {
	switch v := f.(type) {
	case *StreamFrame:
		v.Type = StreamType
	case *ResultFrame:
		v.Type = ResultType
	case *DiagnosticFrame:
		v.Type = DiagnosticType
	}
	body, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("ipc: encode %s: %w", f.frameType(), err)
	}
	if len(body) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrOversize, len(body))
	}
	buf := make([]byte, prefixLen, prefixLen+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	if _, err := wr.w.Write(append(buf, body...)); err != nil {
		return fmt.Errorf("ipc: write %s: %w", f.frameType(), err)
	}
	return nil
}
