package kernel

import (
	"context"
	"fmt"

	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/metrics"
	"github.com/pithecene-io/ikernel/transport"
	"github.com/pithecene-io/ikernel/types"
	"github.com/pithecene-io/ikernel/wire"
)

// AuthPolicy decides what happens to a message whose signature does not
// verify.
type AuthPolicy string

const (
	// AuthReject drops the message.
	AuthReject AuthPolicy = "reject"
	// AuthWarn logs and processes the message.
	AuthWarn AuthPolicy = "warn"
)

// ParseAuthPolicy parses a policy name. Empty means AuthReject.
func ParseAuthPolicy(s string) (AuthPolicy, error) {
	switch AuthPolicy(s) {
	case "", AuthReject:
		return AuthReject, nil
	case AuthWarn:
		return AuthWarn, nil
	default:
		return "", fmt.Errorf("unknown auth policy %q (want reject or warn)", s)
	}
}

// endpoint is the receive side shared by the shell and control loops:
// it parses, authenticates and peeks at every incoming message.
type endpoint struct {
	ch      *transport.Channel
	signer  *wire.Signer
	policy  AuthPolicy
	logger  *log.Logger
	metrics *metrics.Collector
}

// inbound is an authenticated message whose content is not yet decoded.
type inbound struct {
	frames *wire.Frames
	header types.Header
}

// next returns the next acceptable message. Malformed, undecodable and
// rejected messages are logged and skipped. The returned error is the
// channel's: cancellation or a transport failure.
func (e *endpoint) next(ctx context.Context) (*inbound, error) {
	for {
		raw, err := e.ch.Receive(ctx)
		if err != nil {
			return nil, err
		}
		e.metrics.IncMessage(e.ch.Name())

		f, err := wire.Parse(raw)
		if err != nil {
			e.metrics.IncDecodeError()
			e.logger.Warn("dropping malformed message", map[string]any{
				"frames": len(raw),
				"error":  err.Error(),
			})
			continue
		}

		if err := e.signer.Verify(f); err != nil {
			e.metrics.IncAuthError()
			if e.policy != AuthWarn {
				e.logger.Warn("dropping message with invalid signature", map[string]any{"error": err.Error()})
				continue
			}
			e.logger.Warn("processing message with invalid signature", map[string]any{"error": err.Error()})
		}

		h, err := wire.PeekHeader(f)
		if err != nil {
			e.metrics.IncDecodeError()
			e.logger.Warn("dropping message with undecodable header", map[string]any{"error": err.Error()})
			continue
		}
		return &inbound{frames: f, header: h}, nil
	}
}

// reply encodes content as a reply to in and sends it on the endpoint's
// channel, steered by the request's identity prefix.
func reply[T any](e *endpoint, session string, in *inbound, msgType types.MsgType, content T) error {
	msg := types.NewReply(session, in.header, msgType, content)
	frames, err := wire.Encode(msg, in.frames.Prefix(), e.signer)
	if err != nil {
		return err
	}
	if err := e.ch.Send(frames); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// decodeContent decodes the content of in, logging failures.
func decodeContent[T any](e *endpoint, in *inbound) (*types.Message[T], bool) {
	msg, err := wire.DecodeFrames[T](in.frames)
	if err != nil {
		e.metrics.IncDecodeError()
		e.logger.Warn("dropping message with undecodable content", map[string]any{
			"msg_type": string(in.header.MsgType),
			"error":    err.Error(),
		})
		return nil, false
	}
	return msg, true
}
