package kernel

import (
	"context"
	"sync/atomic"

	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/types"
	"github.com/pithecene-io/ikernel/wire"
)

// Control serves the control channel. A shutdown_request is answered and
// then ends the whole kernel through shutdown, even when its content
// cannot be decoded.
type Control struct {
	ep  *endpoint
	pub *publisher
	// shutdown cancels the kernel's root context.
	shutdown context.CancelFunc
	restart  *atomic.Bool
	logger   *log.Logger
}

// Run handles requests until ctx is done, the channel fails, or a
// shutdown has been answered.
func (c *Control) Run(ctx context.Context) error {
	for {
		in, err := c.ep.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if in.header.MsgType != types.MsgShutdownRequest {
			c.logger.Debug("ignoring control message", map[string]any{"msg_type": string(in.header.MsgType)})
			continue
		}
		// Undecodable content still shuts down, without a restart.
		var restart bool
		if msg, err := wire.DecodeFrames[types.ShutdownRequest](in.frames); err != nil {
			c.ep.metrics.IncDecodeError()
			c.logger.Warn("undecodable shutdown_request, shutting down", map[string]any{"error": err.Error()})
		} else {
			restart = msg.Content.Restart
		}
		c.pub.status(in.header, types.StateBusy)
		if err := reply(c.ep, c.pub.session, in, types.MsgShutdownReply, types.ShutdownReply{Restart: restart}); err != nil {
			return err
		}
		c.logger.Info("shutdown requested", map[string]any{"restart": restart})
		c.restart.Store(restart)
		c.shutdown()
		return nil
	}
}
