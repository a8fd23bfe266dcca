package kernel

import (
	"context"
	"fmt"

	"github.com/pithecene-io/ikernel/metrics"
	"github.com/pithecene-io/ikernel/transport"
)

// Heartbeat echoes every message back unchanged.
type Heartbeat struct {
	ch      *transport.Channel
	metrics *metrics.Collector
}

// Run echoes until ctx is done or the channel fails.
func (h *Heartbeat) Run(ctx context.Context) error {
	for {
		frames, err := h.ch.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := h.ch.Send(frames); err != nil {
			return fmt.Errorf("heartbeat echo: %w", err)
		}
		h.metrics.IncHeartbeat()
	}
}
