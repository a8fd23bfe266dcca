package kernel

import (
	"github.com/pithecene-io/ikernel/iopub"
	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/types"
	"github.com/pithecene-io/ikernel/wire"
)

// publisher encodes IOPub events for one producing loop.
type publisher struct {
	session  string
	signer   *wire.Signer
	producer *iopub.Producer
	logger   *log.Logger
}

// emit publishes an event caused by parent. Encoding failures are logged;
// IOPub delivery is best effort.
func emit[T any](p *publisher, parent types.Header, msgType types.MsgType, content T) {
	msg := types.NewReply(p.session, parent, msgType, content)
	frames, err := wire.Encode(msg, wire.PubPrefix(), p.signer)
	if err != nil {
		p.logger.Error("failed to encode iopub event", map[string]any{
			"msg_type": string(msgType),
			"error":    err.Error(),
		})
		return
	}
	if !p.producer.Publish(frames) {
		p.logger.Debug("iopub producer closed, event dropped", map[string]any{"msg_type": string(msgType)})
	}
}

func (p *publisher) status(parent types.Header, state types.ExecutionState) {
	emit(p, parent, types.MsgStatus, types.StatusContent{ExecutionState: state})
}

// starting announces the kernel. It has no parent.
func (p *publisher) starting() {
	msg := &types.Message[types.StatusContent]{
		Header:   types.NewHeader(p.session, types.MsgStatus),
		Metadata: map[string]any{},
		Content:  types.StatusContent{ExecutionState: types.StateStarting},
	}
	frames, err := wire.Encode(msg, wire.PubPrefix(), p.signer)
	if err != nil {
		p.logger.Error("failed to encode iopub event", map[string]any{"error": err.Error()})
		return
	}
	p.producer.Publish(frames)
}
