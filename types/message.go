// Package types defines the Jupyter message model shared by the codec,
// the channel loops and the CLI.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"time"

	"github.com/google/uuid"
)

// MsgType is the msg_type tag carried in every message header.
type MsgType string

// Message types consumed and produced by the kernel.
const (
	MsgKernelInfoRequest MsgType = "kernel_info_request"
	MsgKernelInfoReply   MsgType = "kernel_info_reply"
	MsgExecuteRequest    MsgType = "execute_request"
	MsgExecuteReply      MsgType = "execute_reply"
	MsgShutdownRequest   MsgType = "shutdown_request"
	MsgShutdownReply     MsgType = "shutdown_reply"

	// IOPub events.
	MsgStatus        MsgType = "status"
	MsgExecuteInput  MsgType = "execute_input"
	MsgExecuteResult MsgType = "execute_result"
	MsgStream        MsgType = "stream"
	MsgError         MsgType = "error"
)

// KernelUsername is the username stamped into kernel-originated headers.
const KernelUsername = "kernel"

// Header is a Jupyter message header.
type Header struct {
	// MsgID is unique per message.
	MsgID string `json:"msg_id"`
	// Session is stable for the lifetime of the kernel.
	Session string `json:"session"`
	// Username identifies the originator.
	Username string `json:"username"`
	// Date is an ISO 8601 timestamp.
	Date string `json:"date"`
	// MsgType is the message type tag.
	MsgType MsgType `json:"msg_type"`
	// Version is the protocol version.
	Version string `json:"version"`
}

// NewHeader creates a fresh header with a random message id.
func NewHeader(session string, msgType MsgType) Header {
	return Header{
		MsgID:    uuid.New().String(),
		Session:  session,
		Username: KernelUsername,
		Date:     time.Now().UTC().Format(time.RFC3339Nano),
		MsgType:  msgType,
		Version:  ProtocolVersion,
	}
}

// Message is a decoded Jupyter envelope with a typed content payload.
type Message[T any] struct {
	Header Header
	// ParentHeader is nil only for the first message of a causal chain.
	ParentHeader *Header
	Metadata     map[string]any
	Content      T
}

// NewReply builds a message caused by parent and stamped with the kernel's
// session id. The parent header is copied by value.
func NewReply[T any](session string, parent Header, msgType MsgType, content T) *Message[T] {
	p := parent
	return &Message[T]{
		Header:       NewHeader(session, msgType),
		ParentHeader: &p,
		Metadata:     map[string]any{},
		Content:      content,
	}
}
