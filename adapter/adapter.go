// Package adapter defines the notification boundary of the kernel.
//
// Adapters publish kernel lifecycle events to downstream systems. The
// kernel owns adapter lifecycle through a Notifier; users provide
// configuration only.
package adapter

import (
	"context"
	"time"
)

// Event types.
const (
	EventExecutionCompleted = "execution_completed"
	EventKernelShutdown     = "kernel_shutdown"
)

// Event is the payload published for a kernel lifecycle event.
type Event struct {
	EventType string `json:"event_type"`
	KernelID  string `json:"kernel_id"`
	Session   string `json:"session"`
	Dialect   string `json:"dialect,omitempty"`
	Timestamp string `json:"timestamp"` // RFC 3339

	// execution_completed
	ExecutionCount int    `json:"execution_count,omitempty"`
	Status         string `json:"status,omitempty"` // ok or error
	Ename          string `json:"ename,omitempty"`
	DurationMs     int64  `json:"duration_ms,omitempty"`

	// kernel_shutdown
	Restart bool `json:"restart,omitempty"`
}

// Stamp sets Timestamp to t in UTC.
func (e *Event) Stamp(t time.Time) *Event {
	e.Timestamp = t.UTC().Format(time.RFC3339Nano)
	return e
}

// Adapter publishes events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and
	// deadlines.
	Publish(ctx context.Context, event *Event) error

	// Close releases adapter resources.
	Close() error
}
