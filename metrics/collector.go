// Package metrics provides kernel-lifetime counters.
//
// The Collector accumulates counters while the kernel runs. It is a leaf
// package with no internal dependencies; prometheus.go exports a Collector
// to a Prometheus registry.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all kernel metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Channels
	MessagesReceived map[string]int64
	DecodeErrors     int64
	AuthErrors       int64
	Heartbeats       int64
	IOPubPublished   int64

	// Execution
	ExecutionsOK     int64
	ExecutionsFailed int64
	TaskFailures     int64

	// History / notifications
	HistoryWriteSuccess int64
	HistoryWriteFailure int64
	NotifySuccess       int64
	NotifyFailure       int64

	// Dimensions (informational, set at construction)
	Engine         string
	Dialect        string
	HistoryBackend string
	KernelID       string
}

// Collector accumulates metrics for one kernel process.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	messagesReceived map[string]int64
	decodeErrors     int64
	authErrors       int64
	heartbeats       int64
	iopubPublished   int64

	executionsOK     int64
	executionsFailed int64
	taskFailures     int64

	historyWriteSuccess int64
	historyWriteFailure int64
	notifySuccess       int64
	notifyFailure       int64

	engine         string
	dialect        string
	historyBackend string
	kernelID       string
}

// NewCollector creates a Collector with dimension labels.
// historyBackend is "none" when history is disabled.
func NewCollector(engine, dialect, historyBackend, kernelID string) *Collector {
	return &Collector{
		messagesReceived: make(map[string]int64),
		engine:           engine,
		dialect:          dialect,
		historyBackend:   historyBackend,
		kernelID:         kernelID,
	}
}

func (c *Collector) add(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Channels ---

// IncMessage records a message received on the named channel.
func (c *Collector) IncMessage(channel string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesReceived[channel]++
	c.mu.Unlock()
}

// IncDecodeError records a malformed, truncated or undecodable message.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.add(&c.decodeErrors)
}

// IncAuthError records a signature mismatch.
func (c *Collector) IncAuthError() {
	if c == nil {
		return
	}
	c.add(&c.authErrors)
}

// IncHeartbeat records an echoed heartbeat.
func (c *Collector) IncHeartbeat() {
	if c == nil {
		return
	}
	c.add(&c.heartbeats)
}

// IncIOPubPublished records a message written to the IOPub socket.
func (c *Collector) IncIOPubPublished() {
	if c == nil {
		return
	}
	c.add(&c.iopubPublished)
}

// --- Execution ---

// IncExecution records a finished execute_request.
func (c *Collector) IncExecution(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.add(&c.executionsOK)
		return
	}
	c.add(&c.executionsFailed)
}

// IncTaskFailure records an evaluation worker panic.
func (c *Collector) IncTaskFailure() {
	if c == nil {
		return
	}
	c.add(&c.taskFailures)
}

// --- History / notifications ---

// IncHistoryWrite records a history append.
func (c *Collector) IncHistoryWrite(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.add(&c.historyWriteSuccess)
		return
	}
	c.add(&c.historyWriteFailure)
}

// IncNotify records a notification delivery attempt outcome.
func (c *Collector) IncNotify(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.add(&c.notifySuccess)
		return
	}
	c.add(&c.notifyFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	received := make(map[string]int64, len(c.messagesReceived))
	for k, v := range c.messagesReceived {
		received[k] = v
	}

	return Snapshot{
		MessagesReceived: received,
		DecodeErrors:     c.decodeErrors,
		AuthErrors:       c.authErrors,
		Heartbeats:       c.heartbeats,
		IOPubPublished:   c.iopubPublished,

		ExecutionsOK:     c.executionsOK,
		ExecutionsFailed: c.executionsFailed,
		TaskFailures:     c.taskFailures,

		HistoryWriteSuccess: c.historyWriteSuccess,
		HistoryWriteFailure: c.historyWriteFailure,
		NotifySuccess:       c.notifySuccess,
		NotifyFailure:       c.notifyFailure,

		Engine:         c.engine,
		Dialect:        c.dialect,
		HistoryBackend: c.historyBackend,
		KernelID:       c.kernelID,
	}
}
