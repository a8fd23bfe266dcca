// Package kernel runs the Jupyter channel loops: shell, control,
// heartbeat and IOPub, over sockets bound from a connection file.
package kernel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/ikernel/adapter"
	"github.com/pithecene-io/ikernel/config"
	"github.com/pithecene-io/ikernel/iopub"
	"github.com/pithecene-io/ikernel/iox"
	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/metrics"
	"github.com/pithecene-io/ikernel/session"
	"github.com/pithecene-io/ikernel/transport"
	"github.com/pithecene-io/ikernel/wire"
)

// Sockets are the five kernel sockets.
type Sockets struct {
	Shell     transport.Socket
	Control   transport.Socket
	Stdin     transport.Socket
	IOPub     transport.Socket
	Heartbeat transport.Socket
}

// BindSockets binds every socket named by conn. On failure the sockets
// bound so far are closed.
func BindSockets(ctx context.Context, conn *config.Connection) (*Sockets, error) {
	s := &Sockets{}
	binds := []struct {
		dst      *transport.Socket
		kind     transport.Kind
		endpoint string
	}{
		{&s.Shell, transport.Router, conn.ShellAddress()},
		{&s.Control, transport.Router, conn.ControlAddress()},
		{&s.Stdin, transport.Router, conn.StdinAddress()},
		{&s.IOPub, transport.Pub, conn.IOPubAddress()},
		{&s.Heartbeat, transport.Rep, conn.HeartbeatAddress()},
	}
	for _, b := range binds {
		sock, err := transport.Bind(ctx, b.kind, b.endpoint)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		*b.dst = sock
	}
	return s, nil
}

// Close closes every bound socket.
func (s *Sockets) Close() error {
	return iox.CloseAll(s.Shell, s.Control, s.Stdin, s.IOPub, s.Heartbeat)
}

// Options configures a Kernel.
type Options struct {
	// SessionID stamps every message the kernel sends. Generated if empty.
	SessionID string
	// KernelID identifies the kernel in logs, history and events.
	KernelID string

	Signer *wire.Signer
	Auth   AuthPolicy

	Session     *session.Session
	EvalTimeout time.Duration

	History  HistoryWriter
	Notifier *adapter.Notifier
	Metrics  *metrics.Collector
	Logger   *log.Logger
}

// Kernel wires the loops together and owns their sockets.
type Kernel struct {
	opts    Options
	sockets *Sockets
	counter Counter
	restart atomic.Bool
}

// New creates a kernel over bound sockets.
func New(sockets *Sockets, opts Options) *Kernel {
	if opts.SessionID == "" {
		opts.SessionID = NewSessionID()
	}
	if opts.Auth == "" {
		opts.Auth = AuthReject
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Kernel{opts: opts, sockets: sockets}
}

// NewSessionID returns a fresh session id for outgoing headers.
func NewSessionID() string {
	return uuid.New().String()
}

// SessionID returns the kernel's session id.
func (k *Kernel) SessionID() string {
	return k.opts.SessionID
}

// RestartRequested reports whether the shutdown that ended Run asked for
// a restart.
func (k *Kernel) RestartRequested() bool {
	return k.restart.Load()
}

// ExecutionCount returns the number of execute requests accepted so far.
func (k *Kernel) ExecutionCount() int {
	return k.counter.Current()
}

// Run serves all channels until a shutdown request is answered or ctx is
// done. A failing loop is logged and does not stop the others; the
// returned error aggregates every loop failure. Sockets are closed on
// return.
func (k *Kernel) Run(ctx context.Context) error {
	o := k.opts
	logger := o.Logger

	root, shutdown := context.WithCancel(ctx)
	defer shutdown()

	shellCh := transport.NewChannel("shell", k.sockets.Shell)
	controlCh := transport.NewChannel("control", k.sockets.Control)
	hbCh := transport.NewChannel("heartbeat", k.sockets.Heartbeat)

	bc := iopub.New(o.Metrics)
	shellProducer := bc.Producer()
	controlProducer := bc.Producer()

	eval := NewEvaluator(o.Session, o.EvalTimeout)

	shell := &Shell{
		ep:       &endpoint{ch: shellCh, signer: o.Signer, policy: o.Auth, logger: logger.Named("shell"), metrics: o.Metrics},
		pub:      &publisher{session: o.SessionID, signer: o.Signer, producer: shellProducer, logger: logger.Named("shell")},
		eval:     eval,
		counter:  &k.counter,
		dialect:  o.Session.Dialect(),
		kernelID: o.KernelID,
		history:  o.History,
		notifier: o.Notifier,
		metrics:  o.Metrics,
		logger:   logger.Named("shell"),
	}
	control := &Control{
		ep:       &endpoint{ch: controlCh, signer: o.Signer, policy: o.Auth, logger: logger.Named("control"), metrics: o.Metrics},
		pub:      &publisher{session: o.SessionID, signer: o.Signer, producer: controlProducer, logger: logger.Named("control")},
		shutdown: shutdown,
		restart:  &k.restart,
		logger:   logger.Named("control"),
	}
	heartbeat := &Heartbeat{ch: hbCh, metrics: o.Metrics}
	shell.pub.starting()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		result *multierror.Error
	)
	spawn := func(name string, run func(context.Context) error, after func()) {
		loopCtx, cancel := context.WithCancel(root)
		g.Go(func() (err error) {
			defer cancel()
			defer after()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
					logger.Error("loop panicked", map[string]any{
						"loop":  name,
						"panic": fmt.Sprint(r),
						"stack": string(debug.Stack()),
					})
				}
				if err != nil {
					logger.Error("loop failed", map[string]any{"loop": name, "error": err.Error()})
					mu.Lock()
					result = multierror.Append(result, fmt.Errorf("%s loop: %w", name, err))
					mu.Unlock()
				}
				// The group never cancels siblings; failures are collected.
				err = nil
			}()
			return run(loopCtx)
		})
	}

	logger.Info("kernel started", map[string]any{"dialect": o.Session.Dialect().Name})

	spawn("shell", shell.Run, shellProducer.Close)
	spawn("control", control.Run, controlProducer.Close)
	spawn("heartbeat", heartbeat.Run, func() {})
	spawn("iopub", func(ctx context.Context) error { return bc.Run(ctx, k.sockets.IOPub) }, func() {})

	_ = g.Wait()

	eval.Close()
	if err := iox.CloseAll(shellCh, controlCh, hbCh, k.sockets.Stdin, k.sockets.IOPub); err != nil {
		logger.Debug("socket close failed", map[string]any{"error": err.Error()})
	}

	restart := k.restart.Load()
	o.Notifier.Notify((&adapter.Event{
		EventType: adapter.EventKernelShutdown,
		KernelID:  o.KernelID,
		Session:   o.SessionID,
		Dialect:   o.Session.Dialect().Name,
		Restart:   restart,
	}).Stamp(time.Now()))
	logger.Info("kernel stopped", map[string]any{
		"restart":         restart,
		"execution_count": k.counter.Current(),
	})

	return result.ErrorOrNil()
}
