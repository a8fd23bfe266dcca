package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ikernel"

// Exporter exposes a Collector's snapshot as Prometheus const metrics.
type Exporter struct {
	c *Collector

	messages       *prometheus.Desc
	decodeErrors   *prometheus.Desc
	authErrors     *prometheus.Desc
	heartbeats     *prometheus.Desc
	iopubPublished *prometheus.Desc
	executions     *prometheus.Desc
	taskFailures   *prometheus.Desc
	historyWrites  *prometheus.Desc
	notifications  *prometheus.Desc
	info           *prometheus.Desc
}

// NewExporter wraps c for registration with a Prometheus registry.
func NewExporter(c *Collector) *Exporter {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Exporter{
		c:              c,
		messages:       desc("messages_received_total", "Messages received per channel.", "channel"),
		decodeErrors:   desc("decode_errors_total", "Malformed or undecodable messages."),
		authErrors:     desc("auth_errors_total", "Messages with a mismatched signature."),
		heartbeats:     desc("heartbeats_total", "Heartbeat messages echoed."),
		iopubPublished: desc("iopub_published_total", "Messages written to the IOPub socket."),
		executions:     desc("executions_total", "Finished execute requests by status.", "status"),
		taskFailures:   desc("task_failures_total", "Evaluation worker panics."),
		historyWrites:  desc("history_writes_total", "History appends by outcome.", "outcome"),
		notifications:  desc("notifications_total", "Notification deliveries by outcome.", "outcome"),
		info: desc("info", "Kernel configuration.",
			"engine", "dialect", "history_backend", "kernel_id"),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		e.messages, e.decodeErrors, e.authErrors, e.heartbeats, e.iopubPublished,
		e.executions, e.taskFailures, e.historyWrites, e.notifications, e.info,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.c.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	for channel, n := range s.MessagesReceived {
		counter(e.messages, n, channel)
	}
	counter(e.decodeErrors, s.DecodeErrors)
	counter(e.authErrors, s.AuthErrors)
	counter(e.heartbeats, s.Heartbeats)
	counter(e.iopubPublished, s.IOPubPublished)
	counter(e.executions, s.ExecutionsOK, "ok")
	counter(e.executions, s.ExecutionsFailed, "error")
	counter(e.taskFailures, s.TaskFailures)
	counter(e.historyWrites, s.HistoryWriteSuccess, "success")
	counter(e.historyWrites, s.HistoryWriteFailure, "failure")
	counter(e.notifications, s.NotifySuccess, "success")
	counter(e.notifications, s.NotifyFailure, "failure")
	ch <- prometheus.MustNewConstMetric(e.info, prometheus.GaugeValue, 1,
		s.Engine, s.Dialect, s.HistoryBackend, s.KernelID)
}

var _ prometheus.Collector = (*Exporter)(nil)

// Handler returns an HTTP handler serving c in the Prometheus text format.
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewExporter(c))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, c *Collector) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(c))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
