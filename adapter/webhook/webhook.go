// Package webhook delivers kernel events to an HTTP endpoint.
//
// Each event is one JSON POST. Delivery headers identify the event type,
// the kernel, and a delivery key that stays stable across retries so the
// receiver can drop duplicates.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pithecene-io/ikernel/adapter"
	"github.com/pithecene-io/ikernel/iox"
)

// Defaults applied by New when the corresponding field is zero.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// Delivery headers set on every request.
const (
	HeaderEvent    = "X-Ikernel-Event"
	HeaderKernel   = "X-Ikernel-Kernel"
	HeaderDelivery = "X-Ikernel-Delivery"
)

// Config configures the webhook adapter.
type Config struct {
	URL     string            // endpoint; required
	Headers map[string]string // extra headers, applied after the delivery headers
	Timeout time.Duration     // per attempt
	Retries int               // attempts after the first
	Backoff time.Duration     // first retry delay; doubles each retry
}

// Adapter posts events to Config.URL.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New validates cfg and returns a ready adapter.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Permanent reports whether retrying cannot change the outcome.
// Client errors are permanent except 408 and 429.
func (e *StatusError) Permanent() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.Code >= 400 && e.Code < 500
}

// Publish posts event, retrying transport failures and retriable statuses.
func (a *Adapter) Publish(ctx context.Context, event *adapter.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}
	d := delivery{
		id:    uuid.NewString(),
		event: event,
		body:  body,
	}

	attempts := 0
	policy := retry.WithMaxRetries(uint64(a.cfg.Retries), retry.NewExponential(a.cfg.Backoff))
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		attempts++
		err := a.post(ctx, d)
		var se *StatusError
		if err == nil || (errors.As(err, &se) && se.Permanent()) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return fmt.Errorf("webhook: %s failed after %d attempts: %w", event.EventType, attempts, err)
	}
	return nil
}

type delivery struct {
	id    string
	event *adapter.Event
	body  []byte
}

func (a *Adapter) post(ctx context.Context, d delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(d.body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, d.event.EventType)
	req.Header.Set(HeaderKernel, d.event.KernelID)
	req.Header.Set(HeaderDelivery, d.id)
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body) // keep-alive reuse

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
