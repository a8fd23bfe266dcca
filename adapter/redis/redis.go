// Package redis publishes kernel events over Redis pub/sub.
//
// Events go out as JSON on one channel, or on one channel per event type
// when Config.PerEvent is set (for example ikernel:events:kernel_shutdown),
// so subscribers can listen to a single kind with SUBSCRIBE instead of
// filtering.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/pithecene-io/ikernel/adapter"
)

// Defaults applied by New when the corresponding field is zero.
const (
	DefaultChannel = "ikernel:events"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// Config configures the Redis adapter.
type Config struct {
	URL      string        // redis://[:password@]host:port[/db]; required
	Channel  string        // base channel name
	PerEvent bool          // append ":<event_type>" to Channel
	Timeout  time.Duration // per PUBLISH
	Retries  int           // attempts after the first
	Backoff  time.Duration // first retry delay; doubles each retry
}

// Adapter publishes events with PUBLISH.
type Adapter struct {
	cfg    Config
	client *goredis.Client
}

// New validates cfg and connects lazily; no command is sent until Publish.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("redis adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Adapter{cfg: cfg, client: goredis.NewClient(opts)}, nil
}

// ChannelFor returns the channel event is published on.
func (a *Adapter) ChannelFor(event *adapter.Event) string {
	if a.cfg.PerEvent && event.EventType != "" {
		return a.cfg.Channel + ":" + event.EventType
	}
	return a.cfg.Channel
}

// Publish sends event, retrying until the server accepts it or the retry
// budget runs out. A closed client fails at once.
func (a *Adapter) Publish(ctx context.Context, event *adapter.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	channel := a.ChannelFor(event)

	attempts := 0
	policy := retry.WithMaxRetries(uint64(a.cfg.Retries), retry.NewExponential(a.cfg.Backoff))
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		attempts++
		pctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		err := a.client.Publish(pctx, channel, body).Err()
		if err == nil || errors.Is(err, goredis.ErrClosed) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return fmt.Errorf("redis: publish %s to %s failed after %d attempts: %w", event.EventType, channel, attempts, err)
	}
	return nil
}

// Close closes the client connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
