package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/adapter"
	"github.com/pithecene-io/ikernel/adapter/redis"
	"github.com/pithecene-io/ikernel/adapter/webhook"
	"github.com/pithecene-io/ikernel/config"
	"github.com/pithecene-io/ikernel/engine"
	"github.com/pithecene-io/ikernel/history"
	"github.com/pithecene-io/ikernel/iox"
	"github.com/pithecene-io/ikernel/kernel"
	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/metrics"
	"github.com/pithecene-io/ikernel/session"
	"github.com/pithecene-io/ikernel/wire"
)

// Exit codes of the run command.
const (
	exitLoopFailure = 1
	exitConfigError = 2
	exitBindFailure = 3
	exitRestart     = 4
)

// Engine kinds.
const (
	engineYaegi   = "yaegi"
	engineProcess = "process"
)

// RunCommand returns the run command, the kernel entrypoint Jupyter
// launches through kernel.json.
func RunCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "connection-file",
			Aliases:  []string{"c"},
			Usage:    "Path to the Jupyter connection file",
			Required: true,
		},
		ConfigFlag,
		&cli.StringFlag{
			Name:  "dialect",
			Usage: "Language dialect: go or aiken",
			Value: "go",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Evaluation engine: yaegi or process",
			Value: engineYaegi,
		},
		&cli.StringFlag{
			Name:  "engine-path",
			Usage: "Toolchain binary for the process engine",
		},
		&cli.StringSliceFlag{
			Name:  "engine-arg",
			Usage: "Extra argument for the toolchain binary (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "engine-timeout",
			Usage: "Per-evaluation timeout (0 disables)",
		},
		&cli.IntFlag{
			Name:  "cache-size",
			Usage: "Compile-check cache entries (0 disables)",
			Value: 256,
		},
		&cli.StringFlag{
			Name:  "auth-policy",
			Usage: "On signature mismatch: reject or warn",
			Value: string(kernel.AuthReject),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn, error",
			Value:   "info",
			EnvVars: []string{"IKERNEL_LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:  "history",
			Usage: "Record executions to the history store",
		},
	}
	flags = append(flags, historyFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Event adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.BoolFlag{
			Name:  "adapter-per-event",
			Usage: "Publish each event type on its own Redis channel",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-event publish timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retry attempts",
			Value: 3,
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "Serve Prometheus /metrics on this address",
		},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Start a kernel for a Jupyter connection file",
		Flags:  flags,
		Action: runAction,
	}
}

// runOptions is the resolved run configuration.
type runOptions struct {
	connectionFile string
	dialect        string
	engine         string
	enginePath     string
	engineArgs     []string
	engineTimeout  time.Duration
	cacheSize      int
	authPolicy     kernel.AuthPolicy
	logLevel       string
	history        *history.Config
	adapter        *adapterChoice
	metricsListen  string
}

func resolveRunOptions(c *cli.Context, cfg *config.Settings) (*runOptions, error) {
	opts := &runOptions{
		connectionFile: c.String("connection-file"),
		dialect:        resolveString(c, "dialect", configVal(cfg, func(s *config.Settings) string { return s.Engine.Dialect })),
		engine:         resolveString(c, "engine", configVal(cfg, func(s *config.Settings) string { return s.Engine.Kind })),
		enginePath:     resolveString(c, "engine-path", configVal(cfg, func(s *config.Settings) string { return s.Engine.Path })),
		engineArgs:     resolveStringSlice(c, "engine-arg", configVal(cfg, func(s *config.Settings) []string { return s.Engine.Args })),
		engineTimeout:  resolveDuration(c, "engine-timeout", configVal(cfg, func(s *config.Settings) time.Duration { return s.Engine.Timeout.Duration })),
		cacheSize:      resolveInt(c, "cache-size", configVal(cfg, func(s *config.Settings) *int { return s.Engine.CacheSize })),
		logLevel:       resolveString(c, "log-level", configVal(cfg, func(s *config.Settings) string { return s.Log.Level })),
		metricsListen:  resolveString(c, "metrics-listen", configVal(cfg, func(s *config.Settings) string { return s.Metrics.Listen })),
	}

	if _, err := session.DialectByName(opts.dialect); err != nil {
		return nil, err
	}

	switch opts.engine {
	case engineYaegi:
		if opts.dialect != session.Go.Name {
			return nil, fmt.Errorf("engine %q only serves the %s dialect", engineYaegi, session.Go.Name)
		}
	case engineProcess:
		if err := requireString(opts.enginePath, "engine-path", "when --engine=process"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown engine: %s (must be yaegi or process)", opts.engine)
	}

	policy, err := kernel.ParseAuthPolicy(resolveString(c, "auth-policy", configVal(cfg, func(s *config.Settings) string { return s.Auth.Policy })))
	if err != nil {
		return nil, err
	}
	opts.authPolicy = policy

	if resolveBool(c, "history", configVal(cfg, func(s *config.Settings) bool { return s.History.Enabled })) {
		hc := &history.Config{
			Backend: resolveString(c, "history-backend", configVal(cfg, func(s *config.Settings) string { return s.History.Backend })),
			Path:    resolveString(c, "history-path", configVal(cfg, func(s *config.Settings) string { return s.History.Path })),
			Dataset: resolveString(c, "history-dataset", configVal(cfg, func(s *config.Settings) string { return s.History.Dataset })),
			S3: history.S3Config{
				Region:       resolveString(c, "history-s3-region", configVal(cfg, func(s *config.Settings) string { return s.History.Region })),
				Endpoint:     resolveString(c, "history-s3-endpoint", configVal(cfg, func(s *config.Settings) string { return s.History.Endpoint })),
				UsePathStyle: resolveBool(c, "history-s3-path-style", configVal(cfg, func(s *config.Settings) bool { return s.History.S3PathStyle })),
			},
		}
		if hc.Backend != history.BackendMemory {
			if err := requireString(hc.Path, "history-path", "when --history is set"); err != nil {
				return nil, err
			}
		}
		opts.history = hc
	}

	adapterType := resolveString(c, "adapter", configVal(cfg, func(s *config.Settings) string { return s.Adapter.Type }))
	if adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return nil, err
		}
		opts.adapter = ac
	}

	return opts, nil
}

// adapterChoice is the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	perEvent    bool
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter settings. Config file
// headers are merged with --adapter-header; the flag wins per key.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Settings, adapterType string) (*adapterChoice, error) {
	ac := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", configVal(cfg, func(s *config.Settings) string { return s.Adapter.URL })),
		channel:     resolveString(c, "adapter-channel", configVal(cfg, func(s *config.Settings) string { return s.Adapter.Channel })),
		timeout:     resolveDuration(c, "adapter-timeout", configVal(cfg, func(s *config.Settings) time.Duration { return s.Adapter.Timeout.Duration })),
		perEvent:    resolveBool(c, "adapter-per-event", configVal(cfg, func(s *config.Settings) bool { return s.Adapter.PerEvent })),
		retries:     c.Int("adapter-retries"),
		headers:     map[string]string{},
	}
	if !c.IsSet("adapter-retries") && cfg != nil && cfg.Adapter.Retries != nil {
		ac.retries = *cfg.Adapter.Retries
	}

	switch adapterType {
	case "webhook":
		if err := requireString(ac.url, "adapter-url", ""); err != nil {
			return nil, err
		}
	case "redis":
		if err := requireString(ac.url, "adapter-url", "when --adapter=redis"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", adapterType)
	}

	for k, v := range configVal(cfg, func(s *config.Settings) map[string]string { return s.Adapter.Headers }) {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q: must be key=value", h)
		}
		ac.headers[k] = v
	}
	return ac, nil
}

func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:      ac.url,
			Channel:  ac.channel,
			PerEvent: ac.perEvent,
			Timeout:  ac.timeout,
			Retries:  ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", ac.adapterType)
	}
}

func buildEngine(opts *runOptions) (engine.Engine, string, error) {
	var eng engine.Engine
	switch opts.engine {
	case engineProcess:
		eng = engine.NewProcess(engine.ProcessConfig{
			Path:    opts.enginePath,
			Args:    opts.engineArgs,
			Timeout: opts.engineTimeout,
		})
	default:
		eng = engine.NewYaegi()
	}
	if opts.cacheSize <= 0 {
		return eng, opts.engine, nil
	}
	cached, err := engine.NewCached(eng, opts.cacheSize)
	if err != nil {
		return nil, "", err
	}
	return cached, opts.engine, nil
}

// kernelIDFromPath derives the kernel id Jupyter encodes in connection
// file names, e.g. kernel-1234.json gives 1234.
func kernelIDFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimPrefix(name, "kernel-")
}

func runAction(c *cli.Context) error {
	cfg, err := loadSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	opts, err := resolveRunOptions(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	conn, err := config.LoadConnection(opts.connectionFile)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	signer, err := wire.NewSigner(conn.Key, conn.SignatureScheme)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	kernelID := kernelIDFromPath(opts.connectionFile)
	sessionID := kernel.NewSessionID()
	logger := log.NewLogger(log.Context{KernelID: kernelID, Session: sessionID}, level)
	defer iox.DiscardErr(logger.Sync)

	dialect, _ := session.DialectByName(opts.dialect)
	eng, engineName, err := buildEngine(opts)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	historyBackend := ""
	var store *history.Store
	if opts.history != nil {
		store, err = history.Open(ctx, *opts.history)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to open history: %v", err), exitConfigError)
		}
		defer iox.DiscardClose(store)
		historyBackend = store.Backend()
	}

	collector := metrics.NewCollector(engineName, dialect.Name, historyBackend, kernelID)
	if opts.metricsListen != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.metricsListen, collector); err != nil {
				logger.Error("metrics server failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	var notifier *adapter.Notifier
	if opts.adapter != nil {
		a, err := buildAdapter(opts.adapter)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
		}
		notifier = adapter.NewNotifier(a, logger.Named("adapter"), collector)
		defer func() {
			if err := notifier.Close(); err != nil {
				logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	sockets, err := kernel.BindSockets(ctx, conn)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to bind sockets: %v", err), exitBindFailure)
	}
	sugar := logger.Named("cli").Sugar()
	sugar.Infof("listening: shell=%s control=%s iopub=%s hb=%s",
		conn.ShellAddress(), conn.ControlAddress(), conn.IOPubAddress(), conn.HeartbeatAddress())
	if opts.metricsListen != "" {
		sugar.Infof("serving metrics on http://%s/metrics", opts.metricsListen)
	}
	if conn.Key == "" {
		sugar.Warnf("connection file has an empty key: messages are not signed")
	} else if opts.authPolicy == kernel.AuthWarn {
		sugar.Warnf("auth policy %q: messages with bad signatures are processed", "warn")
	}

	kopts := kernel.Options{
		SessionID:   sessionID,
		KernelID:    kernelID,
		Signer:      signer,
		Auth:        opts.authPolicy,
		Session:     session.New(dialect, eng),
		EvalTimeout: opts.engineTimeout,
		Notifier:    notifier,
		Metrics:     collector,
		Logger:      logger,
	}
	if store != nil {
		kopts.History = store
	}
	k := kernel.New(sockets, kopts)

	if err := k.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "kernel failed: %v\n", err)
		return cli.Exit("", exitLoopFailure)
	}
	if k.RestartRequested() {
		return cli.Exit("", exitRestart)
	}
	return nil
}
