package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/cli/tui"
	"github.com/pithecene-io/ikernel/config"
	"github.com/pithecene-io/ikernel/history"
	"github.com/pithecene-io/ikernel/iox"
)

// historyWarningThreshold is the entry count above which list suggests --limit.
const historyWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	return render.IsTerminal(os.Stderr.Fd())
}

// HistoryCommand returns the history command with subcommands.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Read recorded executions (list, stats)",
		Subcommands: []*cli.Command{
			historyListCommand(),
			historyStatsCommand(),
		},
	}
}

func historyReadFlags() []cli.Flag {
	flags := append(ReadOnlyFlags(), ConfigFlag)
	flags = append(flags, historyFlags()...)
	return append(flags,
		&cli.StringFlag{
			Name:  "session",
			Usage: "Only entries of this kernel session",
		},
	)
}

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List executions, oldest first",
		Flags: append(historyReadFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Keep only the most recent N entries (0 = no limit)",
			},
		),
		Action: historyListAction,
	}
}

func historyStatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize executions",
		Flags:  historyReadFlags(),
		Action: historyStatsAction,
	}
}

// openHistory opens the store named by flags and the settings file. It
// does not require history.enabled; reading is always allowed.
func openHistory(c *cli.Context) (*history.Store, error) {
	cfg, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	hc := history.Config{
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
		if err := requireString(hc.Path, "history-path", ""); err != nil {
			return nil, err
		}
	}
	return history.Open(c.Context, hc)
}

func readHistory(c *cli.Context, limit int) ([]history.Entry, error) {
	store, err := openHistory(c)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(store)

	return store.List(c.Context, history.Filter{
		Session: c.String("session"),
		Limit:   limit,
	})
}

func historyListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	entries, err := readHistory(c, limit)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if len(entries) > historyWarningThreshold && limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d entries. Consider using --limit to reduce output.\n\n", len(entries))
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewHistory, entries)
	}
	return r.Render(entries)
}

func historyStatsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	entries, err := readHistory(c, 0)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	stats := history.Summarize(entries)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewHistoryStats, &stats)
	}
	return r.Render(stats)
}
