package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/cli/repl"
	"github.com/pithecene-io/ikernel/session"
)

// ReplFlags are the flags of the interactive REPL.
func ReplFlags() []cli.Flag {
	return []cli.Flag{
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
		NoColorFlag,
	}
}

// ReplAction runs the REPL on stdin and stdout.
func ReplAction(c *cli.Context) error {
	opts := &runOptions{
		dialect:    c.String("dialect"),
		engine:     c.String("engine"),
		enginePath: c.String("engine-path"),
		engineArgs: c.StringSlice("engine-arg"),
	}
	d, err := session.DialectByName(opts.dialect)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if opts.engine == engineProcess {
		if err := requireString(opts.enginePath, "engine-path", "when --engine=process"); err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
	}
	eng, _, err := buildEngine(opts)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	r := repl.New(session.New(d, eng), repl.Options{
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		NoColor: c.Bool("no-color") || !render.IsTerminal(os.Stdout.Fd()),
	})
	r.Banner()
	return r.Run(ctx)
}
