// Package main provides the ikernel CLI entrypoint.
//
// Usage:
//
//	ikernel <command> [subcommand] [options]
//
// Exit codes for `run`:
//   - 0: clean shutdown
//   - 1: a channel loop failed
//   - 2: configuration or connection file error
//   - 3: a socket could not be bound
//   - 4: shutdown with restart requested
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/cmd"
	"github.com/pithecene-io/ikernel/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "ikernel",
		Usage:          "Jupyter kernel for Go and Aiken",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.InstallCommand(),
			cmd.UninstallCommand(),
			cmd.InfoCommand(),
			cmd.HistoryCommand(),
			cmd.DebugCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// Errors that are not cli.ExitCoder end up here.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus maps err to a process exit code and the message to print.
// cli.Exit("", N) prints nothing.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
