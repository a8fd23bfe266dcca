// Package main provides ikernel-repl, a terminal REPL over the same
// evaluation session the kernel uses.
//
// Usage:
//
//	ikernel-repl [--dialect go|aiken] [--engine yaegi|process --engine-path <bin>]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/cmd"
	"github.com/pithecene-io/ikernel/types"
)

func main() {
	app := &cli.App{
		Name:    "ikernel-repl",
		Usage:   "Interactive REPL for Go and Aiken",
		Version: types.Version,
		Flags:   cmd.ReplFlags(),
		Action:  cmd.ReplAction,
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}
			var exitCoder cli.ExitCoder
			if errors.As(err, &exitCoder) {
				fmt.Fprintln(os.Stderr, exitCoder.Error())
				os.Exit(exitCoder.ExitCode())
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
