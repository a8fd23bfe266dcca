package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/cli/tui"
	"github.com/pithecene-io/ikernel/kernel"
	"github.com/pithecene-io/ikernel/session"
)

// InfoCommand returns the info command. It prints the kernel_info_reply
// the kernel would send for a dialect, without starting a kernel.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show kernel_info for a dialect",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "dialect",
				Usage: "Language dialect: go or aiken",
				Value: "go",
			},
		),
		Action: infoAction,
	}
}

func infoAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	d, err := session.DialectByName(c.String("dialect"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	info := kernel.KernelInfo(d)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectKernel, &info)
	}
	return r.Render(info)
}
