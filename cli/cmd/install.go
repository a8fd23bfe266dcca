package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/kernelspec"
	"github.com/pithecene-io/ikernel/session"
)

// InstallResponse reports an installed kernel spec.
type InstallResponse struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Argv []string `json:"argv"`
}

// UninstallResponse reports a removed kernel spec.
type UninstallResponse struct {
	Name    string `json:"name"`
	Removed bool   `json:"removed"`
}

func kernelsDirFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "user",
			Usage: "Use the per-user Jupyter data directory (default)",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Use <prefix>/share/jupyter/kernels, e.g. a virtualenv",
		},
		&cli.StringFlag{
			Name:  "kernels-dir",
			Usage: "Use this kernels directory directly",
		},
		&cli.StringFlag{
			Name:  "dialect",
			Usage: "Language dialect: go or aiken",
			Value: "go",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Kernel spec name (default ikernel-<dialect>)",
		},
	}
}

// InstallCommand returns the install command.
func InstallCommand() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Install a Jupyter kernel spec",
		Flags: append(append(ReadOnlyFlags(), kernelsDirFlags()...),
			&cli.StringSliceFlag{
				Name:  "run-arg",
				Usage: "Extra argument appended to the run command (repeatable)",
			},
		),
		Action: installAction,
	}
}

// UninstallCommand returns the uninstall command.
func UninstallCommand() *cli.Command {
	return &cli.Command{
		Name:   "uninstall",
		Usage:  "Remove an installed Jupyter kernel spec",
		Flags:  append(ReadOnlyFlags(), kernelsDirFlags()...),
		Action: uninstallAction,
	}
}

// resolveKernelsDir picks the target directory. --kernels-dir wins over
// --prefix; with neither, the user directory is used.
func resolveKernelsDir(c *cli.Context) (string, error) {
	if c.Bool("user") && c.String("prefix") != "" {
		return "", fmt.Errorf("--user and --prefix are mutually exclusive")
	}
	if dir := c.String("kernels-dir"); dir != "" {
		return dir, nil
	}
	if prefix := c.String("prefix"); prefix != "" {
		return kernelspec.PrefixDir(prefix), nil
	}
	return kernelspec.UserDir()
}

func specTarget(c *cli.Context) (string, string, *session.Dialect, error) {
	d, err := session.DialectByName(c.String("dialect"))
	if err != nil {
		return "", "", nil, err
	}
	dir, err := resolveKernelsDir(c)
	if err != nil {
		return "", "", nil, err
	}
	name := c.String("name")
	if name == "" {
		name = kernelspec.Name(d)
	}
	return dir, name, d, nil
}

func installAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for install command", 1)
	}
	dir, name, d, err := specTarget(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	exe, err := os.Executable()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to locate executable: %v", err), 1)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	spec := kernelspec.New(exe, d, c.StringSlice("run-arg")...)
	path, err := kernelspec.Install(dir, name, spec)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(InstallResponse{Name: name, Path: path, Argv: spec.Argv})
}

func uninstallAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for uninstall command", 1)
	}
	dir, name, _, err := specTarget(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	removed, err := kernelspec.Uninstall(dir, name)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(UninstallResponse{Name: name, Removed: removed})
}
