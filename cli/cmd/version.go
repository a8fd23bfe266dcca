package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/session"
	"github.com/pithecene-io/ikernel/types"
)

// VersionResponse describes the build.
type VersionResponse struct {
	Version         string   `json:"version" yaml:"version"`
	ProtocolVersion string   `json:"protocol_version" yaml:"protocol_version"`
	Commit          string   `json:"commit" yaml:"commit"`
	GoVersion       string   `json:"go_version" yaml:"go_version"`
	Dialects        []string `json:"dialects" yaml:"dialects"`
	Engines         []string `json:"engines" yaml:"engines"`
}

func newVersionResponse(commit string) VersionResponse {
	return VersionResponse{
		Version:         types.Version,
		ProtocolVersion: types.ProtocolVersion,
		Commit:          commit,
		GoVersion:       runtime.Version(),
		Dialects:        []string{session.Go.Name, session.Aiken.Name},
		Engines:         []string{engineYaegi, engineProcess},
	}
}

// VersionCommand prints version, protocol and build details.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version, protocol and supported dialects",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version command", 1)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(newVersionResponse(commit))
		},
	}
}
