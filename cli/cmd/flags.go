// Package cmd provides the commands of the ikernel binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables the interactive view where one exists.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (history, info only)",
	}

	// ConfigFlag points at an ikernel.yaml settings file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to ikernel.yaml settings file",
		EnvVars: []string{"IKERNEL_CONFIG"},
	}
)

// ReadOnlyFlags returns the flags shared by all read-only commands. --tui
// is always registered so unsupported commands can reject it explicitly.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// historyFlags selects the history store, for run and history.
func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "history-backend",
			Usage: "History backend: fs, s3 or memory",
		},
		&cli.StringFlag{
			Name:  "history-path",
			Usage: "History location (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "history-dataset",
			Usage: "History dataset name",
		},
		&cli.StringFlag{
			Name:  "history-s3-region",
			Usage: "AWS region for the s3 backend (default chain if empty)",
		},
		&cli.StringFlag{
			Name:  "history-s3-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "history-s3-path-style",
			Usage: "Use path-style S3 addressing",
		},
	}
}
