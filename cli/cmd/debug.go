package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ikernel/cli/render"
	"github.com/pithecene-io/ikernel/config"
	"github.com/pithecene-io/ikernel/session"
)

// DebugCommand returns the debug command with subcommands. Debug commands
// are read-only diagnostics and never bind sockets.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (connection, classify)",
		Subcommands: []*cli.Command{
			debugConnectionCommand(),
			debugClassifyCommand(),
		},
	}
}

// ConnectionView is a connection file with the key withheld.
type ConnectionView struct {
	Transport       string `json:"transport"`
	SignatureScheme string `json:"signature_scheme"`
	Signed          bool   `json:"signed"`
	Shell           string `json:"shell"`
	Control         string `json:"control"`
	Stdin           string `json:"stdin"`
	Heartbeat       string `json:"hb"`
	IOPub           string `json:"iopub"`
}

func newConnectionView(conn *config.Connection) ConnectionView {
	return ConnectionView{
		Transport:       conn.Transport,
		SignatureScheme: conn.SignatureScheme,
		Signed:          conn.Key != "",
		Shell:           conn.ShellAddress(),
		Control:         conn.ControlAddress(),
		Stdin:           conn.StdinAddress(),
		Heartbeat:       conn.HeartbeatAddress(),
		IOPub:           conn.IOPubAddress(),
	}
}

func debugConnectionCommand() *cli.Command {
	return &cli.Command{
		Name:      "connection",
		Usage:     "Validate a connection file and show its endpoints",
		ArgsUsage: "<connection-file>",
		Flags:     ReadOnlyFlags(),
		Action:    debugConnectionAction,
	}
}

func debugConnectionAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("connection file required", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}

	conn, err := config.LoadConnection(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(newConnectionView(conn))
}

// ClassifyResponse reports how a cell would be evaluated.
type ClassifyResponse struct {
	Dialect      string            `json:"dialect"`
	Kind         string            `json:"kind"`
	Declarations []DeclarationView `json:"declarations"`
}

// DeclarationView is one declared name.
type DeclarationView struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func debugClassifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Show whether a cell is an expression or definitions",
		ArgsUsage: "<code>",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "dialect",
				Usage: "Language dialect: go or aiken",
				Value: "go",
			},
		),
		Action: debugClassifyAction,
	}
}

func debugClassifyAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("code required", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", 1)
	}
	d, err := session.DialectByName(c.String("dialect"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	code := c.Args().First()
	resp := ClassifyResponse{
		Dialect:      d.Name,
		Kind:         session.Classify(d, code).String(),
		Declarations: []DeclarationView{},
	}
	for _, decl := range session.Outline(d, code) {
		resp.Declarations = append(resp.Declarations, DeclarationView{Name: decl.Name, Kind: decl.Kind.String()})
	}
	return r.Render(resp)
}
