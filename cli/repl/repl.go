// Package repl is a line-oriented read-eval-print loop over a session,
// the terminal counterpart of the kernel's shell channel.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/ikernel/cli/tui"
	"github.com/pithecene-io/ikernel/engine"
	"github.com/pithecene-io/ikernel/session"
)

// Prompts.
const (
	Prompt             = "λ> "
	ContinuationPrompt = ".. "
)

// Commands handled by the loop itself. :reset and :context go to the
// session.
const (
	CmdHelp    = ":help"
	CmdHelpAlt = ":h"
	CmdQuit    = ":quit"
	CmdQuitAlt = ":q"
)

// Options configures a REPL.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	NoColor bool
}

// REPL reads cells from In and prints session feedback to Out.
type REPL struct {
	session *session.Session
	opts    Options
}

// New creates a REPL over s.
func New(s *session.Session, opts Options) *REPL {
	return &REPL{session: s, opts: opts}
}

func (r *REPL) style(s lipgloss.Style, text string) string {
	if r.opts.NoColor {
		return text
	}
	return s.Render(text)
}

// Banner prints the greeting.
func (r *REPL) Banner() {
	d := r.session.Dialect()
	title, _, _ := strings.Cut(d.Banner, "\n")
	fmt.Fprintln(r.opts.Out, r.style(tui.TitleStyle, title))
	fmt.Fprintf(r.opts.Out, "Evaluate %s expressions or definitions. Use %s to exit and %s to view all commands\n\n",
		d.LanguageInfo.Name, CmdQuit, CmdHelp)
}

// Run loops until :quit, end of input, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.opts.In)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		cell, ok := r.read(scanner)
		if !ok || ctx.Err() != nil {
			fmt.Fprintln(r.opts.Out, "Goodbye!")
			return scanner.Err()
		}

		switch strings.TrimSpace(cell) {
		case "":
			continue
		case CmdQuit, CmdQuitAlt:
			fmt.Fprintln(r.opts.Out, "Goodbye!")
			return nil
		case CmdHelp, CmdHelpAlt:
			r.help()
			continue
		}

		r.eval(ctx, cell)
	}
}

// read returns one cell. A line that leaves braces or parentheses open
// continues on the next lines until they balance.
func (r *REPL) read(scanner *bufio.Scanner) (string, bool) {
	fmt.Fprint(r.opts.Out, Prompt)
	var (
		lines []string
		depth int
	)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		depth += openers(line)
		if depth <= 0 {
			return strings.Join(lines, "\n"), true
		}
		fmt.Fprint(r.opts.Out, ContinuationPrompt)
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), true
	}
	return "", false
}

// openers counts unclosed brackets on a line, ignoring string literals.
func openers(line string) int {
	n := 0
	var quote rune
	for _, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '`' || c == '\'':
			quote = c
		case c == '{' || c == '(' || c == '[':
			n++
		case c == '}' || c == ')' || c == ']':
			n--
		}
	}
	return n
}

func (r *REPL) eval(ctx context.Context, cell string) {
	res, err := r.session.Eval(ctx, cell)
	if err != nil {
		r.printError(err)
		return
	}
	if res.Stdout != "" {
		fmt.Fprint(r.opts.Out, res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			fmt.Fprintln(r.opts.Out)
		}
	}
	if text := res.String(); text != "" {
		fmt.Fprintln(r.opts.Out, r.style(tui.ValueStyle, text))
		return
	}
	fmt.Fprintln(r.opts.Out, r.style(tui.SuccessStyle, "Ok"))
}

func (r *REPL) printError(err error) {
	var diag *engine.Diagnostics
	if errors.As(err, &diag) {
		fmt.Fprintln(r.opts.Err, r.style(tui.ErrorStyle, fmt.Sprintf("Error (%s):", diag.Stage)))
		for _, line := range diag.Lines() {
			fmt.Fprintln(r.opts.Err, line)
		}
		return
	}
	fmt.Fprintln(r.opts.Err, r.style(tui.ErrorStyle, "Error: "+err.Error()))
}

func (r *REPL) help() {
	d := r.session.Dialect()
	out := r.opts.Out
	fmt.Fprintln(out, r.style(tui.TitleStyle, d.LanguageInfo.Name+" REPL help"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Special commands:")
	fmt.Fprintf(out, "  %s, %s       - Show this help\n", CmdHelp, CmdHelpAlt)
	fmt.Fprintf(out, "  %s, %s       - Exit the REPL\n", CmdQuit, CmdQuitAlt)
	fmt.Fprintf(out, "  %s          - Clear all definitions\n", session.CmdReset)
	fmt.Fprintf(out, "  %s, %s  - Show current definitions\n", session.CmdContext, session.CmdContextAlt)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	for _, ex := range examples(d) {
		fmt.Fprintf(out, "  %-30s // %s\n", ex[0], ex[1])
	}
	fmt.Fprintln(out)
}

func examples(d *session.Dialect) [][2]string {
	if d.Name == session.Aiken.Name {
		return [][2]string{
			{"True", "Boolean literal"},
			{"1 + 2", "Arithmetic"},
			{"pub const my_const = 42", "Define constant"},
			{"pub fn add(x, y) { x + y }", "Define function"},
			{"add(2, 3)", "Call function"},
		}
	}
	return [][2]string{
		{"1 + 2", "Arithmetic"},
		{"const answer = 42", "Define constant"},
		{"func add(x, y int) int { return x + y }", "Define function"},
		{"add(2, 3)", "Call function"},
	}
}
