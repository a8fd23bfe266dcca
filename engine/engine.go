// Package engine defines the contract between the evaluation session and
// the language toolchain that compiles and runs user code.
package engine

import (
	"context"
	"errors"
	"strings"
)

// Program is a complete compilation unit plus the zero-argument function
// whose value is the result of the evaluation.
type Program struct {
	Source string
	Entry  string
}

// Value is the result of running a program.
type Value struct {
	// Display is the human-readable rendering of the value.
	Display string
	// Type is the rendered type of the value.
	Type string
	// Stdout is whatever the program printed while running.
	Stdout string
}

// Engine compiles and runs programs. Implementations hold no state between
// calls: every call sees only the source it is given.
//
// Calls are not interruptible by the kernel's shutdown; ctx is honoured
// only where the implementation can (process timeouts).
type Engine interface {
	CompileAndRun(ctx context.Context, p Program) (Value, error)
	CompileOnly(ctx context.Context, source string) error
}

// Stage tells whether a diagnostic came from compiling or running.
type Stage string

const (
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
)

// Diagnostics is the error returned by engines when user code is rejected.
// Message is the toolchain's rendering, possibly multi-line.
type Diagnostics struct {
	Stage   Stage
	Message string
}

func (d *Diagnostics) Error() string {
	return d.Message
}

// Title returns the first non-empty line of the message.
func (d *Diagnostics) Title() string {
	for _, line := range d.Lines() {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return string(d.Stage) + " failed"
}

// Lines splits the message into lines without trailing newline noise.
func (d *Diagnostics) Lines() []string {
	msg := strings.TrimRight(d.Message, "\n")
	if msg == "" {
		return nil
	}
	return strings.Split(msg, "\n")
}

// AsDiagnostics extracts *Diagnostics from err.
func AsDiagnostics(err error) (*Diagnostics, bool) {
	var d *Diagnostics
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
