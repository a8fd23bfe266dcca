package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pithecene-io/ikernel/ipc"
)

// ProcessConfig configures the external toolchain engine.
type ProcessConfig struct {
	// Path is the toolchain binary.
	Path string
	// Args are passed before the operation argument.
	Args []string
	// Env is appended to the inherited environment.
	Env []string
	// Timeout bounds a single call. Zero means no limit.
	Timeout time.Duration
}

// Process runs an external toolchain binary once per call:
//
//	<path> <args...> run|check
//
// The binary reads an ipc.Request as JSON from stdin and answers with
// ipc frames on stdout: any number of stream frames, then exactly one
// result or diagnostic frame. Stderr is captured for failure reports.
type Process struct {
	config ProcessConfig
}

// NewProcess creates a process engine.
func NewProcess(config ProcessConfig) *Process {
	return &Process{config: config}
}

// processResult is what one invocation produced.
type processResult struct {
	stdout   strings.Builder
	final    ipc.Frame
	exitCode int
	stderr   []byte
}

// CompileAndRun implements Engine.
func (p *Process) CompileAndRun(ctx context.Context, prog Program) (Value, error) {
	res, err := p.invoke(ctx, ipc.Request{Op: ipc.OpRun, Source: prog.Source, Entry: prog.Entry})
	if err != nil {
		return Value{}, err
	}
	switch f := res.final.(type) {
	case *ipc.ResultFrame:
		return Value{Display: f.Display, Type: f.ValueType, Stdout: res.stdout.String()}, nil
	case *ipc.DiagnosticFrame:
		return Value{}, diagnosticsFrom(f)
	default:
		return Value{}, p.crashError(res)
	}
}

// CompileOnly implements Engine.
func (p *Process) CompileOnly(ctx context.Context, source string) error {
	res, err := p.invoke(ctx, ipc.Request{Op: ipc.OpCheck, Source: source})
	if err != nil {
		return err
	}
	switch f := res.final.(type) {
	case *ipc.ResultFrame:
		return nil
	case *ipc.DiagnosticFrame:
		return diagnosticsFrom(f)
	default:
		return p.crashError(res)
	}
}

func diagnosticsFrom(f *ipc.DiagnosticFrame) *Diagnostics {
	stage := Stage(f.Stage)
	if stage != StageRun {
		stage = StageCompile
	}
	return &Diagnostics{Stage: stage, Message: f.Message}
}

// crashError reports an engine that exited without a final frame.
func (p *Process) crashError(res *processResult) error {
	msg := strings.TrimSpace(string(res.stderr))
	if msg == "" {
		msg = "no output"
	}
	return fmt.Errorf("engine %s exited with code %d without a result: %s", p.config.Path, res.exitCode, msg)
}

func (p *Process) invoke(ctx context.Context, req ipc.Request) (*processResult, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.config.Args...), string(req.Op))
	cmd := exec.CommandContext(ctx, p.config.Path, args...)
	if len(p.config.Env) > 0 {
		cmd.Env = append(os.Environ(), p.config.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(req); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("failed to write request: %w", err)
	}
	// Close stdin to signal input complete
	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("failed to close stdin: %w", err)
	}

	res := &processResult{}
	readErr := readFrames(stdout, res)
	// Drain so Wait does not block on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := cmd.Wait()
	res.stderr = stderr.Bytes()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("engine wait failed: %w", waitErr)
		}
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			res.exitCode = status.ExitStatus()
		} else {
			res.exitCode = -1
		}
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("engine call aborted: %w", ctx.Err())
	}
	if readErr != nil && res.final == nil {
		return nil, fmt.Errorf("engine output: %w", readErr)
	}
	return res, nil
}

// readFrames consumes frames until the final result or diagnostic frame.
// Undecodable frames are skipped.
func readFrames(r io.Reader, res *processResult) error {
	rd := ipc.NewReader(r)
	for {
		f, err := rd.Next()
		switch {
		case err == io.EOF:
			return nil
		case ipc.Fatal(err):
			return err
		case err != nil:
			continue
		}
		if s, ok := f.(*ipc.StreamFrame); ok {
			res.stdout.WriteString(s.Text)
			continue
		}
		res.final = f
		return nil
	}
}

var _ Engine = (*Process)(nil)
