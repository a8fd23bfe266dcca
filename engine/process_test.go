package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/ikernel/ipc"
)

// helperEngine returns a Process engine that re-executes the test binary
// as a fake toolchain in the given mode.
func helperEngine(mode string) *Process {
	return NewProcess(ProcessConfig{
		Path:    os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--", mode},
		Env:     []string{"IKERNEL_WANT_HELPER_PROCESS=1"},
		Timeout: 10 * time.Second,
	})
}

// TestHelperProcess is not a real test. It plays the external toolchain.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("IKERNEL_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "helper: missing mode/op")
		os.Exit(2)
	}
	mode, op := args[1], ipc.Operation(args[2])

	var req ipc.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "helper: bad request: %v\n", err)
		os.Exit(2)
	}
	if req.Op != op {
		fmt.Fprintf(os.Stderr, "helper: op arg %q != request op %q\n", op, req.Op)
		os.Exit(2)
	}

	out := ipc.NewWriter(os.Stdout)
	switch mode {
	case "ok":
		if op == ipc.OpRun {
			_ = out.Write(&ipc.StreamFrame{Name: "stdout", Text: "running " + req.Entry + "\n"})
			_ = out.Write(&ipc.ResultFrame{Display: fmt.Sprint(len(req.Source)), ValueType: "Int"})
			return
		}
		_ = out.Write(&ipc.ResultFrame{})
	case "diag":
		_ = out.Write(&ipc.DiagnosticFrame{Message: "type mismatch\n  expected Int", Stage: "compile"})
	case "crash":
		fmt.Fprintln(os.Stderr, "toolchain exploded")
		os.Exit(3)
	}
}

func TestProcess_CompileAndRun(t *testing.T) {
	v, err := helperEngine("ok").CompileAndRun(t.Context(), Program{Source: "abcd", Entry: "repl_eval_1"})
	if err != nil {
		t.Fatalf("CompileAndRun failed: %v", err)
	}
	if v.Display != "4" || v.Type != "Int" {
		t.Errorf("value = %q : %q, want 4 : Int", v.Display, v.Type)
	}
	if v.Stdout != "running repl_eval_1\n" {
		t.Errorf("Stdout = %q", v.Stdout)
	}
}

func TestProcess_CompileOnly(t *testing.T) {
	if err := helperEngine("ok").CompileOnly(t.Context(), "const x = 1"); err != nil {
		t.Fatalf("CompileOnly failed: %v", err)
	}
}

func TestProcess_Diagnostics(t *testing.T) {
	err := helperEngine("diag").CompileOnly(t.Context(), "const x: Int = True")
	d, ok := AsDiagnostics(err)
	if !ok {
		t.Fatalf("expected *Diagnostics, got %T (%v)", err, err)
	}
	if d.Title() != "type mismatch" {
		t.Errorf("Title = %q", d.Title())
	}
	if d.Stage != StageCompile {
		t.Errorf("Stage = %q, want compile", d.Stage)
	}
}

func TestProcess_CrashReportsStderr(t *testing.T) {
	_, err := helperEngine("crash").CompileAndRun(t.Context(), Program{Source: "x", Entry: "repl_eval_1"})
	if err == nil {
		t.Fatal("expected error from crashing engine")
	}
	if _, ok := AsDiagnostics(err); ok {
		t.Error("a crash should not be reported as user diagnostics")
	}
	if !strings.Contains(err.Error(), "toolchain exploded") || !strings.Contains(err.Error(), "code 3") {
		t.Errorf("error = %v, want stderr and exit code", err)
	}
}

func TestProcess_MissingBinary(t *testing.T) {
	p := NewProcess(ProcessConfig{Path: "/nonexistent/toolchain"})
	if err := p.CompileOnly(t.Context(), "x"); err == nil {
		t.Fatal("expected start error")
	}
}
