package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestYaegi_CompileAndRun(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		entry       string
		wantDisplay string
		wantType    string
	}{
		{
			name:        "constant arithmetic",
			source:      "const x = 1\n\nfunc repl_eval_1() interface{} { return (x + 1) }",
			entry:       "repl_eval_1",
			wantDisplay: "2",
			wantType:    "int",
		},
		{
			name:        "string is quoted",
			source:      "const x = \"hi\"\n\nfunc repl_eval_2() interface{} { return (x) }",
			entry:       "repl_eval_2",
			wantDisplay: `"hi"`,
			wantType:    "string",
		},
		{
			name:        "function call",
			source:      "func double(n int) int { return n * 2 }\n\nfunc repl_eval_3() interface{} { return (double(21)) }",
			entry:       "repl_eval_3",
			wantDisplay: "42",
			wantType:    "int",
		},
	}

	y := NewYaegi()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := y.CompileAndRun(t.Context(), Program{Source: tt.source, Entry: tt.entry})
			if err != nil {
				t.Fatalf("CompileAndRun failed: %v", err)
			}
			if v.Display != tt.wantDisplay {
				t.Errorf("Display = %q, want %q", v.Display, tt.wantDisplay)
			}
			if v.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", v.Type, tt.wantType)
			}
		})
	}
}

func TestYaegi_CapturesStdout(t *testing.T) {
	src := "import \"fmt\"\n\nfunc repl_eval_1() interface{} { fmt.Println(\"side effect\"); return 7 }"
	v, err := NewYaegi().CompileAndRun(t.Context(), Program{Source: src, Entry: "repl_eval_1"})
	if err != nil {
		t.Fatalf("CompileAndRun failed: %v", err)
	}
	if v.Stdout != "side effect\n" {
		t.Errorf("Stdout = %q, want %q", v.Stdout, "side effect\n")
	}
	if v.Display != "7" {
		t.Errorf("Display = %q, want 7", v.Display)
	}
}

func TestYaegi_CompileError(t *testing.T) {
	src := "func repl_eval_1() interface{} { return (undefinedName + 1) }"
	_, err := NewYaegi().CompileAndRun(t.Context(), Program{Source: src, Entry: "repl_eval_1"})
	d, ok := AsDiagnostics(err)
	if !ok {
		t.Fatalf("expected *Diagnostics, got %T (%v)", err, err)
	}
	if d.Stage != StageCompile {
		t.Errorf("Stage = %q, want compile", d.Stage)
	}
	if !strings.Contains(d.Message, "undefinedName") {
		t.Errorf("Message = %q, want mention of undefinedName", d.Message)
	}
}

func TestYaegi_PanicIsRunDiagnostic(t *testing.T) {
	src := "func repl_eval_1() interface{} { panic(\"boom\") }"
	_, err := NewYaegi().CompileAndRun(t.Context(), Program{Source: src, Entry: "repl_eval_1"})
	d, ok := AsDiagnostics(err)
	if !ok {
		t.Fatalf("expected *Diagnostics, got %T (%v)", err, err)
	}
	if d.Stage != StageRun {
		t.Errorf("Stage = %q, want run", d.Stage)
	}
	if !strings.Contains(d.Message, "boom") {
		t.Errorf("Message = %q, want mention of boom", d.Message)
	}
}

func TestYaegi_DeadlineAbortsRun(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"sleeping entry", "import \"time\"\n\nfunc repl_eval_1() interface{} {\n\ttime.Sleep(2 * time.Second)\n\treturn 7\n}"},
		{"spinning entry", "func repl_eval_1() interface{} {\n\tfor {\n\t}\n}"},
		{"spinning initializer", "func spin() int {\n\tfor {\n\t}\n}\n\nvar n = spin()\n\nfunc repl_eval_1() interface{} { return n }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
			defer cancel()

			start := time.Now()
			_, err := NewYaegi().CompileAndRun(ctx, Program{Source: tt.source, Entry: "repl_eval_1"})
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("err = %v, want deadline exceeded", err)
			}
			if _, ok := AsDiagnostics(err); ok {
				t.Error("an abort must not be reported as a diagnostic")
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("returned after %v, want prompt return", elapsed)
			}
		})
	}
}

func TestYaegi_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := NewYaegi().CompileOnly(ctx, "const x = 1"); !errors.Is(err, context.Canceled) {
		t.Errorf("CompileOnly err = %v, want canceled", err)
	}
}

func TestYaegi_CompileOnly(t *testing.T) {
	y := NewYaegi()
	if err := y.CompileOnly(t.Context(), "const x = 1\n\nfunc f() int { return x }"); err != nil {
		t.Fatalf("CompileOnly failed: %v", err)
	}

	err := y.CompileOnly(t.Context(), "func f() int { return \"nope\" }")
	if _, ok := AsDiagnostics(err); !ok {
		t.Fatalf("expected *Diagnostics for type error, got %v", err)
	}
}

func TestDiagnostics_TitleAndLines(t *testing.T) {
	d := &Diagnostics{Stage: StageCompile, Message: "\nfirst problem\n  detail one\n  detail two\n"}
	if got := d.Title(); got != "first problem" {
		t.Errorf("Title = %q, want %q", got, "first problem")
	}
	if got := len(d.Lines()); got != 4 {
		t.Errorf("len(Lines) = %d, want 4", got)
	}

	empty := &Diagnostics{Stage: StageRun}
	if got := empty.Title(); got != "run failed" {
		t.Errorf("empty Title = %q, want %q", got, "run failed")
	}
}
