package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Yaegi evaluates Go source with an embedded interpreter. A fresh
// interpreter is created per call, so no state leaks between calls.
//
// Programs are sequences of top-level Go declarations without a package
// clause. The entry function must have the signature func() interface{}.
type Yaegi struct{}

// NewYaegi returns the Go interpreter engine.
func NewYaegi() *Yaegi {
	return &Yaegi{}
}

const goPackageClause = "package main\n\n"

func (y *Yaegi) newInterpreter(stdout *bytes.Buffer) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stdout})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	return i, nil
}

// CompileAndRun evaluates the declarations, then calls the entry function.
// A panic raised by user code is reported as a run diagnostic. When ctx
// ends first the call is abandoned and interpreted loops are stopped.
func (y *Yaegi) CompileAndRun(ctx context.Context, p Program) (Value, error) {
	var stdout bytes.Buffer
	i, err := y.newInterpreter(&stdout)
	if err != nil {
		return Value{}, err
	}

	if _, err := i.EvalWithContext(ctx, goPackageClause+p.Source); err != nil {
		return Value{}, evalError(ctx, StageCompile, err)
	}

	entry, err := i.Eval("main." + p.Entry)
	if err != nil {
		return Value{}, &Diagnostics{Stage: StageCompile, Message: err.Error()}
	}
	if _, ok := entry.Interface().(func() interface{}); !ok {
		return Value{}, &Diagnostics{
			Stage:   StageCompile,
			Message: fmt.Sprintf("%s has incorrect signature (expected: func() interface{})", p.Entry),
		}
	}

	res, err := i.EvalWithContext(ctx, "main."+p.Entry+"()")
	if err != nil {
		return Value{}, evalError(ctx, StageRun, err)
	}
	var result any
	if res.IsValid() && res.CanInterface() {
		result = res.Interface()
	}

	return Value{
		Display: display(result),
		Type:    fmt.Sprintf("%T", result),
		Stdout:  stdout.String(),
	}, nil
}

// evalError maps an interpreter error to a diagnostic, or to an abort
// when ctx ended.
func evalError(ctx context.Context, stage Stage, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("engine call aborted: %w", ctx.Err())
	}
	var p interp.Panic
	if errors.As(err, &p) {
		return &Diagnostics{Stage: StageRun, Message: fmt.Sprintf("panic: %v", p.Value)}
	}
	return &Diagnostics{Stage: stage, Message: strings.TrimSpace(err.Error())}
}

// CompileOnly parses and type-checks the declarations without running
// initializers.
func (y *Yaegi) CompileOnly(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("engine call aborted: %w", err)
	}
	var discard bytes.Buffer
	i, err := y.newInterpreter(&discard)
	if err != nil {
		return err
	}
	if _, err := i.Compile(goPackageClause + source); err != nil {
		return &Diagnostics{Stage: StageCompile, Message: strings.TrimSpace(err.Error())}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("engine call aborted: %w", err)
	}
	return nil
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

var _ Engine = (*Yaegi)(nil)
