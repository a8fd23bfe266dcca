// Package session holds the state of an interactive evaluation: the
// definitions accepted so far, and the rules for turning a cell of source
// text into a program for the engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pithecene-io/ikernel/engine"
)

// EntryPrefix prefixes generated entry function names.
const EntryPrefix = "repl_eval_"

// EmptyContext is reported by Context when nothing is defined.
const EmptyContext = "Empty context"

// Magic commands understood by Eval.
const (
	CmdReset      = ":reset"
	CmdContext    = ":context"
	CmdContextAlt = ":ctx"
)

// EvaluationError reports code rejected by the engine. Diagnostics are
// carried verbatim.
type EvaluationError struct {
	Kind        Kind
	Diagnostics *engine.Diagnostics
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s evaluation failed: %s", e.Kind, e.Diagnostics.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Diagnostics
}

// IsEvaluationError reports whether err is user code rejected by the engine.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

// Session is an ordered set of definitions evaluated against an engine.
// A Session is not safe for concurrent use; the kernel owns it from a
// single worker.
type Session struct {
	dialect *Dialect
	engine  engine.Engine

	// fragments in definition order; each owns the names it declares.
	fragments []*fragment
	// wrappers counts generated entry functions. Never reset.
	wrappers uint64
}

// New creates an empty session.
func New(d *Dialect, e engine.Engine) *Session {
	return &Session{dialect: d, engine: e}
}

// Dialect returns the session's dialect.
func (s *Session) Dialect() *Dialect {
	return s.dialect
}

// Eval evaluates one cell: a magic command, definitions, or an expression.
func (s *Session) Eval(ctx context.Context, text string) (*Result, error) {
	switch strings.TrimSpace(text) {
	case CmdReset:
		s.Reset()
		return &Result{Kind: ResultInfo, Text: "Context reset"}, nil
	case CmdContext, CmdContextAlt:
		return &Result{Kind: ResultInfo, Text: s.Context()}, nil
	case "":
		return &Result{Kind: ResultNone}, nil
	}

	if Classify(s.dialect, text) == Definitions {
		return s.EvaluateDefinitions(ctx, text)
	}
	return s.EvaluateExpression(ctx, text)
}

// EvaluateExpression wraps text in a fresh entry function appended to the
// current definitions and runs it. The session is not modified.
func (s *Session) EvaluateExpression(ctx context.Context, text string) (*Result, error) {
	s.wrappers++
	entry := fmt.Sprintf("%s%d", EntryPrefix, s.wrappers)

	source := render(s.fragments)
	if source != "" {
		source += "\n\n"
	}
	source += s.dialect.WrapExpression(entry, text)

	v, err := s.engine.CompileAndRun(ctx, engine.Program{Source: source, Entry: entry})
	if err != nil {
		return nil, wrapEngineError(Expression, err)
	}
	return &Result{Kind: ResultValue, Value: v.Display, Type: v.Type, Stdout: v.Stdout}, nil
}

// EvaluateDefinitions adds the fragments of text to the session. A
// fragment declaring a name that an existing fragment declares replaces
// that whole fragment. The combined source must compile; otherwise the
// session is left unchanged.
func (s *Session) EvaluateDefinitions(ctx context.Context, text string) (*Result, error) {
	incoming := splitFragments(s.dialect, text)
	if len(incoming) == 0 {
		return &Result{Kind: ResultNone}, nil
	}

	candidate := append([]*fragment(nil), s.fragments...)
	var defined []Declaration
	for _, f := range incoming {
		candidate = replaceFragment(candidate, f)
		if f.kind == DeclImport {
			continue
		}
		for _, name := range f.names {
			defined = append(defined, Declaration{Name: name, Kind: f.kind})
		}
	}

	if err := s.engine.CompileOnly(ctx, render(candidate)); err != nil {
		return nil, wrapEngineError(Definitions, err)
	}
	s.fragments = candidate

	if len(defined) == 0 {
		return &Result{Kind: ResultNone}, nil
	}
	return &Result{Kind: ResultDefinition, Defined: defined}, nil
}

// replaceFragment drops every fragment sharing a name with f, then
// appends f.
func replaceFragment(frags []*fragment, f *fragment) []*fragment {
	if len(f.names) == 0 {
		return append(frags, f)
	}
	taken := make(map[string]bool, len(f.names))
	for _, n := range f.names {
		taken[n] = true
	}
	out := frags[:0:0]
	for _, old := range frags {
		collides := false
		for _, n := range old.names {
			if taken[n] {
				collides = true
				break
			}
		}
		if !collides {
			out = append(out, old)
		}
	}
	return append(out, f)
}

// render concatenates fragments, imports first, otherwise in definition
// order.
func render(frags []*fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if f.kind == DeclImport {
			parts = append(parts, f.text)
		}
	}
	for _, f := range frags {
		if f.kind != DeclImport {
			parts = append(parts, f.text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func wrapEngineError(kind Kind, err error) error {
	if d, ok := engine.AsDiagnostics(err); ok {
		return &EvaluationError{Kind: kind, Diagnostics: d}
	}
	return fmt.Errorf("%s evaluation: %w", kind, err)
}

// Reset forgets every definition. The entry counter keeps counting.
func (s *Session) Reset() {
	s.fragments = nil
}

// Context returns the accumulated source, or EmptyContext.
func (s *Session) Context() string {
	if len(s.fragments) == 0 {
		return EmptyContext
	}
	return render(s.fragments)
}

// Names returns the sorted names currently declared with the given kind.
func (s *Session) Names(kind DeclKind) []string {
	var names []string
	for _, f := range s.fragments {
		if f.kind == kind {
			names = append(names, f.names...)
		}
	}
	sort.Strings(names)
	return names
}

// Declarations returns every declared name in definition order.
func (s *Session) Declarations() []Declaration {
	var out []Declaration
	for _, f := range s.fragments {
		if f.kind == DeclImport {
			continue
		}
		for _, n := range f.names {
			out = append(out, Declaration{Name: n, Kind: f.kind})
		}
	}
	return out
}
