package session

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pithecene-io/ikernel/types"
)

// DeclKind classifies a top-level declaration.
type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclConstant
	DeclType
	DeclVariable
	DeclImport
	DeclTest
	DeclValidator
)

// String returns the word used in feedback ("Defined constant x").
func (k DeclKind) String() string {
	switch k {
	case DeclFunction:
		return "function"
	case DeclConstant:
		return "constant"
	case DeclType:
		return "type"
	case DeclVariable:
		return "variable"
	case DeclImport:
		return "import"
	case DeclTest:
		return "test"
	case DeclValidator:
		return "validator"
	default:
		return "definition"
	}
}

// keyword is a definition-introducing prefix. Longer prefixes must come
// first so "pub fn" wins over "fn".
type keyword struct {
	prefix string
	kind   DeclKind
}

// Dialect describes the surface syntax of one source language: which
// prefixes introduce definitions, how an expression is wrapped into an
// entry function, and what the kernel advertises to frontends.
type Dialect struct {
	Name     string
	keywords []keyword
	// parenGroups allows "(" right after a keyword (Go grouped
	// declarations and method receivers).
	parenGroups bool
	// wrap renders the entry function for an expression.
	wrap func(entry, expr string) string

	LanguageInfo types.LanguageInfo
	Banner       string
	HelpLinks    []types.HelpLink
}

// Aiken is the dialect of the Aiken smart contract language.
var Aiken = &Dialect{
	Name: "aiken",
	keywords: []keyword{
		{"pub fn", DeclFunction},
		{"pub type", DeclType},
		{"pub const", DeclConstant},
		{"fn", DeclFunction},
		{"type", DeclType},
		{"const", DeclConstant},
		{"use", DeclImport},
		{"import", DeclImport},
		{"test", DeclTest},
		{"validator", DeclValidator},
	},
	wrap: func(entry, expr string) string {
		return fmt.Sprintf("pub fn %s() {\n  %s\n}", entry, expr)
	},
	LanguageInfo: types.LanguageInfo{
		Name:              "aiken",
		Version:           "0.0.1",
		Mimetype:          "text/x-aiken",
		FileExtension:     ".ak",
		PygmentsLexer:     "aiken",
		CodemirrorMode:    "aiken",
		NbconvertExporter: "script",
	},
	Banner: "Aiken Kernel v" + types.Version + "\nCardano Smart Contract Language",
	HelpLinks: []types.HelpLink{
		{Text: "Aiken Documentation", URL: "https://aiken-lang.org/"},
	},
}

// Go is the dialect evaluated by the built-in interpreter engine.
var Go = &Dialect{
	Name:        "go",
	parenGroups: true,
	keywords: []keyword{
		{"func", DeclFunction},
		{"type", DeclType},
		{"const", DeclConstant},
		{"var", DeclVariable},
		{"import", DeclImport},
	},
	wrap: func(entry, expr string) string {
		return fmt.Sprintf("func %s() interface{} { return (%s) }", entry, expr)
	},
	LanguageInfo: types.LanguageInfo{
		Name:              "go",
		Version:           strings.TrimPrefix(runtime.Version(), "go"),
		Mimetype:          "text/x-go",
		FileExtension:     ".go",
		PygmentsLexer:     "go",
		CodemirrorMode:    "go",
		NbconvertExporter: "script",
	},
	Banner: "Go Kernel v" + types.Version + "\nInterpreted Go",
	HelpLinks: []types.HelpLink{
		{Text: "Go Documentation", URL: "https://go.dev/doc/"},
	},
}

// DialectByName returns a registered dialect.
func DialectByName(name string) (*Dialect, error) {
	switch name {
	case Aiken.Name:
		return Aiken, nil
	case Go.Name:
		return Go, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want %s or %s)", name, Aiken.Name, Go.Name)
	}
}

// WrapExpression renders the entry function evaluating expr.
func (d *Dialect) WrapExpression(entry, expr string) string {
	return d.wrap(entry, strings.TrimSpace(expr))
}

// matchKeyword returns the keyword introducing line, if any. A keyword
// must be followed by whitespace or the end of the line, or by "(" in
// dialects with grouped declarations.
func (d *Dialect) matchKeyword(line string) (keyword, bool) {
	for _, kw := range d.keywords {
		if !strings.HasPrefix(line, kw.prefix) {
			continue
		}
		rest := line[len(kw.prefix):]
		if rest == "" {
			return kw, true
		}
		switch rest[0] {
		case ' ', '\t', '\r', '\n':
			return kw, true
		case '(':
			if d.parenGroups {
				return kw, true
			}
		}
	}
	return keyword{}, false
}
