package session

import (
	"strings"
	"unicode"
)

// Kind tells how a cell is evaluated.
type Kind int

const (
	// Expression cells are wrapped in an entry function and run.
	Expression Kind = iota
	// Definitions cells are added to the session.
	Definitions
)

func (k Kind) String() string {
	if k == Definitions {
		return "definitions"
	}
	return "expression"
}

// Classify decides whether text is an expression or definitions: it is
// definitions if it starts with a definition keyword, or if it spans
// several lines and one of them starts with a keyword.
func Classify(d *Dialect, text string) Kind {
	trimmed := strings.TrimSpace(text)
	if _, ok := d.matchKeyword(trimmed); ok {
		return Definitions
	}
	if strings.Contains(trimmed, "\n") {
		for _, line := range strings.Split(trimmed, "\n") {
			if _, ok := d.matchKeyword(strings.TrimSpace(line)); ok {
				return Definitions
			}
		}
	}
	return Expression
}

// Declaration is a named top-level entity.
type Declaration struct {
	Name string
	Kind DeclKind
}

// Outline lists the declarations a definitions cell would introduce, in
// source order. Expression cells have none.
func Outline(d *Dialect, text string) []Declaration {
	if Classify(d, text) != Definitions {
		return nil
	}
	var out []Declaration
	for _, f := range splitFragments(d, text) {
		for _, name := range f.names {
			out = append(out, Declaration{Name: name, Kind: f.kind})
		}
	}
	return out
}

// fragment is one top-level definition as the user wrote it.
type fragment struct {
	kind  DeclKind
	names []string
	text  string
}

// splitFragments cuts definitions text at every line that starts with a
// definition keyword outside any bracket, indented or not. Lines before
// the first keyword (comments, blank lines, stray statements) belong to
// the first fragment. Text with no keyword line at all becomes a single
// unnamed fragment so the engine still sees it.
func splitFragments(d *Dialect, text string) []*fragment {
	var (
		frags   []*fragment
		current *fragment
		lines   []string
		leading []string
		// declAt is the index in lines of the keyword line.
		declAt int
		depth  int
	)
	flush := func() {
		if current == nil {
			return
		}
		current.text = strings.TrimRight(strings.Join(lines, "\n"), "\n\t ")
		current.names = declaredNames(d, current.kind, strings.Join(lines[declAt:], "\n"))
		frags = append(frags, current)
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		opened := depth
		depth = max(depth+nesting(line), 0)
		if opened == 0 {
			if kw, ok := d.matchKeyword(strings.TrimLeft(line, " \t")); ok {
				flush()
				current = &fragment{kind: kw.kind}
				declAt = len(leading)
				lines = append(leading, line)
				leading = nil
				continue
			}
		}
		if current == nil {
			leading = append(leading, line)
			continue
		}
		lines = append(lines, line)
	}
	flush()

	if current == nil {
		if body := strings.TrimSpace(strings.Join(leading, "\n")); body != "" {
			frags = append(frags, &fragment{text: body})
		}
	}
	return frags
}

// nesting is the net count of brackets line opens. String literals and
// line comments are skipped.
func nesting(line string) int {
	n := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return n
			}
		case '(', '[', '{':
			n++
		case ')', ']', '}':
			n--
		}
	}
	return n
}

// declaredNames extracts the names a fragment declares: the identifier
// after the keyword. Methods are named Type.Method. Grouped Go
// declarations ("const (" ...) declare every entry. Imports are keyed
// by their full text since they bind no user name.
func declaredNames(d *Dialect, kind DeclKind, text string) []string {
	first, rest, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	kw, _ := d.matchKeyword(first)
	after := strings.TrimSpace(first[len(kw.prefix):])

	if kind == DeclImport {
		body := strings.TrimSpace(text)[len(kw.prefix):]
		return []string{"import " + strings.Join(strings.Fields(body), " ")}
	}

	if strings.HasPrefix(after, "(") && d.parenGroups {
		if kind == DeclFunction {
			// Method: func (r T) Name(...)
			if i := strings.Index(after, ")"); i >= 0 {
				if name := identifier(strings.TrimSpace(after[i+1:])); name != "" {
					return []string{receiverType(after[1:i]) + "." + name}
				}
			}
			return nil
		}
		return groupNames(strings.TrimPrefix(after, "(") + "\n" + rest)
	}

	if name := identifier(after); name != "" {
		return []string{name}
	}
	return nil
}

// groupNames returns the names declared by a grouped declaration body,
// up to the closing parenthesis. Lines nested inside braces (struct
// fields) are skipped.
func groupNames(body string) []string {
	var names []string
	depth := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if depth == 0 {
			if strings.HasPrefix(line, ")") {
				break
			}
			if line != "" && !strings.HasPrefix(line, "//") {
				lhs, _, _ := strings.Cut(line, "=")
				for _, part := range strings.Split(lhs, ",") {
					if name := identifier(strings.TrimSpace(part)); name != "" {
						names = append(names, name)
					}
				}
			}
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
	}
	return names
}

func receiverType(recv string) string {
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "*")
}

// identifier returns the leading identifier of s.
func identifier(s string) string {
	end := 0
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			end = i + len(string(r))
			continue
		}
		break
	}
	return s[:end]
}
