package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		dialect *Dialect
		text    string
		want    Kind
	}{
		{"aiken arithmetic", Aiken, "1 + 2", Expression},
		{"aiken fn", Aiken, "fn add(a, b) { a + b }", Definitions},
		{"aiken pub fn", Aiken, "pub fn f() { 1 }", Definitions},
		{"aiken use", Aiken, "use aiken/list", Definitions},
		{"aiken call named test", Aiken, "test(1)", Expression},
		{"aiken leading blank", Aiken, "\n\n  const x = 1", Definitions},
		{"aiken multiline with keyword", Aiken, "// helper\nfn f() { 1 }", Definitions},
		{"aiken multiline expression", Aiken, "[1, 2]\n  |> list.length", Expression},
		{"identifier starting with keyword", Aiken, "fnord + 1", Expression},
		{"go grouped const", Go, "const (\n  a = 1\n)", Definitions},
		{"go method", Go, "func (p P) Name() string { return \"p\" }", Definitions},
		{"go expression", Go, "len(\"abc\")", Expression},
		{"go var", Go, "var n = 3", Definitions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.dialect, tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitFragments(t *testing.T) {
	type frag struct {
		Kind  DeclKind
		Names []string
		Text  string
	}
	tests := []struct {
		name    string
		dialect *Dialect
		text    string
		want    []frag
	}{
		{
			name:    "single const",
			dialect: Aiken,
			text:    "const x = 1",
			want:    []frag{{DeclConstant, []string{"x"}, "const x = 1"}},
		},
		{
			name:    "two functions with body",
			dialect: Aiken,
			text:    "fn a() {\n  1\n}\n\npub fn b() {\n  2\n}\n",
			want: []frag{
				{DeclFunction, []string{"a"}, "fn a() {\n  1\n}"},
				{DeclFunction, []string{"b"}, "pub fn b() {\n  2\n}"},
			},
		},
		{
			name:    "leading comment attaches to first fragment",
			dialect: Aiken,
			text:    "// doubles\nfn double(n) { n * 2 }",
			want:    []frag{{DeclFunction, []string{"double"}, "// doubles\nfn double(n) { n * 2 }"}},
		},
		{
			name:    "import keyed by path",
			dialect: Aiken,
			text:    "use   aiken/list",
			want:    []frag{{DeclImport, []string{"import aiken/list"}, "use   aiken/list"}},
		},
		{
			name:    "go grouped declarations",
			dialect: Go,
			text:    "const (\n\ta, b = 1, 2\n\t// note\n\tc int = 3\n)",
			want:    []frag{{DeclConstant, []string{"a", "b", "c"}, "const (\n\ta, b = 1, 2\n\t// note\n\tc int = 3\n)"}},
		},
		{
			name:    "go grouped types skip struct fields",
			dialect: Go,
			text:    "type (\n\tP struct {\n\t\tX int\n\t}\n\tQ int\n)",
			want:    []frag{{DeclType, []string{"P", "Q"}, "type (\n\tP struct {\n\t\tX int\n\t}\n\tQ int\n)"}},
		},
		{
			name:    "indented keyword",
			dialect: Aiken,
			text:    " const x = 1",
			want:    []frag{{DeclConstant, []string{"x"}, " const x = 1"}},
		},
		{
			name:    "stray statement before indented keyword",
			dialect: Aiken,
			text:    "let a = 1\n  const y = 2",
			want:    []frag{{DeclConstant, []string{"y"}, "let a = 1\n  const y = 2"}},
		},
		{
			name:    "keyword inside a body does not split",
			dialect: Go,
			text:    "func f() int {\n\tvar n = \"{\"\n\tconst m = 2\n\treturn m\n}",
			want:    []frag{{DeclFunction, []string{"f"}, "func f() int {\n\tvar n = \"{\"\n\tconst m = 2\n\treturn m\n}"}},
		},
		{
			name:    "no keyword outside brackets",
			dialect: Aiken,
			text:    "{\n  const x = 1\n}\n",
			want:    []frag{{Text: "{\n  const x = 1\n}"}},
		},
		{
			name:    "go method",
			dialect: Go,
			text:    "func (p *P) Name() string { return \"p\" }",
			want:    []frag{{DeclFunction, []string{"P.Name"}, "func (p *P) Name() string { return \"p\" }"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []frag
			for _, f := range splitFragments(tt.dialect, tt.text) {
				got = append(got, frag{f.kind, f.names, f.text})
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitFragments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNesting(t *testing.T) {
	tests := map[string]int{
		"fn f() {":             1,
		"}":                    -1,
		"const (":              1,
		"x = \"(\"":            0,
		"f(a, [b]) // {":       0,
		"s := `{` + \"\\\"{\"": 0,
	}
	for line, want := range tests {
		if got := nesting(line); got != want {
			t.Errorf("nesting(%q) = %d, want %d", line, got, want)
		}
	}
}

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"aiken", "go"} {
		d, err := DialectByName(name)
		if err != nil {
			t.Fatalf("DialectByName(%q) failed: %v", name, err)
		}
		if d.Name != name {
			t.Errorf("Name = %q, want %q", d.Name, name)
		}
	}
	if _, err := DialectByName("cobol"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestWrapExpression(t *testing.T) {
	if got, want := Aiken.WrapExpression("repl_eval_1", " 1 + 2 \n"), "pub fn repl_eval_1() {\n  1 + 2\n}"; got != want {
		t.Errorf("Aiken wrap = %q, want %q", got, want)
	}
	if got, want := Go.WrapExpression("repl_eval_2", "x"), "func repl_eval_2() interface{} { return (x) }"; got != want {
		t.Errorf("Go wrap = %q, want %q", got, want)
	}
}

func TestOutline(t *testing.T) {
	text := "const x = 1\n\nfunc double(n int) int {\n\treturn n * 2\n}\n\ntype P struct{}"
	want := []Declaration{
		{Name: "x", Kind: DeclConstant},
		{Name: "double", Kind: DeclFunction},
		{Name: "P", Kind: DeclType},
	}
	if diff := cmp.Diff(want, Outline(Go, text)); diff != "" {
		t.Errorf("Outline mismatch (-want +got):\n%s", diff)
	}

	if got := Outline(Go, "1 + 2"); got != nil {
		t.Errorf("Outline(expression) = %v, want nil", got)
	}
}
