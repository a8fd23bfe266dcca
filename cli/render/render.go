// Package render writes command output for the ikernel CLI.
//
// Format selection:
//   - --format always wins; unknown formats are errors
//   - otherwise a terminal gets a table and anything else gets JSON
//
// Tables come from the Row interface when a type implements it, and from
// the exported fields (named by their json tags) otherwise. --no-color
// only affects tables. TUI mode has its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/ikernel/cli/tui"
)

// Format is an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format name. The empty string is returned as is so
// the caller can apply the terminal default.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
}

// Row is implemented by types that choose their own table columns.
// Columns must not depend on the receiver's value.
type Row interface {
	Columns() []string
	Cells() []string
}

var headerStyle = lipgloss.NewStyle().Bold(true)

// Renderer writes values in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a renderer for stdout from the --format and
// --no-color flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	fd := os.Stdout.Fd()
	if format == "" {
		format = DefaultFormat(fd)
	}
	return &Renderer{format: format, noColor: c.Bool("no-color") || !IsTerminal(fd), out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// IsTerminal reports whether fd is a terminal, including Cygwin ptys.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DefaultFormat is table on a terminal and JSON elsewhere.
func DefaultFormat(fd uintptr) Format {
	if IsTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// Render writes data.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.table(data)
	}
	return fmt.Errorf("unknown format: %s", r.format)
}

// RenderTUI opens the interactive view for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) table(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	v := deref(reflect.ValueOf(data))

	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		for _, kv := range fields(v) {
			fmt.Fprintf(w, "%s:\t%s\n", kv[0], kv[1])
		}
		return w.Flush()
	}

	if v.Len() == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}
	header := columns(v.Index(0))
	line := strings.Join(header, "\t")
	if !r.noColor {
		line = headerStyle.Render(line)
	}
	fmt.Fprintln(w, line)
	for i := range v.Len() {
		fmt.Fprintln(w, strings.Join(cells(v.Index(i), header), "\t"))
	}
	return w.Flush()
}

func deref(v reflect.Value) reflect.Value {
	for (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func asRow(v reflect.Value) (Row, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	row, ok := v.Interface().(Row)
	return row, ok
}

// fields lists the label/value pairs of a struct or map, or the value
// itself under "value".
func fields(v reflect.Value) [][2]string {
	var out [][2]string
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				out = append(out, [2]string{fieldName(f), cell(v.Field(i))})
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, [2]string{fmt.Sprint(iter.Key().Interface()), cell(iter.Value())})
		}
	default:
		out = append(out, [2]string{"value", cell(v)})
	}
	return out
}

func columns(v reflect.Value) []string {
	if row, ok := asRow(v); ok {
		return row.Columns()
	}
	v = deref(v)
	var cols []string
	switch v.Kind() {
	case reflect.Struct, reflect.Map:
		for _, kv := range fields(v) {
			cols = append(cols, kv[0])
		}
	default:
		cols = []string{"value"}
	}
	return cols
}

func cells(v reflect.Value, header []string) []string {
	if row, ok := asRow(v); ok {
		return row.Cells()
	}
	v = deref(v)
	switch v.Kind() {
	case reflect.Map:
		out := make([]string, len(header))
		for i, h := range header {
			out[i] = cell(v.MapIndex(reflect.ValueOf(h)))
		}
		return out
	case reflect.Struct:
		var out []string
		for _, kv := range fields(v) {
			out = append(out, kv[1])
		}
		return out
	}
	return []string{cell(v)}
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

// cell formats one value on a single line.
func cell(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	v = deref(v)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return "" // nil
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return "{...}"
	case reflect.String:
		return FirstLine(v.String())
	}
	return fmt.Sprint(v.Interface())
}

// FirstLine keeps table cells on one line, marking dropped lines with an
// ellipsis.
func FirstLine(s string) string {
	if line, _, found := strings.Cut(s, "\n"); found {
		return line + " …"
	}
	return s
}
