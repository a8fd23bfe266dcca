package session

import (
	"fmt"
	"strings"
)

// ResultKind tells what an evaluation produced.
type ResultKind int

const (
	// ResultNone means nothing to show (empty cell, imports only).
	ResultNone ResultKind = iota
	// ResultValue carries a computed value.
	ResultValue
	// ResultDefinition lists what was defined.
	ResultDefinition
	// ResultInfo carries a message from a magic command.
	ResultInfo
)

// Result is the outcome of a successful evaluation.
type Result struct {
	Kind ResultKind

	// ResultValue
	Value  string
	Type   string
	Stdout string

	// ResultDefinition
	Defined []Declaration

	// ResultInfo
	Text string
}

// String renders the feedback shown to the user: "value : type",
// "Defined constant x", "Multiple definitions: a, b", or "".
func (r *Result) String() string {
	switch r.Kind {
	case ResultValue:
		if r.Type == "" {
			return r.Value
		}
		return fmt.Sprintf("%s : %s", r.Value, r.Type)
	case ResultDefinition:
		switch len(r.Defined) {
		case 0:
			return ""
		case 1:
			return fmt.Sprintf("Defined %s %s", r.Defined[0].Kind, r.Defined[0].Name)
		default:
			names := make([]string, len(r.Defined))
			for i, d := range r.Defined {
				names[i] = d.Name
			}
			return "Multiple definitions: " + strings.Join(names, ", ")
		}
	case ResultInfo:
		return r.Text
	default:
		return ""
	}
}
