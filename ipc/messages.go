package ipc

// Operation selects what the engine does with a request.
type Operation string

const (
	// OpRun compiles the source and runs its entry function.
	OpRun Operation = "run"
	// OpCheck compiles the source without running anything.
	OpCheck Operation = "check"
)

// Request is the JSON document written to the engine's stdin.
type Request struct {
	Op     Operation `json:"op"`
	Source string    `json:"source"`
	// Entry names the zero-argument function to run. Empty for OpCheck.
	Entry string `json:"entry,omitempty"`
}

// Frame type discriminants.
const (
	StreamType     = "stream"
	ResultType     = "result"
	DiagnosticType = "diagnostic"
)

// StreamFrame carries program output. Any number may precede the final
// frame.
type StreamFrame struct {
	Type string `msgpack:"type"`
	Name string `msgpack:"name"`
	Text string `msgpack:"text"`
}

// ResultFrame terminates a successful response. For OpCheck, Display and
// ValueType are empty.
type ResultFrame struct {
	Type      string `msgpack:"type"`
	Display   string `msgpack:"display"`
	ValueType string `msgpack:"value_type"`
}

// DiagnosticFrame terminates a failed response.
type DiagnosticFrame struct {
	Type    string `msgpack:"type"`
	Message string `msgpack:"message"`
	// Stage is "compile" or "run".
	Stage string `msgpack:"stage"`
}
