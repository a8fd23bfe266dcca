package types

// MimeBundle maps MIME types to display data.
type MimeBundle map[string]any

// MimeTextPlain is the MIME type every result bundle carries.
const MimeTextPlain = "text/plain"

// TextBundle returns a bundle holding only text/plain.
func TextBundle(text string) MimeBundle {
	return MimeBundle{MimeTextPlain: text}
}

// ReplyStatus is the status field of shell replies.
type ReplyStatus string

// Reply status values.
const (
	StatusOK    ReplyStatus = "ok"
	StatusError ReplyStatus = "error"
)

// ExecutionState is the kernel state reported on IOPub.
type ExecutionState string

// Execution states.
const (
	StateStarting ExecutionState = "starting"
	StateBusy     ExecutionState = "busy"
	StateIdle     ExecutionState = "idle"
)

// --- Shell ---

// KernelInfoRequest has no fields.
type KernelInfoRequest struct{}

// KernelInfoReply describes the kernel implementation and its language.
type KernelInfoReply struct {
	Status                ReplyStatus  `json:"status"`
	ProtocolVersion       string       `json:"protocol_version"`
	Implementation        string       `json:"implementation"`
	ImplementationVersion string       `json:"implementation_version"`
	LanguageInfo          LanguageInfo `json:"language_info"`
	Banner                string       `json:"banner"`
	Debugger              bool         `json:"debugger"`
	HelpLinks             []HelpLink   `json:"help_links"`
	SupportedFeatures     []string     `json:"supported_features"`
}

// LanguageInfo describes the language implemented by the kernel.
type LanguageInfo struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Mimetype          string `json:"mimetype"`
	FileExtension     string `json:"file_extension"`
	PygmentsLexer     string `json:"pygments_lexer,omitempty"`
	CodemirrorMode    string `json:"codemirror_mode,omitempty"`
	NbconvertExporter string `json:"nbconvert_exporter"`
}

// HelpLink is an entry of the frontend help menu.
type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ExecuteRequest asks the kernel to run code.
type ExecuteRequest struct {
	Code         string `json:"code"`
	Silent       bool   `json:"silent"`
	StoreHistory bool   `json:"store_history"`
	// UserExpressions maps names to expressions evaluated after Code.
	UserExpressions map[string]string `json:"user_expressions"`
	AllowStdin      bool              `json:"allow_stdin"`
	StopOnError     bool              `json:"stop_on_error"`
}

// ExecuteReply is the shell reply to an ExecuteRequest.
// Status selects the shape: ok replies carry UserExpressions, error
// replies carry Ename, Evalue and Traceback.
type ExecuteReply struct {
	Status          ReplyStatus           `json:"status"`
	ExecutionCount  int                   `json:"execution_count"`
	UserExpressions map[string]MimeBundle `json:"user_expressions,omitempty"`
	Ename           string                `json:"ename,omitempty"`
	Evalue          string                `json:"evalue,omitempty"`
	Traceback       []string              `json:"traceback,omitempty"`
}

// ExecuteOK builds a successful reply.
func ExecuteOK(count int, userExpressions map[string]MimeBundle) ExecuteReply {
	return ExecuteReply{
		Status:          StatusOK,
		ExecutionCount:  count,
		UserExpressions: userExpressions,
	}
}

// ExecuteFailed builds an error reply.
func ExecuteFailed(count int, ename, evalue string, traceback []string) ExecuteReply {
	return ExecuteReply{
		Status:         StatusError,
		ExecutionCount: count,
		Ename:          ename,
		Evalue:         evalue,
		Traceback:      traceback,
	}
}

// --- Control ---

// ShutdownRequest asks the kernel to terminate, optionally for restart.
type ShutdownRequest struct {
	Restart bool `json:"restart"`
}

// ShutdownReply echoes the restart flag.
type ShutdownReply struct {
	Restart bool `json:"restart"`
}

// --- IOPub ---

// StatusContent reports the kernel execution state.
type StatusContent struct {
	ExecutionState ExecutionState `json:"execution_state"`
}

// ExecuteInputContent re-broadcasts the code being executed.
type ExecuteInputContent struct {
	Code           string `json:"code"`
	ExecutionCount int    `json:"execution_count"`
}

// ExecuteResultContent carries the value of an execution.
type ExecuteResultContent struct {
	ExecutionCount int            `json:"execution_count"`
	Data           MimeBundle     `json:"data"`
	Metadata       map[string]any `json:"metadata"`
}

// StreamContent carries text written to a stream.
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ErrorContent describes a failed execution.
type ErrorContent struct {
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// Stream names.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)
