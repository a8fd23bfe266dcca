package history

import (
	"strconv"
	"strings"
	"time"
)

// RecordKindExecution is the record_kind discriminator of execution records.
const RecordKindExecution = "execution"

// Entry is one completed execution.
type Entry struct {
	KernelID       string    `json:"kernel_id" yaml:"kernel_id"`
	Session        string    `json:"session" yaml:"session"`
	Dialect        string    `json:"dialect" yaml:"dialect"`
	ExecutionCount int       `json:"execution_count" yaml:"execution_count"`
	Code           string    `json:"code" yaml:"code"`
	Status         string    `json:"status" yaml:"status"` // ok or error
	Output         string    `json:"output" yaml:"output"` // text/plain result or error title
	Ename          string    `json:"ename,omitempty" yaml:"ename,omitempty"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	DurationMs     int64     `json:"duration_ms" yaml:"duration_ms"`
}

// Columns are the table columns of an entry.
func (Entry) Columns() []string {
	return []string{"#", "session", "status", "ms", "started_at", "code", "output"}
}

// Cells renders an entry as one table row. Code and output keep their
// first line only.
func (e Entry) Cells() []string {
	output := e.Output
	if e.Ename != "" && output == "" {
		output = e.Ename
	}
	return []string{
		strconv.Itoa(e.ExecutionCount),
		e.Session,
		e.Status,
		strconv.FormatInt(e.DurationMs, 10),
		e.StartedAt.UTC().Format(time.RFC3339),
		firstLine(e.Code),
		firstLine(output),
	}
}

func firstLine(s string) string {
	if line, _, cut := strings.Cut(s, "\n"); cut {
		return line + " …"
	}
	return s
}

// DeriveDay returns the day partition (YYYY-MM-DD, UTC) for t.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// toRecordMap converts an entry to the map stored by Lode. The session
// and day fields are the Hive partition keys.
func toRecordMap(e Entry) map[string]any {
	m := map[string]any{
		"record_kind":     RecordKindExecution,
		"kernel_id":       e.KernelID,
		"session":         e.Session,
		"dialect":         e.Dialect,
		"execution_count": e.ExecutionCount,
		"code":            e.Code,
		"status":          e.Status,
		"output":          e.Output,
		"started_at":      e.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms":     e.DurationMs,
		"day":             DeriveDay(e.StartedAt),
	}
	if e.Ename != "" {
		m["ename"] = e.Ename
	}
	return m
}

// fromRecordMap converts a stored record back into an entry. JSON numbers
// arrive as float64.
func fromRecordMap(m map[string]any) (Entry, bool) {
	if toString(m["record_kind"]) != RecordKindExecution {
		return Entry{}, false
	}
	e := Entry{
		KernelID:       toString(m["kernel_id"]),
		Session:        toString(m["session"]),
		Dialect:        toString(m["dialect"]),
		ExecutionCount: int(toInt64(m["execution_count"])),
		Code:           toString(m["code"]),
		Status:         toString(m["status"]),
		Output:         toString(m["output"]),
		Ename:          toString(m["ename"]),
		DurationMs:     toInt64(m["duration_ms"]),
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(m["started_at"])); err == nil {
		e.StartedAt = ts
	}
	return e, true
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
