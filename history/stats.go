package history

import "sort"

// Stats summarizes a set of entries.
type Stats struct {
	Total         int     `json:"total" yaml:"total"`
	OK            int     `json:"ok" yaml:"ok"`
	Failed        int     `json:"failed" yaml:"failed"`
	Sessions      int     `json:"sessions" yaml:"sessions"`
	AvgDurationMs float64 `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	// Errors counts failures by ename, most frequent first.
	Errors []ErrorCount `json:"errors" yaml:"errors"`
}

// ErrorCount is the number of failures sharing an ename.
type ErrorCount struct {
	Ename string `json:"ename" yaml:"ename"`
	Count int    `json:"count" yaml:"count"`
}

// Summarize computes Stats over entries.
func Summarize(entries []Entry) Stats {
	st := Stats{Errors: []ErrorCount{}}
	sessions := make(map[string]struct{})
	byEname := make(map[string]int)
	var totalMs int64

	for _, e := range entries {
		st.Total++
		sessions[e.Session] = struct{}{}
		totalMs += e.DurationMs
		if e.Status == "ok" {
			st.OK++
			continue
		}
		st.Failed++
		byEname[e.Ename]++
	}

	st.Sessions = len(sessions)
	if st.Total > 0 {
		st.AvgDurationMs = float64(totalMs) / float64(st.Total)
	}
	for name, n := range byEname {
		st.Errors = append(st.Errors, ErrorCount{Ename: name, Count: n})
	}
	sort.Slice(st.Errors, func(i, j int) bool {
		if st.Errors[i].Count != st.Errors[j].Count {
			return st.Errors[i].Count > st.Errors[j].Count
		}
		return st.Errors[i].Ename < st.Errors[j].Ename
	})
	return st
}
