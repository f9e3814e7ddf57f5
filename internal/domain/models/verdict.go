package models

import "fmt"

// Verdict tags an analysis result as usable or not. Analyzers never return
// errors to the orchestrator; they return their value with a Verdict.
type Verdict struct {
	Valid bool   `json:"valid"`
	Err   string `json:"error,omitempty"`
}

// OKVerdict returns a valid verdict.
func OKVerdict() Verdict {
	return Verdict{Valid: true}
}

// InvalidVerdict returns an invalid verdict with a reason.
func InvalidVerdict(format string, args ...interface{}) Verdict {
	return Verdict{Err: fmt.Sprintf(format, args...)}
}

// OK reports whether the result is usable.
func (v Verdict) OK() bool {
	return v.Valid
}
