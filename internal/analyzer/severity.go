package analyzer

import "encoding/json"

// Severity grades how disruptive a flagged statement can be.
type Severity int

const (
	// Info flags something worth knowing before applying.
	Info Severity = iota
	// Warning flags an operation that blocks or rewrites the table under
	// load.
	Warning
	// Critical flags an operation that destroys data.
	Critical
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the severity as its string label, so serialized
// findings stay readable without the numeric scale.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Color returns an ANSI color code for terminal output.
func (s Severity) Color() string {
	switch s {
	case Info:
		return "\033[36m" // cyan
	case Warning:
		return "\033[33m" // yellow
	case Critical:
		return "\033[31m" // red
	default:
		return "\033[0m" // reset
	}
}
