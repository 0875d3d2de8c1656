package analyzer

// Finding is a single hazard detected in a migration script.
type Finding struct {
	Rule       string   `json:"rule"`                 // rule id, e.g. "drop-table"
	Severity   Severity `json:"severity"`             // how disruptive the statement can be
	Table      string   `json:"table,omitempty"`      // affected table, when one can be named
	Statement  string   `json:"statement,omitempty"`  // statement text, truncated for display
	Message    string   `json:"message"`              // what the hazard is
	Suggestion string   `json:"suggestion,omitempty"` // a safer way to get the same result
	LockType   string   `json:"lock_type,omitempty"`  // strongest PostgreSQL lock the statement takes
	StmtIndex  int      `json:"stmt_index"`           // position in the script's statement list (0-based)
}

// AnalysisResult holds every finding for one migration script.
type AnalysisResult struct {
	MigrationName string    `json:"migration"`
	Findings      []Finding `json:"findings"`
	MaxSeverity   Severity  `json:"max_severity"`
}

// HasCritical reports whether any finding is Critical. Critical findings
// block apply unless the caller forces.
func (r *AnalysisResult) HasCritical() bool {
	return len(r.Findings) > 0 && r.MaxSeverity >= Critical
}

// TruncateSQL shortens a statement to maxLen characters for display. A
// maxLen too small for the ellipsis returns the string unchanged.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 {
		return sql
	}

	return sql[:maxLen-3] + "..."
}
