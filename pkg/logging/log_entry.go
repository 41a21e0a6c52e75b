package logging

// LogEntry represents a structured log record emitted during a model search
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Search-specific fields
	RunID string // Identifier of the search run that produced the entry

	// General structured data
	Fields map[string]interface{}
}
