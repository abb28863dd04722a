package domain

import "time"

// LogKind classifies an activity log entry.
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogSuccess LogKind = "success"
	LogWarning LogKind = "warning"
	LogError   LogKind = "error"
)

// LogEntry is one record in the session's activity log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      LogKind   `json:"kind"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}

// ActivityLog is the ordered, append-only audit trail of a session.
// Entries are never reordered or deduplicated; insertion order is the
// record of what the operator did.
type ActivityLog []LogEntry

// Append adds an entry stamped with the current time.
func (l *ActivityLog) Append(kind LogKind, message string, data any) {
	*l = append(*l, LogEntry{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Message:   message,
		Data:      data,
	})
}
