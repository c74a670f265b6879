package domain

import "time"

// Severity tags an activity log line.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityFromLevel maps a remote function log level onto a console severity.
func SeverityFromLevel(level string) Severity {
	switch level {
	case "error":
		return SeverityError
	case "warn":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// ActivityLogEntry is one line of the operator console.
type ActivityLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// CommandState is the visual state of a triggerable command.
type CommandState string

const (
	CommandIdle    CommandState = "idle"
	CommandRunning CommandState = "running"
	CommandSuccess CommandState = "success"
	CommandFailed  CommandState = "failed"
)

// FunctionLog is a leveled line reported by a remote function.
type FunctionLog struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// FunctionResult is the structured body a remote function may return.
// Pointer counters distinguish an absent field from zero.
type FunctionResult struct {
	Message   string        `json:"message,omitempty"`
	Scraped   *int          `json:"scraped,omitempty"`
	Processed *int          `json:"processed,omitempty"`
	Created   *int          `json:"created,omitempty"`
	Rejected  *int          `json:"rejected,omitempty"`
	Errors    *int          `json:"errors,omitempty"`
	Details   []string      `json:"details,omitempty"`
	Logs      []FunctionLog `json:"logs,omitempty"`
}

// InvokeResult is the outcome of one successful remote invocation.
type InvokeResult struct {
	Result   FunctionResult
	Duration time.Duration
}
