package models

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the severity stored with each operational log line.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Tag is the stdout prefix for the level, e.g. "[WARN]".
func (l LogLevel) Tag() string {
	return "[" + strings.ToUpper(string(l)) + "]"
}

// ParseLogLevel reads a stored level back. Unknown text reads as info.
func ParseLogLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// RunLog is one line of the operational log. RunID is nil for lines written
// outside a tracker cycle, such as detail fetch failures during a scan.
type RunLog struct {
	ID      int64     `json:"id"`
	RunID   *int64    `json:"run_id,omitempty"`
	At      time.Time `json:"at"`
	Level   LogLevel  `json:"level"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

func (l RunLog) String() string {
	return fmt.Sprintf("%s %s %s: %s", Timestamp(l.At), l.Level.Tag(), l.Source, l.Message)
}
