package workers

import (
	"log"

	"auction_tracker/models"
)

// LogFunc records one worker event in the operational log.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger discards events.
func NoOpLogger(models.LogLevel, string, string) {}

// LogSink accepts operational log lines. *storage.SQLiteStore satisfies it.
type LogSink interface {
	Log(runID *int64, level models.LogLevel, message, source string) error
}

// SinkLogger writes worker events to sink with no run attached. A failed
// write is reported on stdout and dropped.
func SinkLogger(sink LogSink) LogFunc {
	return func(level models.LogLevel, source, message string) {
		if err := sink.Log(nil, level, message, source); err != nil {
			log.Printf("[DB] Failed to write log: %v", err)
		}
	}
}
