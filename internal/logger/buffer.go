package logger

import (
	"encoding/json"
)

const defaultBufferSize = 1000

// LogEntry is one parsed log line kept for the /logs endpoint.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogBuffer is an io.Writer that keeps the most recent zerolog entries.
type LogBuffer struct {
	entries *RingBuffer[LogEntry]
}

// NewLogBuffer creates a buffer holding size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: NewRingBuffer[LogEntry](size)}
}

// Write implements io.Writer for zerolog's JSON output.
func (b *LogBuffer) Write(p []byte) (int, error) {
	if entry, ok := parseLogEntry(p); ok {
		b.entries.Push(entry)
	}
	return len(p), nil
}

// Entries returns the buffered entries, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	return b.entries.Snapshot()
}

func parseLogEntry(data []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, false
	}

	entry := LogEntry{}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}
	entry.Timestamp = take(zerologTimeField)
	entry.Level = take("level")
	entry.Component = take("component")
	entry.Message = take("message")

	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry, true
}
