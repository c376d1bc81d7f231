package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger writes one JSON object per line. Every entry carries ts, level, component
// and event; callers add their own fields. Never pass passwords or file contents.
type Logger struct {
	mu        *sync.Mutex
	w         io.Writer
	loc       *time.Location
	component string
}

// New creates a logger writing to w with timestamps in loc.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{mu: &sync.Mutex{}, w: w, loc: loc}
}

// Stdout is the process logger.
func Stdout(loc *time.Location) *Logger {
	return New(os.Stdout, loc)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, time.UTC)
}

// With returns a logger tagging entries with component. It shares the writer.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.component = component
	return &cp
}

// Info logs a successful or neutral event.
func (l *Logger) Info(event string, fields map[string]any) {
	l.write("info", event, fields)
}

// Warn logs an event that degraded but did not fail the operation.
func (l *Logger) Warn(event string, fields map[string]any) {
	l.write("warn", event, fields)
}

// Error logs a failed event.
func (l *Logger) Error(event string, err error, fields map[string]any) {
	entry := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		entry[k] = v
	}
	if err != nil {
		entry["error_message"] = err.Error()
	}
	l.write("error", event, entry)
}

func (l *Logger) write(level, event string, fields map[string]any) {
	if l == nil {
		return
	}
	entry := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	entry["level"] = level
	entry["event"] = event
	if l.component != "" {
		entry["component"] = l.component
	}

	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(b)
}
