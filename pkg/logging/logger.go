// Package logging writes structured JSONL events for the correction engine.
// It is intentionally quiet: the engine never surfaces failures to the
// user, so the log stream is where backend errors, storage degradation and
// stale-result discards become visible.
package logging

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category represents the subsystem generating the log.
type Category string

const (
	CategoryAnalysis Category = "analysis"
	CategoryBackend  Category = "backend"
	CategoryCache    Category = "cache"
	CategorySegment  Category = "segment"
	CategoryFeedback Category = "feedback"
	CategoryStorage  Category = "storage"
)

// Event represents a structured log event.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger writes events as JSON lines to a single destination.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	sessionID string
	minLevel  Level
}

// New creates a logger writing to out. A nil writer discards everything.
func New(out io.Writer, sessionID string) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, sessionID: sessionID, minLevel: LevelInfo}
}

// Nop returns a logger that drops all events.
func Nop() *Logger {
	return New(io.Discard, "")
}

// SetMinLevel sets the minimum level written.
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Log writes one event. Marshal or write failures are swallowed: logging
// must never interrupt the typing path.
func (l *Logger) Log(level Level, category Category, eventType, message string, details map[string]any) {
	l.LogEvent(Event{
		Level:     level,
		Category:  category,
		EventType: eventType,
		Message:   message,
		Details:   details,
	})
}

// LogEvent writes a fully populated event.
func (l *Logger) LogEvent(event Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.shouldLog(event.Level) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	l.out.Write(data)
}

// Debug logs at debug level.
func (l *Logger) Debug(category Category, eventType, message string) {
	l.Log(LevelDebug, category, eventType, message, nil)
}

// Info logs at info level.
func (l *Logger) Info(category Category, eventType, message string) {
	l.Log(LevelInfo, category, eventType, message, nil)
}

// Warn logs at warn level.
func (l *Logger) Warn(category Category, eventType, message string) {
	l.Log(LevelWarn, category, eventType, message, nil)
}

// Error logs at error level.
func (l *Logger) Error(category Category, eventType, message string) {
	l.Log(LevelError, category, eventType, message, nil)
}

func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}
