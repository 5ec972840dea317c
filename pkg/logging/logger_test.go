package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestLogWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "session-1")

	logger.Log(LevelInfo, CategoryAnalysis, "analysis_applied", "issues updated", map[string]any{
		"issue_count": 3,
	})
	logger.Warn(CategoryBackend, "retrying", "attempt 2")

	events := decodeLines(t, &buf)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Level != LevelInfo || first.Category != CategoryAnalysis {
		t.Errorf("event = %+v", first)
	}
	if first.EventType != "analysis_applied" || first.Message != "issues updated" {
		t.Errorf("event = %+v", first)
	}
	if first.SessionID != "session-1" {
		t.Errorf("session id = %q", first.SessionID)
	}
	if first.Timestamp.IsZero() {
		t.Error("timestamp must be stamped")
	}
	if got, ok := first.Details["issue_count"].(float64); !ok || got != 3 {
		t.Errorf("details = %+v", first.Details)
	}

	if events[1].Level != LevelWarn || events[1].Category != CategoryBackend {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestMinLevelFiltersBelow(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "")

	logger.Debug(CategoryCache, "cache_hit", "")
	if buf.Len() != 0 {
		t.Error("debug must be filtered at the default level")
	}

	logger.SetMinLevel(LevelDebug)
	logger.Debug(CategoryCache, "cache_hit", "")
	if len(decodeLines(t, &buf)) != 1 {
		t.Error("debug must pass once the level is lowered")
	}
}

func TestMinLevelError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "")
	logger.SetMinLevel(LevelError)

	logger.Info(CategoryStorage, "opened", "")
	logger.Warn(CategoryStorage, "slow", "")
	logger.Error(CategoryStorage, "corrupt", "")

	events := decodeLines(t, &buf)
	if len(events) != 1 || events[0].Level != LevelError {
		t.Errorf("events = %+v", events)
	}
}

func TestLogEventKeepsExplicitFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "session-1")

	logger.LogEvent(Event{
		Level:     LevelInfo,
		Category:  CategoryAnalysis,
		EventType: "stale_result_discarded",
		SessionID: "other-session",
		RequestID: "req-42",
	})

	events := decodeLines(t, &buf)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].SessionID != "other-session" {
		t.Errorf("explicit session id must win, got %q", events[0].SessionID)
	}
	if events[0].RequestID != "req-42" {
		t.Errorf("request id = %q", events[0].RequestID)
	}
}

func TestNilLoggerAndNopAreSafe(t *testing.T) {
	var logger *Logger
	logger.LogEvent(Event{Level: LevelError})
	Nop().Error(CategoryBackend, "boom", "ignored")
}
