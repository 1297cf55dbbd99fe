package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo},
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	if isReplMode {
		t.Error("Expected isReplMode to be false after InitForCLI")
	}

	if defaultLogger == nil {
		t.Error("Expected defaultLogger to be set after InitForCLI")
	}

	Info("test-subsystem", "test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Expected log message to appear in CLI output")
	}

	if !strings.Contains(output, "test-subsystem") {
		t.Error("Expected subsystem to appear in CLI output")
	}
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}

	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestInitForREPL(t *testing.T) {
	ch := InitForREPL(LevelDebug, 4)
	if ch == nil {
		t.Fatal("Expected non-nil channel from InitForREPL")
	}
	if !isReplMode {
		t.Error("Expected isReplMode to be true after InitForREPL")
	}

	Info("test", "repl message")

	select {
	case entry := <-ch:
		if entry.Message != "repl message" {
			t.Errorf("Expected 'repl message', got %q", entry.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for log entry on repl channel")
	}

	// Restore CLI mode so subsequent tests in the package aren't affected.
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)
}

func TestLogEntry(t *testing.T) {
	now := time.Now()
	testErr := errors.New("test error")

	entry := LogEntry{
		Timestamp: now,
		Level:     LevelError,
		Subsystem: "test-subsystem",
		Message:   "test message",
		Err:       testErr,
	}

	if entry.Timestamp != now {
		t.Error("Timestamp not set correctly")
	}

	if entry.Level != LevelError {
		t.Error("Level not set correctly")
	}

	if entry.Subsystem != "test-subsystem" {
		t.Error("Subsystem not set correctly")
	}

	if entry.Message != "test message" {
		t.Error("Message not set correctly")
	}

	if entry.Err != testErr {
		t.Error("Error not set correctly")
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Audit(AuditEvent{
		Action:  "plugin_spawn",
		Outcome: "success",
		Target:  "git",
	})

	output := buf.String()
	if !strings.Contains(output, "[AUDIT]") {
		t.Error("Expected [AUDIT] prefix in audit log output")
	}
	if !strings.Contains(output, "action=plugin_spawn") {
		t.Error("Expected action field in audit log output")
	}
}

func TestTruncateCorrelationID(t *testing.T) {
	short := "abc123"
	if got := TruncateCorrelationID(short); got != short {
		t.Errorf("expected short id unchanged, got %q", got)
	}

	long := "abcdefgh-1234-5678-9012"
	got := TruncateCorrelationID(long)
	if got != "abcdefgh..." {
		t.Errorf("expected truncated id, got %q", got)
	}
}
