package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "recsyncd.log")
	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("recording saved", String(FieldPath, "/rec/a.ts"))
	logger.Debug("suppressed")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), data)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if record["msg"] != "recording saved" {
		t.Errorf("msg: got %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Errorf("level: got %v", record["level"])
	}
	if record[FieldPath] != "/rec/a.ts" {
		t.Errorf("path: got %v", record[FieldPath])
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "scanner").Info("batch scan finished", Int("processed", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO scanner: batch scan finished") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "processed=3") {
		t.Fatalf("missing attr: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component must not repeat as an attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Warn("extraction failed",
		String(FieldPath, "/rec/my show.ts"),
		Error(errors.New("exit status 1")))

	line := buf.String()
	if !strings.Contains(line, `path="/rec/my show.ts"`) {
		t.Fatalf("path not quoted: %q", line)
	}
	if !strings.Contains(line, `error="exit status 1"`) {
		t.Fatalf("error not rendered: %q", line)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info record leaked past warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestConsoleHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.WithGroup("probe").Info("done", Int("streams", 2))
	if !strings.Contains(buf.String(), "probe.streams=2") {
		t.Fatalf("group prefix missing: %q", buf.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(nil, slog.LevelError) {
		t.Fatalf("nop logger must be disabled")
	}
}
