package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelWarn, Format: "text"}, &buf)

	log.Info("hidden")
	log.Warn("shown", "order_code", "ABC12")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "order_code=ABC12") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestJSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: LevelDebug, Format: "json", Component: "uploader"}, &buf)

	log.With("run_id", "r1").Debug("sent", "status", 201)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "uploader" || entry["run_id"] != "r1" || entry["msg"] != "sent" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	for _, msg := range []string{"first", "second"} {
		log, err := Open(Config{Level: LevelInfo, Output: path})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		log.Info(msg)
		if err := log.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=first") || !strings.Contains(string(data), "msg=second") {
		t.Errorf("log file = %s", data)
	}
}

func TestOpenUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "run.log")

	if _, err := Open(Config{Output: path}); err == nil {
		t.Fatal("Open() error = nil, want failure for a missing directory")
	}
	if log := New(Config{Output: path}); log == nil {
		t.Fatal("New() = nil, want a stderr logger")
	}
}
