package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json.log")

	if err := Init(Options{Level: "debug", JSONFile: jsonPath, Truncate: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Debug("отладка", zap.Int("поколение", 3))
	Sync()

	f, err := os.Open(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatalf("expected a log line")
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "DEBUG" || entry["msg"] != "отладка" || entry["поколение"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init(Options{Level: "громко"}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}

func TestGetLoggerWithoutInit(t *testing.T) {
	mu.Lock()
	globalLogger = nil
	mu.Unlock()

	if GetLogger() == nil {
		t.Fatalf("expected a default logger")
	}
	Info("без инициализации")
}
