package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", slog.String("key", "value"))

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("expected JSON output to contain msg field, got %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(Config{Format: "json", Level: "nonsense"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("should not panic")
}
