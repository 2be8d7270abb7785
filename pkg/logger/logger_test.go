package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf), WithService("svc")); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("collector").With(String("uid", "u1")).Info(context.Background(), "scanned", Int("n", 3))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	for k, want := range map[string]any{"service": "svc", "logger": "collector", "uid": "u1", "msg": "scanned"} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
	if entry["n"] != float64(3) {
		t.Errorf("n = %v, want 3", entry["n"])
	}
	if _, ok := entry["source"]; !ok {
		t.Error("missing source attribute")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	defer SetLevelString("info") //nolint:errcheck

	Get().Info(context.Background(), "hidden")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry should have been filtered")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn entry missing")
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestErrorMessageTruncation(t *testing.T) {
	if ErrorMessage(nil) != "" {
		t.Error("nil error should render empty")
	}
	short := errors.New("boom")
	if ErrorMessage(short) != "boom" {
		t.Errorf("got %q", ErrorMessage(short))
	}
	long := errors.New(strings.Repeat("é", 300))
	got := ErrorMessage(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != maxErrorMessageLen {
		t.Errorf("truncated to %d runes, want %d", n, maxErrorMessageLen)
	}
}
