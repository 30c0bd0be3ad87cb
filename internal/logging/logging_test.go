package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONOutputCarriesNameAndArgs(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, "info", "json")
	root.GetLogger("webhooks").Info("notification applied", "eventId", "evt_1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "notification applied" || rec["logger"] != "webhooks" || rec["eventId"] != "evt_1" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "text")
	l.Debug("hidden")
	l.Info("hidden")
	l.WithContext(context.Background()).Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("TRACE") != LevelTrace || ParseLevel("bogus") != slog.LevelInfo || ParseLevel("error") != slog.LevelError {
		t.Fatal("bad level mapping")
	}
}
