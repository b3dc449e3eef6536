package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"bloodlink.org/internal/obs"
)

func TestLogEventShape(t *testing.T) {
	logger := obs.Logger()
	var buf bytes.Buffer
	orig := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)

	ctx := WithActor(context.Background(), "user-7")
	if err := LogEvent(ctx, "login", map[string]any{"role": "donor"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("audit line is not JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "login" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["user_id"] != "user-7" {
		t.Fatalf("actor missing: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["role"] != "donor" {
		t.Fatalf("fields = %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("blank event accepted")
	}
}
