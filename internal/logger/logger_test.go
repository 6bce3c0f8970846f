package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetup_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, false)

	log.Info("test message", "key", "value")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, line)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestSetup_InfoLevelSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, false)

	log.Debug("should not appear")

	if buf.Len() != 0 {
		t.Errorf("debug log was emitted at info level: %s", buf.String())
	}
}

func TestSetup_DebugLevelEmitsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, true)

	log.Debug("should appear")

	if buf.Len() == 0 {
		t.Error("debug log was not emitted at debug level")
	}
}
