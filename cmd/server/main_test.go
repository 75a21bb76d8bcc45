package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Tyrowin/gonotify/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("json handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(config.LogConfig{Level: "info", Format: "JSON"}, &buf)
		if err != nil {
			t.Fatalf("newLogger: %v", err)
		}
		logger.Debug("hidden")
		logger.Info("shown", "session_id", "abc")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
		}
		if line["msg"] != "shown" || line["session_id"] != "abc" {
			t.Errorf("unexpected record %v", line)
		}
	})

	t.Run("text handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf)
		if err != nil {
			t.Fatalf("newLogger: %v", err)
		}
		logger.Debug("visible")
		if !strings.Contains(buf.String(), "msg=visible") {
			t.Errorf("expected text record, got %q", buf.String())
		}
	})

	t.Run("bad level", func(t *testing.T) {
		if _, err := newLogger(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{}); err == nil {
			t.Error("expected error for unknown level")
		}
	})
}
