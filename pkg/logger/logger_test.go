package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/opsdesk-api/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("job_id", "j1").Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != serviceName {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["job_id"] != "j1" || entry["message"] != "kept" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewWithWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "loud"}, &buf)

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("info should be written")
	}
}
