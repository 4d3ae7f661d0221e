package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesServiceField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "hotel-finder"})
	logger.Info().Str("run_id", "r1").Msg("crew run started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != "hotel-finder" || entry["run_id"] != "r1" || entry["message"] != "crew run started" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatal("expected a timestamp")
	}
}

func TestNewLevel(t *testing.T) {
	t.Parallel()

	var info bytes.Buffer
	infoLogger := New(&info, Config{})
	infoLogger.Debug().Msg("hidden")
	if info.Len() != 0 {
		t.Fatalf("debug must be filtered at info level, got %s", info.String())
	}

	var debug bytes.Buffer
	debugLogger := New(&debug, Config{Debug: true})
	debugLogger.Debug().Msg("shown")
	if debug.Len() == 0 {
		t.Fatal("debug must be written when Debug is set")
	}
}
