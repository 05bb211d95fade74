package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info().Str("component", "engine").Msg("done")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if line["component"] != "engine" || line["message"] != "done" {
		t.Errorf("unexpected line %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNewLoggerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	l := NewLogger(&a, &b)
	l.Warn().Msg("x")
	if a.Len() == 0 || b.Len() == 0 {
		t.Errorf("expected both writers to receive output: %q %q", a.String(), b.String())
	}
}
