package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		Workflow: "orders",
		Node:     "Route",
		Msg:      "finding",
		Meta: map[string]any{
			"kind":     "incomplete_branch",
			"severity": "error",
		},
	})

	out := buf.String()
	if !strings.HasPrefix(out, "[finding] workflow=orders node=Route") {
		t.Errorf("unexpected prefix: %q", out)
	}
	if !strings.Contains(out, `"kind":"incomplete_branch"`) {
		t.Errorf("meta missing from output: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output not newline-terminated: %q", out)
	}
}

func TestLogEmitter_TextModeOmitsEmptyNode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{Workflow: "orders", Msg: "validate_start"})

	if strings.Contains(buf.String(), "node=") {
		t.Errorf("empty node rendered: %q", buf.String())
	}
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		Workflow: "orders",
		Msg:      "validate_end",
		Meta:     map[string]any{"errors": 1, "warnings": 2},
	})

	var decoded struct {
		Workflow string         `json:"workflow"`
		Node     string         `json:"node"`
		Msg      string         `json:"msg"`
		Meta     map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Workflow != "orders" || decoded.Msg != "validate_end" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Meta["errors"] != float64(1) {
		t.Errorf("meta errors = %v, want 1", decoded.Meta["errors"])
	}
}

func TestLogEmitter_JSONModeOneEventPerLine(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{Workflow: "a", Msg: "validate_start"})
	emitter.Emit(Event{Workflow: "a", Msg: "validate_end"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for i, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("line %d is not valid JSON: %q", i, line)
		}
	}
}

func TestNullEmitter(t *testing.T) {
	emitter := NewNullEmitter()
	// Must not panic on any event shape.
	emitter.Emit(Event{})
	emitter.Emit(Event{Workflow: "w", Node: "n", Msg: "finding", Meta: map[string]any{"k": "v"}})
}
