package envelope

import (
	"encoding/json"
	"testing"

	"modelbridge/pkg/types"
)

func TestFormatToolsForPrompt(t *testing.T) {
	if FormatToolsForPrompt(nil) != "" {
		t.Fatalf("expected empty output for no tools")
	}
	schema := `{"type":"object","properties":{"city":{"type":"string"}}}`
	tools := []types.ToolSpec{
		{Name: "weather", Description: `city "name"`, Schema: &schema},
		{Name: "clock", Description: "time"},
	}
	out := FormatToolsForPrompt(tools)
	var decoded []struct {
		Type     string `json:"type"`
		Function struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Parameters  json.RawMessage `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte("["+out+"]"), &decoded); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(decoded))
	}
	if decoded[0].Function.Description != `city "name"` || string(decoded[0].Function.Parameters) != schema {
		t.Fatalf("tool 0: %+v", decoded[0])
	}
	if decoded[1].Function.Parameters != nil {
		t.Fatalf("tool 1 should have no parameters")
	}
}
