package envelope

import (
	"strings"

	"modelbridge/pkg/types"
)

// FormatToolsForPrompt renders tool specs as the list of function entries the
// prompt template embeds. Schemas are re-emitted verbatim.
func FormatToolsForPrompt(tools []types.ToolSpec) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  {\n")
		b.WriteString("    \"type\": \"function\",\n")
		b.WriteString("    \"function\": {\n")
		b.WriteString("      \"name\": \"")
		writeEscaped(&b, t.Name)
		b.WriteString("\",\n")
		b.WriteString("      \"description\": \"")
		writeEscaped(&b, t.Description)
		b.WriteByte('"')
		if t.Schema != nil {
			b.WriteString(",\n      \"parameters\": ")
			b.WriteString(*t.Schema)
		}
		b.WriteString("\n    }\n  }")
	}
	return b.String()
}
