package wire

import (
	"strings"

	"modelbridge/pkg/types"
)

const functionMarker = `"function"`

// ParseTools extracts tool specifications from a tools array. Every tool
// marker yields one ToolSpec, whose fields are looked up only between its
// marker and the next one; a tool whose parameters object does not close
// before the next marker is kept with a nil Schema. Empty input means no
// tools. Non-empty input without '[' is a hard failure.
func ParseTools(text string) ([]types.ToolSpec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, ErrMalformedPayload("tools", "expected array")
	}

	var tools []types.ToolSpec
	pos := keyAt(text, "function", start)
	for pos >= 0 {
		from := toolStart(text, pos)

		// The fields of this tool live before the next marker.
		limit := len(text)
		next := keyAt(text, "function", from)
		if next >= 0 {
			limit = next - len(functionMarker)
		}
		seg := text[:limit]

		var tool types.ToolSpec
		if nameEnd := keyAt(seg, "name", from); nameEnd >= 0 {
			if v, _, ok := plainString(seg, nameEnd); ok {
				tool.Name = v
			}
		}
		if descEnd := keyAt(seg, "description", from); descEnd >= 0 {
			if raw, closeIdx, ok := escapedString(seg, descEnd); ok && closeIdx < len(seg) {
				tool.Description = unescape(raw)
			}
		}
		if paramsEnd := keyAt(seg, "parameters", from); paramsEnd >= 0 {
			if open := strings.IndexByte(seg[paramsEnd:], '{'); open >= 0 {
				if span, _, ok := balanced(seg, paramsEnd+open, limit, '{', '}'); ok {
					schema := span
					tool.Schema = &schema
				}
			}
		}
		tools = append(tools, tool)
		pos = next
	}
	return tools, nil
}

// toolStart returns where the fields of the tool found at marker end begin.
// In the {"type":"function","function":{...}} form the first marker is the
// type value and the fields start after the "function" key that follows it.
func toolStart(text string, end int) int {
	if isKey(text, end) {
		return end
	}
	if k := keyAt(text, "function", end); k >= 0 && isKey(text, k) {
		return k
	}
	return end
}

// isKey reports whether the quoted token ending at end is followed by ':'.
func isKey(s string, end int) bool {
	i := skipSpace(s, end)
	return i < len(s) && s[i] == ':'
}
