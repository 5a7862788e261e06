// Package envelope renders results crossing the engine boundary into their
// fixed textual shapes and splits raw model output into narrative text and
// embedded function calls.
package envelope

import "strings"

// FunctionCallMarker introduces a function call inside model output.
const FunctionCallMarker = `"function_call"`

// SplitFunctionCalls separates raw model output into the narrative text and
// the verbatim function-call objects it carries. Each payload is the object
// following a marker, captured by brace depth. The narrative is cut once, at
// the first marker; an orphaned '{' left at the end of the cut is dropped.
// Unbalanced trailing objects are not captured.
func SplitFunctionCalls(raw string) (narrative string, calls []string) {
	narrative = raw
	cut := false
	pos := 0
	for pos < len(raw) {
		m := strings.Index(raw[pos:], FunctionCallMarker)
		if m < 0 {
			break
		}
		m += pos
		if !cut {
			narrative = trimOrphanBrace(raw[:m])
			cut = true
		}
		open := strings.IndexByte(raw[m:], '{')
		if open < 0 {
			break
		}
		open += m
		depth := 1
		end := open + 1
		for end < len(raw) && depth > 0 {
			switch raw[end] {
			case '{':
				depth++
			case '}':
				depth--
			}
			end++
		}
		if depth == 0 {
			calls = append(calls, raw[open:end])
		}
		pos = end
	}
	return narrative, calls
}

func trimOrphanBrace(s string) string {
	t := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(t, "{") {
		return t[:len(t)-1]
	}
	return s
}
