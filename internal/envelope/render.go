package envelope

import (
	"math"
	"strconv"
	"strings"

	"modelbridge/pkg/types"
)

// RenderCompletion serializes a completion result. Narrative text is
// escaped; function calls are emitted exactly as captured. Timings use two
// decimals, counters are integers and total_tokens is computed here.
func RenderCompletion(r types.CompletionResult) string {
	size := len(r.Response) + 224
	for _, c := range r.FunctionCalls {
		size += len(c) + 1
	}
	var b strings.Builder
	b.Grow(size)

	b.WriteString(`{"success":`)
	b.WriteString(strconv.FormatBool(r.Success))
	b.WriteString(`,"response":"`)
	writeEscaped(&b, r.Response)
	b.WriteString(`",`)
	if len(r.FunctionCalls) > 0 {
		b.WriteString(`"function_calls":[`)
		for i, c := range r.FunctionCalls {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c)
		}
		b.WriteString(`],`)
	}
	b.WriteString(`"time_to_first_token_ms":`)
	b.WriteString(fixed2(r.TimeToFirstTokenMs))
	b.WriteString(`,"total_time_ms":`)
	b.WriteString(fixed2(r.TotalTimeMs))
	b.WriteString(`,"tokens_per_second":`)
	b.WriteString(fixed2(r.TokensPerSecond))
	b.WriteString(`,"prefill_tokens":`)
	b.WriteString(strconv.Itoa(r.PromptTokens))
	b.WriteString(`,"decode_tokens":`)
	b.WriteString(strconv.Itoa(r.CompletionTokens))
	b.WriteString(`,"total_tokens":`)
	b.WriteString(strconv.Itoa(r.TotalTokens()))
	b.WriteByte('}')
	return b.String()
}

// RenderError builds the failure envelope. The message is sanitized rather
// than rejected: quotes become apostrophes, line breaks become spaces and
// any other byte that could break the envelope is neutralised.
func RenderError(msg string) string {
	var b strings.Builder
	b.Grow(len(msg) + 32)
	b.WriteString(`{"success":false,"error":"`)
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		switch {
		case c == '"':
			b.WriteByte('\'')
		case c == '\n' || c == '\r':
			b.WriteByte(' ')
		case c == '\\':
			b.WriteString(`\\`)
		case c < 0x20:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	b.WriteString(`"}`)
	return b.String()
}

// RenderEmbedding serializes an embedding vector.
func RenderEmbedding(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*12 + 48)
	b.WriteString(`{"success":true,"embedding":[`)
	buf := make([]byte, 0, 24)
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		buf = strconv.AppendFloat(buf[:0], f, 'g', -1, 32)
		b.Write(buf)
	}
	b.WriteString(`],"dimension":`)
	b.WriteString(strconv.Itoa(len(vec)))
	b.WriteByte('}')
	return b.String()
}

// RenderToken renders one streamed token as a single-line object.
func RenderToken(tok string) string {
	var b strings.Builder
	b.Grow(len(tok) + 12)
	b.WriteString(`{"token":"`)
	writeEscaped(&b, tok)
	b.WriteString(`"}`)
	return b.String()
}

// RenderProgress renders one download progress update.
func RenderProgress(modelID string, fraction float64) string {
	var b strings.Builder
	b.WriteString(`{"model":"`)
	writeEscaped(&b, modelID)
	b.WriteString(`","progress":`)
	b.WriteString(fixed2(fraction))
	b.WriteByte('}')
	return b.String()
}
