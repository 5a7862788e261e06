package session

import (
	"context"
	"time"

	"modelbridge/internal/envelope"
	"modelbridge/internal/wire"
	"modelbridge/pkg/types"
)

// Complete runs one generation over turns. onToken, when non-nil, receives
// every token in order as it is produced. A stopped generation returns the
// partial result with Success set.
func (c *Controller) Complete(ctx context.Context, turns []types.ChatTurn, opts types.GenerationOptions, tools []types.ToolSpec, onToken func(string)) (types.CompletionResult, error) {
	id, ok := c.beginCall()
	if !ok {
		return types.CompletionResult{}, ErrAlreadyGenerating()
	}
	defer c.endCall()
	stopRequested := c.stopper(id)

	if len(turns) == 0 {
		return types.CompletionResult{}, wire.ErrMalformedPayload("messages", "no chat turns")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = types.DefaultMaxTokens
	}
	b, err := c.acquire(ctx)
	if err != nil {
		return types.CompletionResult{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.setActive(b.handle, cancel)

	bufSize := ResponseBufferSize(opts.MaxTokens)
	stream := newTokenStream(bufSize, onToken, stopRequested)
	req := NativeRequest{
		Turns:      turns,
		Tools:      envelope.FormatToolsForPrompt(tools),
		Options:    opts,
		BufferSize: bufSize,
	}
	c.log.Debug().Str("event", "complete_start").Str("model", b.modelID).Int("turns", len(turns)).Int("tools", len(tools)).Msg("session")

	start := time.Now()
	var res NativeResult
	if !stopRequested() {
		res, err = b.handle.Complete(runCtx, req, stream.deliver)
	}
	total := time.Since(start)
	stopped := stopRequested()
	if err != nil && !stopped {
		c.log.Error().Str("event", "complete_error").Str("model", b.modelID).Err(err).Msg("session")
		c.publish("complete_error", b.modelID, map[string]any{"error": err.Error()})
		switch {
		case ctx.Err() != nil:
			return types.CompletionResult{}, ctx.Err()
		case IsDependencyUnavailable(err):
			return types.CompletionResult{}, err
		default:
			return types.CompletionResult{}, ErrNativeEngineFailure("complete", err)
		}
	}

	raw := stream.Text()
	if raw == "" {
		raw = res.Text
	}
	narrative, calls := envelope.SplitFunctionCalls(raw)
	decoded := res.CompletionTokens
	if decoded == 0 {
		decoded = stream.Count()
	}
	ttft := total
	if first := stream.FirstTokenAt(); !first.IsZero() {
		ttft = first.Sub(start)
	}
	result := types.CompletionResult{
		Success:            true,
		Response:           narrative,
		FunctionCalls:      calls,
		TimeToFirstTokenMs: ms(ttft),
		TotalTimeMs:        ms(total),
		TokensPerSecond:    tokensPerSecond(decoded, total-ttft, total),
		PromptTokens:       res.PromptTokens,
		CompletionTokens:   decoded,
	}
	c.log.Info().Str("event", "complete_done").Str("model", b.modelID).
		Int("prompt_tokens", result.PromptTokens).Int("completion_tokens", result.CompletionTokens).
		Bool("stopped", stopped).Dur("dur", total).Msg("session")
	c.publish("complete_done", b.modelID, map[string]any{
		"prompt_tokens":     result.PromptTokens,
		"completion_tokens": result.CompletionTokens,
		"ttft_ms":           result.TimeToFirstTokenMs,
		"tokens_per_second": result.TokensPerSecond,
		"function_calls":    len(calls),
		"stopped":           stopped,
		"dur_ms":            result.TotalTimeMs,
		"op":                "complete",
	})
	return result, nil
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// tokensPerSecond measures decode throughput after the first token, falling
// back to the whole call when the decode window is empty.
func tokensPerSecond(tokens int, decode, total time.Duration) float64 {
	if tokens <= 0 {
		return 0
	}
	if decode > 0 && tokens > 1 {
		return float64(tokens-1) / decode.Seconds()
	}
	if total > 0 {
		return float64(tokens) / total.Seconds()
	}
	return 0
}
